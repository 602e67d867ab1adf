package captchaai

import (
	"encoding/json"
	"fmt"
)

// TaskType is the task discriminator sent as task.type.
type TaskType string

const (
	TypeImageToText            TaskType = "ImageToTextTask"
	TypeReCaptchaV3            TaskType = "ReCaptchaV3Task"
	TypeReCaptchaV3ProxyLess   TaskType = "ReCaptchaV3TaskProxyLess"
	TypeHCaptcha               TaskType = "HCaptchaTask"
	TypeHCaptchaProxyLess      TaskType = "HCaptchaTaskProxyLess"
	TypeHCaptchaClassification TaskType = "HCaptchaClassification"
	TypeGeeTest                TaskType = "GeeTestTask"
	TypeGeeTestProxyLess       TaskType = "GeeTestTaskProxyLess"
	TypeFunCaptcha             TaskType = "FunCaptchaTask"
	TypeFunCaptchaProxyLess    TaskType = "FunCaptchaTaskProxyLess"
	TypeDatadomeSlider         TaskType = "DatadomeSliderTask"
	TypeMtCaptcha              TaskType = "MtCaptchaTask"
	TypeKasada                 TaskType = "KasadaTask"
)

// Task is one captcha variant. Implementations are plain structs whose JSON
// fields are merged into the createTask "task" object next to "type".
type Task interface {
	TaskType() TaskType
}

// Extras is embedded by every task to pass parameters this package does not
// model. Keys already produced by the task's own fields win.
type Extras struct {
	Extra map[string]any `json:"-" validate:"-"`
}

func (e Extras) extra() map[string]any { return e.Extra }

// ProxyOptions are the proxy fields shared by proxied task variants.
type ProxyOptions struct {
	ProxyType     string `json:"proxyType" validate:"required,oneof=http https socks4 socks5"`
	ProxyAddress  string `json:"proxyAddress" validate:"required,ip"`
	ProxyPort     int    `json:"proxyPort" validate:"required,min=1,max=65535"`
	ProxyLogin    string `json:"proxyLogin,omitempty"`
	ProxyPassword string `json:"proxyPassword,omitempty"`
}

// ImageToTextTask solves a classic image captcha.
type ImageToTextTask struct {
	// Body is the base64 encoded image without a data: prefix.
	Body string `json:"body" validate:"required,base64"`
	Extras
}

func (ImageToTextTask) TaskType() TaskType { return TypeImageToText }

// DefaultPageAction is sent with reCAPTCHA v3 tasks that leave PageAction empty.
const DefaultPageAction = "verify"

// ReCaptchaV3TaskProxyLess solves reCAPTCHA v3 from the service's own IPs.
type ReCaptchaV3TaskProxyLess struct {
	WebsiteURL string `json:"websiteURL" validate:"required,url"`
	WebsiteKey string `json:"websiteKey" validate:"required"`
	PageAction string `json:"pageAction,omitempty"`
	Extras
}

func (ReCaptchaV3TaskProxyLess) TaskType() TaskType { return TypeReCaptchaV3ProxyLess }

func (ReCaptchaV3TaskProxyLess) defaults() map[string]any {
	return map[string]any{"pageAction": DefaultPageAction}
}

// ReCaptchaV3Task solves reCAPTCHA v3 through the caller's proxy.
type ReCaptchaV3Task struct {
	WebsiteURL string `json:"websiteURL" validate:"required,url"`
	WebsiteKey string `json:"websiteKey" validate:"required"`
	PageAction string `json:"pageAction,omitempty"`
	ProxyOptions
	Extras
}

func (ReCaptchaV3Task) TaskType() TaskType { return TypeReCaptchaV3 }

func (ReCaptchaV3Task) defaults() map[string]any {
	return map[string]any{"pageAction": DefaultPageAction}
}

// HCaptchaTaskProxyLess solves hCaptcha from the service's own IPs.
type HCaptchaTaskProxyLess struct {
	WebsiteURL string `json:"websiteURL" validate:"required,url"`
	WebsiteKey string `json:"websiteKey" validate:"required"`
	Extras
}

func (HCaptchaTaskProxyLess) TaskType() TaskType { return TypeHCaptchaProxyLess }

// HCaptchaTask solves hCaptcha through the caller's proxy.
type HCaptchaTask struct {
	WebsiteURL string `json:"websiteURL" validate:"required,url"`
	WebsiteKey string `json:"websiteKey" validate:"required"`
	ProxyOptions
	Extras
}

func (HCaptchaTask) TaskType() TaskType { return TypeHCaptcha }

// HCaptchaClassification classifies hCaptcha challenge images.
type HCaptchaClassification struct {
	// Queries are base64 images without a data: prefix.
	Queries  []string `json:"queries" validate:"required,min=1,dive,base64"`
	Question string   `json:"question" validate:"required"`
	Extras
}

func (HCaptchaClassification) TaskType() TaskType { return TypeHCaptchaClassification }

// GeeTestTaskProxyLess solves GeeTest from the service's own IPs.
type GeeTestTaskProxyLess struct {
	WebsiteURL string `json:"websiteURL" validate:"required,url"`
	GT         string `json:"gt" validate:"required"`
	Challenge  string `json:"challenge,omitempty"`
	Extras
}

func (GeeTestTaskProxyLess) TaskType() TaskType { return TypeGeeTestProxyLess }

// GeeTestTask solves GeeTest through the caller's proxy.
type GeeTestTask struct {
	WebsiteURL string `json:"websiteURL" validate:"required,url"`
	GT         string `json:"gt" validate:"required"`
	Challenge  string `json:"challenge,omitempty"`
	ProxyOptions
	Extras
}

func (GeeTestTask) TaskType() TaskType { return TypeGeeTest }

// FunCaptchaTaskProxyLess solves Arkose Labs FunCaptcha from the service's own IPs.
type FunCaptchaTaskProxyLess struct {
	WebsiteURL               string `json:"websiteURL" validate:"required,url"`
	WebsitePublicKey         string `json:"websitePublicKey" validate:"required"`
	FuncaptchaAPIJSSubdomain string `json:"funcaptchaApiJSSubdomain,omitempty"`
	Extras
}

func (FunCaptchaTaskProxyLess) TaskType() TaskType { return TypeFunCaptchaProxyLess }

// FunCaptchaTask solves Arkose Labs FunCaptcha through the caller's proxy.
type FunCaptchaTask struct {
	WebsiteURL               string `json:"websiteURL" validate:"required,url"`
	WebsitePublicKey         string `json:"websitePublicKey" validate:"required"`
	FuncaptchaAPIJSSubdomain string `json:"funcaptchaApiJSSubdomain,omitempty"`
	ProxyOptions
	Extras
}

func (FunCaptchaTask) TaskType() TaskType { return TypeFunCaptcha }

// DatadomeSliderTask solves the DataDome slider.
type DatadomeSliderTask struct {
	WebsiteURL string `json:"websiteURL" validate:"required,url"`
	CaptchaURL string `json:"captchaUrl" validate:"required,url"`
	ProxyOptions
	Extras
}

func (DatadomeSliderTask) TaskType() TaskType { return TypeDatadomeSlider }

// MtCaptchaTask solves MTCaptcha. Proxy is "host:port:user:pass".
type MtCaptchaTask struct {
	WebsiteURL string `json:"websiteURL" validate:"required,url"`
	WebsiteKey string `json:"websiteKey" validate:"required"`
	Proxy      string `json:"proxy" validate:"required"`
	Extras
}

func (MtCaptchaTask) TaskType() TaskType { return TypeMtCaptcha }

// KasadaTask solves Kasada. The proxy must carry ProxyLogin and ProxyPassword.
type KasadaTask struct {
	PageURL string `json:"pageURL" validate:"required,url"`
	ProxyOptions
	Extras
}

func (KasadaTask) TaskType() TaskType { return TypeKasada }

// RawTask sends an arbitrary task type with free-form fields.
type RawTask struct {
	Type   TaskType       `validate:"required"`
	Fields map[string]any `validate:"-"`
}

func (t RawTask) TaskType() TaskType { return t.Type }

// taskFields validates task and flattens it into the createTask "task" object.
func taskFields(task Task) (map[string]any, error) {
	if task == nil {
		return nil, &ConfigError{Field: "task", Err: fmt.Errorf("nil task")}
	}
	if err := validateStruct(task); err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	switch t := task.(type) {
	case RawTask:
		for k, v := range t.Fields {
			fields[k] = v
		}
	case *RawTask:
		for k, v := range t.Fields {
			fields[k] = v
		}
	default:
		if x, ok := task.(interface{ extra() map[string]any }); ok {
			for k, v := range x.extra() {
				fields[k] = v
			}
		}
		raw, err := json.Marshal(task)
		if err != nil {
			return nil, &ConfigError{Field: string(task.TaskType()), Err: fmt.Errorf("encode task: %w", err)}
		}
		var own map[string]any
		if err := json.Unmarshal(raw, &own); err != nil {
			return nil, &ConfigError{Field: string(task.TaskType()), Err: fmt.Errorf("encode task: %w", err)}
		}
		for k, v := range own {
			fields[k] = v
		}
		if d, ok := task.(interface{ defaults() map[string]any }); ok {
			for k, v := range d.defaults() {
				if _, set := fields[k]; !set {
					fields[k] = v
				}
			}
		}
	}
	fields["type"] = task.TaskType()
	return fields, nil
}
