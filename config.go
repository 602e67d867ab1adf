package captchaai

import (
	"time"
)

// Defaults and bounds for ClientConfig.
const (
	DefaultPollInterval = 10 * time.Second
	MinPollInterval     = 5 * time.Second
	DefaultRetries      = 5
	apiKeyLength        = 36
)

// ClientConfig holds all configuration for the captcha client.
type ClientConfig struct {
	// APIKey is the account key from the service dashboard. Exactly 36 chars.
	APIKey string `validate:"len=36"`

	// PollInterval is the wait between getTaskResult calls. Minimum 5s.
	PollInterval time.Duration `validate:"min=5s"`

	// BaseURL is the API address. Default: DefaultBaseURL.
	BaseURL string `validate:"required,url"`

	// Proxy routes the client's own HTTP traffic through a proxy.
	// This is unrelated to the proxy fields of individual tasks.
	Proxy string `validate:"omitempty,url"`

	// Retries is the number of automatic retries on network faults for the
	// blocking path. Default 5; -1 disables retries. The async path never retries.
	Retries int `validate:"min=-1,max=20"`

	// Poll bounds the polling loop. The zero value polls until a terminal status.
	Poll PollPolicy

	// Doer overrides the HTTP exchanger. When nil the client builds and owns
	// a go-stealth browser client.
	Doer Doer `validate:"-"`
}

// defaults fills in zero-value config fields with sensible defaults.
func (cfg *ClientConfig) defaults() {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Retries == 0 {
		cfg.Retries = DefaultRetries
	}
}
