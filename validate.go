package captchaai

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterStructValidation(kasadaProxyAuth, KasadaTask{})
	})
	return validate
}

// kasadaProxyAuth requires proxy credentials on Kasada tasks.
func kasadaProxyAuth(sl validator.StructLevel) {
	t := sl.Current().Interface().(KasadaTask)
	if t.ProxyLogin == "" {
		sl.ReportError(t.ProxyLogin, "ProxyLogin", "ProxyLogin", "required", "")
	}
	if t.ProxyPassword == "" {
		sl.ReportError(t.ProxyPassword, "ProxyPassword", "ProxyPassword", "required", "")
	}
}

// validateStruct checks v's validate tags and reports the first violation
// as a *ConfigError.
func validateStruct(v any) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ConfigError{
			Field: fe.Namespace(),
			Err:   fmt.Errorf("failed %q constraint (param %q, got %v)", fe.Tag(), fe.Param(), redact(fe)),
		}
	}
	return &ConfigError{Err: err}
}

// redact hides the API key value in validation messages.
func redact(fe validator.FieldError) any {
	if fe.StructField() == "APIKey" {
		s, _ := fe.Value().(string)
		return fmt.Sprintf("%d of %d chars", len(s), apiKeyLength)
	}
	return fe.Value()
}
