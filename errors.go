package captchaai

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is, so callers can decide whether to retry, alert or abort.
var (
	ErrConfig    = errors.New("captchaai: invalid configuration")
	ErrAuth      = errors.New("captchaai: authentication failed")
	ErrTransport = errors.New("captchaai: transport failure")
	ErrSchema    = errors.New("captchaai: malformed response")

	// ErrPollAttempts and ErrPollTimeout are returned when a PollPolicy bound
	// is hit before the task reaches a terminal status.
	ErrPollAttempts = errors.New("captchaai: poll attempts exceeded")
	ErrPollTimeout  = errors.New("captchaai: poll timeout")
)

// ConfigError reports a client or task field that failed validation.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("captchaai config: %v", e.Err)
	}
	return fmt.Sprintf("captchaai config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// AuthError is returned on HTTP 401. It is never retried.
type AuthError struct {
	Endpoint string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("captchaai %s: HTTP 401: authentication failed, API key is not correct", e.Endpoint)
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// TransportError covers non-accepted HTTP statuses and network faults that
// outlived the retry budget. StatusCode is 0 for network faults.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("captchaai %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("captchaai %s HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// SchemaError reports a payload or response body that does not match the
// expected shape.
type SchemaError struct {
	Endpoint string
	Body     string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("captchaai %s: schema: %v", e.Endpoint, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// statusClass categorizes an HTTP status code for the transport adapter.
type statusClass int

const (
	statusAccepted    statusClass = iota
	statusAuth                    // 401
	statusRateLimited             // 429
	statusRejected                // anything else outside the allow-list
)

// acceptedStatusCodes is the allow-list of codes whose body is handed to the
// schema layer. The service answers errorId payloads with 400.
var acceptedStatusCodes = map[int]bool{
	200: true,
	202: true,
	400: true,
}

// classifyStatus maps an HTTP status code onto a statusClass.
func classifyStatus(code int) statusClass {
	switch {
	case acceptedStatusCodes[code]:
		return statusAccepted
	case code == 401:
		return statusAuth
	case code == 429:
		return statusRateLimited
	}
	return statusRejected
}

// parseRetryAfter parses a Retry-After header given in seconds.
// Falls back to now+fallback if missing or invalid.
func parseRetryAfter(v string, fallback time.Duration) time.Time {
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Now().Add(time.Duration(secs) * time.Second)
	}
	return time.Now().Add(fallback)
}
