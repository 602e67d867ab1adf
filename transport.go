package captchaai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Doer performs one raw HTTP exchange and gives up when ctx is done.
// *stealth.BrowserClient satisfies it.
type Doer interface {
	DoWithHeaderOrderCtx(ctx context.Context, method, url string, headers map[string]string, body io.Reader, order []string) ([]byte, map[string]string, int, error)
}

// Exchanger posts a JSON payload to an API endpoint and returns the body of
// an accepted response. The lifecycle controller only talks to Exchangers.
type Exchanger interface {
	Exchange(ctx context.Context, endpoint string, payload any) ([]byte, error)
}

// retryBackoff spaces out retries of network faults on the blocking path.
var retryBackoff = stealth.BackoffConfig{
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
	JitterPct:   0.3,
}

var errClosed = errors.New("client closed")

type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transport is the Exchanger used by Client. The blocking and async flavours
// share a Doer and a rate limiter and differ only in their retry budget.
type transport struct {
	doer      Doer
	baseURL   string
	userAgent string
	retries   int
	cooldown  time.Duration
	limiter   *ratelimit.Limiter
	sleep     sleepFunc
	closed    *atomic.Bool
}

// withRetries returns a copy of t with a different retry budget.
func (t *transport) withRetries(n int) *transport {
	cp := *t
	cp.retries = n
	return &cp
}

// Exchange implements Exchanger.
func (t *transport) Exchange(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	if t.closed != nil && t.closed.Load() {
		return nil, &TransportError{Endpoint: endpoint, Err: errClosed}
	}
	if err := ctx.Err(); err != nil {
		logCanceled(endpoint, err)
		return nil, err
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		slog.Error("captchaai: encode payload", slog.String("endpoint", endpoint), slog.Any("error", err))
		return nil, &SchemaError{Endpoint: endpoint, Err: fmt.Errorf("encode payload: %w", err)}
	}
	target, err := endpointURL(t.baseURL, endpoint)
	if err != nil {
		slog.Error("captchaai: build url", slog.String("endpoint", endpoint), slog.Any("error", err))
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}

	if err := t.waitCooldown(ctx, endpoint); err != nil {
		logCanceled(endpoint, err)
		return nil, err
	}

	var (
		body    []byte
		hdrs    map[string]string
		status  int
		lastErr error
	)
	for attempt := 0; attempt <= t.retries; attempt++ {
		if attempt > 0 {
			delay := retryBackoff.Duration(attempt)
			if err := t.sleep(ctx, delay); err != nil {
				logCanceled(endpoint, err)
				return nil, err
			}
		}
		body, hdrs, status, lastErr = t.doer.DoWithHeaderOrderCtx(ctx, "POST", target, apiHeaders(t.userAgent), bytes.NewReader(reqBody), apiHeaderOrder)
		if lastErr == nil {
			break
		}
		if err := ctx.Err(); err != nil {
			logCanceled(endpoint, err)
			return nil, err
		}
		if attempt < t.retries {
			slog.Warn("captchaai: request failed, retrying",
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt+1),
				slog.Any("error", lastErr))
		}
	}
	if lastErr != nil {
		slog.Error("captchaai: request failed",
			slog.String("endpoint", endpoint),
			slog.Int("attempts", t.retries+1),
			slog.Any("error", lastErr))
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("after %d attempts: %w", t.retries+1, lastErr)}
	}

	switch classifyStatus(status) {
	case statusAccepted:
		return body, nil
	case statusAuth:
		err := &AuthError{Endpoint: endpoint}
		slog.Error("captchaai: authentication failed", slog.String("endpoint", endpoint), slog.Any("error", err))
		return nil, err
	case statusRateLimited:
		until := parseRetryAfter(hdrs["retry-after"], t.cooldown)
		t.limiter.MarkRateLimited(endpoint, until)
		slog.Warn("captchaai: rate limited",
			slog.String("endpoint", endpoint),
			slog.Time("until", until))
	}
	err = &TransportError{Endpoint: endpoint, StatusCode: status, Body: truncateBytes(body, 200)}
	slog.Error("captchaai: unexpected status", slog.String("endpoint", endpoint), slog.Int("status", status), slog.Any("error", err))
	return nil, err
}

func logCanceled(endpoint string, err error) {
	slog.Warn("captchaai: request abandoned", slog.String("endpoint", endpoint), slog.Any("error", err))
}

// waitCooldown blocks while endpoint is marked rate-limited.
func (t *transport) waitCooldown(ctx context.Context, endpoint string) error {
	if !t.limiter.IsRateLimited(endpoint) {
		return nil
	}
	wait := time.Until(t.limiter.AvailableAt(endpoint))
	slog.Debug("captchaai: endpoint cooling down", slog.String("endpoint", endpoint), slog.Duration("wait", wait))
	return t.sleep(ctx, wait)
}

// newBrowserDoer builds the go-stealth client a Client owns by default. It
// returns the client, the User-Agent of its browser profile and the backend
// holding the connection pool.
func newBrowserDoer(proxy string) (*stealth.BrowserClient, string, *poolBackend, error) {
	profile := stealth.BuiltinProfiles[rand.IntN(len(stealth.BuiltinProfiles))]
	var backend *poolBackend
	opts := []stealth.ClientOption{
		stealth.WithHeaderOrder(apiHeaderOrder),
		stealth.WithProfile(profile.TLSProfile),
		stealth.WithBackend(func(cfg stealth.BackendConfig) (stealth.HTTPDoer, error) {
			b, err := newPoolBackend(cfg)
			if err != nil {
				return nil, err
			}
			backend = b
			return b, nil
		}),
	}
	if proxy != "" {
		opts = append(opts, stealth.WithProxy(proxy))
		slog.Debug("captchaai: using proxy", slog.String("proxy", stealth.MaskProxy(proxy)))
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, "", nil, fmt.Errorf("stealth client: %w", err)
	}
	return bc, profile.UserAgent, backend, nil
}
