package captchaai

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Client is the captcha solving client. It owns its HTTP connection pool;
// call Close when done. Safe for concurrent use.
type Client struct {
	cfg    ClientConfig
	doer   Doer
	pool   *poolBackend
	closed atomic.Bool
	once   sync.Once

	blocking *lifecycle
	async    *lifecycle
}

// NewClient validates cfg and creates a fully-wired client.
func NewClient(cfg ClientConfig) (*Client, error) {
	cfg.defaults()
	if err := validateStruct(cfg); err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg, doer: cfg.Doer}
	userAgent := ""
	if c.doer == nil {
		bc, ua, pool, err := newBrowserDoer(cfg.Proxy)
		if err != nil {
			return nil, &ConfigError{Field: "Doer", Err: err}
		}
		c.doer, c.pool, userAgent = bc, pool, ua
	}

	retries := max(cfg.Retries, 0)
	base := &transport{
		doer:      c.doer,
		baseURL:   cfg.BaseURL,
		userAgent: userAgent,
		retries:   retries,
		cooldown:  cfg.PollInterval,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig),
		sleep:     sleepCtx,
		closed:    &c.closed,
	}
	c.blocking = c.newLifecycle(base)
	c.async = c.newLifecycle(base.withRetries(0))
	return c, nil
}

func (c *Client) newLifecycle(ex Exchanger) *lifecycle {
	return &lifecycle{
		ex:       ex,
		apiKey:   c.cfg.APIKey,
		interval: c.cfg.PollInterval,
		policy:   c.cfg.Poll,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// PollInterval returns the configured wait between polls.
func (c *Client) PollInterval() time.Duration { return c.cfg.PollInterval }

// CreateTask submits task and returns the service's answer. A response with
// ErrorID set is returned as-is, not as an error.
func (c *Client) CreateTask(ctx context.Context, task Task) (*CreateTaskResponse, error) {
	return c.blocking.createTask(ctx, task)
}

// GetTaskResult fetches the current state of a task once, without waiting.
func (c *Client) GetTaskResult(ctx context.Context, taskID string) (*TaskResultResponse, error) {
	return c.blocking.getTaskResult(ctx, taskID)
}

// Poll performs one poll step. For an idle or processing task it sleeps one
// PollInterval before returning done=false, so callers can loop on it
// directly. Ready, failed, unrecognized statuses and service errors return
// done=true immediately.
func (c *Client) Poll(ctx context.Context, taskID string) (res *TaskResultResponse, done bool, err error) {
	return c.blocking.poll(ctx, taskID)
}

// Process creates task and polls until it reaches a terminal status. If the
// service rejects the task, the rejection is returned without polling.
// Callers inspect Status, ErrorID and Solution to tell success from failure.
func (c *Client) Process(ctx context.Context, task Task) (*TaskResultResponse, error) {
	return c.blocking.process(ctx, task)
}

// Balance returns the account balance.
func (c *Client) Balance(ctx context.Context) (*ControlResponse, error) {
	body, err := c.blocking.ex.Exchange(ctx, endpointGetBalance, controlRequest{ClientKey: c.cfg.APIKey})
	if err != nil {
		return nil, err
	}
	res, err := parseControl(body)
	if err != nil {
		slog.Error("captchaai: bad getBalance response", slog.Any("error", err))
		return nil, err
	}
	return res, nil
}

// Close marks the client closed and, when the client built its own Doer,
// closes the idle connections of its pool. A caller-supplied Doer is left
// alone. Further calls fail with a TransportError. Close is idempotent.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.closed.Store(true)
		if c.pool != nil {
			c.pool.CloseIdleConnections()
		}
	})
	return nil
}
