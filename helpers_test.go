package captchaai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path"
	"sync"
	"testing"
	"time"
)

const testKey = "0123456789abcdef0123456789abcdef0123"

type reply struct {
	status int
	body   string
	hdrs   map[string]string
	err    error
}

func okReply(body string) reply { return reply{status: 200, body: body} }

type call struct {
	endpoint string
	url      string
	headers  map[string]string
	payload  map[string]any
}

// fakeDoer answers requests through handle and records every call.
type fakeDoer struct {
	mu     sync.Mutex
	calls  []call
	handle func(endpoint string, payload map[string]any) reply
}

func (f *fakeDoer) DoWithHeaderOrderCtx(ctx context.Context, method, url string, headers map[string]string, body io.Reader, _ []string) ([]byte, map[string]string, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, 0, err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, 0, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, 0, err
	}
	endpoint := path.Base(url)

	f.mu.Lock()
	f.calls = append(f.calls, call{endpoint: endpoint, url: url, headers: headers, payload: payload})
	f.mu.Unlock()

	done := make(chan reply, 1)
	go func() { done <- f.handle(endpoint, payload) }()

	var r reply
	select {
	case <-ctx.Done():
		return nil, nil, 0, ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		return nil, nil, 0, r.err
	}
	return []byte(r.body), r.hdrs, r.status, nil
}

func (f *fakeDoer) callsTo(endpoint string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.endpoint == endpoint {
			out = append(out, c)
		}
	}
	return out
}

// scripted returns a fakeDoer that replays replies per endpoint in order.
func scripted(replies map[string][]reply) *fakeDoer {
	var mu sync.Mutex
	return &fakeDoer{handle: func(endpoint string, _ map[string]any) reply {
		mu.Lock()
		defer mu.Unlock()
		queue := replies[endpoint]
		if len(queue) == 0 {
			return reply{err: errors.New("no scripted reply for " + endpoint)}
		}
		replies[endpoint] = queue[1:]
		return queue[0]
	}}
}

// fakeClock records requested sleeps and advances virtual time by them.
type fakeClock struct {
	mu     sync.Mutex
	start  time.Time
	slept  time.Duration
	sleeps []time.Duration
}

func newFakeClock() *fakeClock { return &fakeClock{start: time.Now()} }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.slept += d
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(c.slept)
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// newTestClient builds a Client over doer whose waits go through a fakeClock.
func newTestClient(t *testing.T, doer Doer, mutate ...func(*ClientConfig)) (*Client, *fakeClock) {
	t.Helper()
	cfg := ClientConfig{
		APIKey:  testKey,
		BaseURL: "https://api.test/",
		Doer:    doer,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	clock := newFakeClock()
	for _, l := range []*lifecycle{c.blocking, c.async} {
		l.sleep = clock.sleep
		l.now = clock.now
		l.ex.(*transport).sleep = clock.sleep
	}
	return c, clock
}

// captureLogs routes the default slog logger into a buffer for the test.
func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
