package captchaai

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProcessAsync(t *testing.T) {
	doer := scripted(map[string][]reply{
		endpointCreateTask: {okReply(`{"errorId":false,"taskId":"abc123"}`)},
		endpointGetTaskResult: {
			okReply(`{"errorId":false,"taskId":"abc123","status":"processing"}`),
			okReply(`{"errorId":false,"taskId":"abc123","status":"ready","solution":{"text":"ab12"}}`),
		},
	})
	c, clock := newTestClient(t, doer)

	p := c.ProcessAsync(context.Background(), ImageToTextTask{Body: imageBody})
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("async task did not finish")
	}
	res, err := p.Wait()
	require.NoError(t, err)
	require.Equal(t, "ab12", res.SolutionString("text"))
	require.Equal(t, []time.Duration{DefaultPollInterval}, clock.recorded())
}

func TestProcessAsync_NoTransportRetry(t *testing.T) {
	reset := errors.New("connection reset by peer")
	doer := scripted(map[string][]reply{
		endpointCreateTask: {{err: reset}, okReply(`{"errorId":0,"taskId":"t1"}`)},
	})
	c, _ := newTestClient(t, doer)

	_, err := c.ProcessAsync(context.Background(), ImageToTextTask{Body: imageBody}).Wait()
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, reset)
	require.Len(t, doer.callsTo(endpointCreateTask), 1)
}

func TestProcessAll(t *testing.T) {
	var inflight, peak atomic.Int32
	doer := &fakeDoer{handle: func(endpoint string, payload map[string]any) reply {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)

		switch endpoint {
		case endpointCreateTask:
			task := payload["task"].(map[string]any)
			return okReply(`{"errorId":0,"taskId":"` + task["body"].(string) + `"}`)
		case endpointGetTaskResult:
			id := payload["taskId"].(string)
			return okReply(`{"errorId":0,"taskId":"` + id + `","status":"ready","solution":{"text":"` + strings.ToLower(id) + `"}}`)
		}
		return reply{status: 404}
	}}
	c, _ := newTestClient(t, doer)

	tasks := []Task{
		ImageToTextTask{Body: "QUFB"},
		ImageToTextTask{Body: "QkJC"},
		ImageToTextTask{Body: "Q0ND"},
		ImageToTextTask{Body: "RERE"},
	}
	results, err := c.ProcessAll(context.Background(), tasks, 2)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, want := range []string{"qufb", "qkjc", "q0nd", "rere"} {
		require.Equal(t, want, results[i].SolutionString("text"))
	}
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestProcessAll_FirstErrorWins(t *testing.T) {
	doer := &fakeDoer{handle: func(endpoint string, payload map[string]any) reply {
		if endpoint == endpointCreateTask {
			task := payload["task"].(map[string]any)
			if task["body"] == "QkJC" {
				return reply{status: 401}
			}
			return okReply(`{"errorId":0,"taskId":"t"}`)
		}
		return okReply(`{"errorId":0,"status":"ready"}`)
	}}
	c, _ := newTestClient(t, doer)

	_, err := c.ProcessAll(context.Background(), []Task{
		ImageToTextTask{Body: "QUFB"},
		ImageToTextTask{Body: "QkJC"},
	}, 0)
	require.ErrorIs(t, err, ErrAuth)
}
