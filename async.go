package captchaai

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pending is a task being processed in the background by ProcessAsync.
type Pending struct {
	done chan struct{}
	res  *TaskResultResponse
	err  error
}

// Done is closed once the task reaches a terminal state or fails.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the task finishes and returns what Process would have.
func (p *Pending) Wait() (*TaskResultResponse, error) {
	<-p.done
	return p.res, p.err
}

// ProcessAsync runs the Process lifecycle in a goroutine and returns at once.
// Waits between polls only park that goroutine. Unlike Process, network
// faults are not retried: the first one is reported through Wait.
// Cancel ctx to abandon the task.
func (c *Client) ProcessAsync(ctx context.Context, task Task) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.res, p.err = c.async.process(ctx, task)
	}()
	return p
}

// ProcessAll processes tasks concurrently, at most limit at a time
// (limit <= 0 means no limit), and returns results in input order. The first
// error cancels the remaining tasks and is returned.
func (c *Client) ProcessAll(ctx context.Context, tasks []Task, limit int) ([]*TaskResultResponse, error) {
	results := make([]*TaskResultResponse, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, task := range tasks {
		g.Go(func() error {
			res, err := c.async.process(gctx, task)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
