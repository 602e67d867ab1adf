package captchaai

import (
	"fmt"
	"time"
)

// PollPolicy bounds the create/poll loop. Zero fields mean unbounded, which
// keeps polling until the task settles.
type PollPolicy struct {
	// MaxAttempts caps getTaskResult calls per task.
	MaxAttempts int `validate:"min=0"`

	// Timeout caps wall-clock time spent polling, measured from task creation.
	Timeout time.Duration `validate:"min=0"`
}

// pollBudget tracks one task's progress against a PollPolicy.
type pollBudget struct {
	policy   PollPolicy
	attempts int
	deadline time.Time
}

func (p PollPolicy) start(now time.Time) *pollBudget {
	b := &pollBudget{policy: p}
	if p.Timeout > 0 {
		b.deadline = now.Add(p.Timeout)
	}
	return b
}

// record counts one getTaskResult call.
func (b *pollBudget) record() { b.attempts++ }

// allowNext reports whether another poll may start at the given time.
func (b *pollBudget) allowNext(at time.Time) error {
	if b.policy.MaxAttempts > 0 && b.attempts >= b.policy.MaxAttempts {
		return fmt.Errorf("%w: %d", ErrPollAttempts, b.policy.MaxAttempts)
	}
	if !b.deadline.IsZero() && at.After(b.deadline) {
		return fmt.Errorf("%w after %s", ErrPollTimeout, b.policy.Timeout)
	}
	return nil
}
