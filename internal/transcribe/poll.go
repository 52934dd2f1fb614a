package transcribe

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollExhausted is returned when a job reaches neither terminal state
// within the policy's attempt budget. The collaborator offers no
// cancellation, so an exhausted job is abandoned, not aborted.
var ErrPollExhausted = errors.New("transcribe: job did not reach a terminal state")

// PollPolicy bounds the wait for a transcription job. The zero value is not
// usable; construct with DefaultPollPolicy or explicit fields.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollPolicy matches the collaborator's typical turnaround for short
// radio clips: up to 5 minutes at 3-second spacing.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: 3 * time.Second, MaxAttempts: 100}
}

// WaitForTerminal polls the job until COMPLETED or FAILED, waiting
// p.Interval between lookups. It returns ErrPollExhausted after
// p.MaxAttempts non-terminal answers, and the context error if the context
// ends first.
func WaitForTerminal(ctx context.Context, c Client, jobName string, p PollPolicy) (JobState, error) {
	if p.MaxAttempts <= 0 {
		return JobState{}, fmt.Errorf("transcribe: poll policy needs a positive attempt budget")
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return JobState{}, ctx.Err()
		case <-timer.C:
		}

		state, err := c.Lookup(ctx, jobName)
		if err != nil {
			return JobState{}, err
		}
		if state.Status.Terminal() {
			return state, nil
		}

		timer.Reset(p.Interval)
	}

	return JobState{}, fmt.Errorf("%w after %d attempts: %s", ErrPollExhausted, p.MaxAttempts, jobName)
}
