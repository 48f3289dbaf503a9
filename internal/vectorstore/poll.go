package vectorstore

import (
	"context"
	"fmt"
	"time"
)

// PollOutcome classifies one poll attempt.
type PollOutcome int

const (
	// OutcomeInProgress means the file is still being indexed.
	OutcomeInProgress PollOutcome = iota
	// OutcomeCompleted is terminal success.
	OutcomeCompleted
	// OutcomeFailed is terminal failure with a service-reported reason.
	OutcomeFailed
	// OutcomeNotFound means the file/index association has not propagated
	// yet; retried with a shortened backoff.
	OutcomeNotFound
	// OutcomeRateLimited triggers a longer backoff before the next attempt.
	OutcomeRateLimited
)

// PollPolicy drives a polling loop without binding it to real time. Now and
// Sleep default to the clock; tests inject fakes.
type PollPolicy struct {
	Timeout  time.Duration
	Interval time.Duration
	Now      func() time.Time
	Sleep    func(time.Duration)
}

func (p PollPolicy) withDefaults() PollPolicy {
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Sleep == nil {
		p.Sleep = time.Sleep
	}
	if p.Interval <= 0 {
		p.Interval = 5 * time.Second
	}
	if p.Timeout <= 0 {
		p.Timeout = 6 * time.Minute
	}
	return p
}

// Run invokes check until it reports a terminal outcome or the timeout
// elapses. A not_found outcome backs off for half the interval, a
// rate-limit outcome for double.
func (p PollPolicy) Run(ctx context.Context, check func(ctx context.Context) (PollOutcome, error)) (bool, error) {
	p = p.withDefaults()
	deadline := p.Now().Add(p.Timeout)
	var lastOutcome PollOutcome

	for p.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		outcome, err := check(ctx)
		lastOutcome = outcome
		switch outcome {
		case OutcomeCompleted:
			return true, nil
		case OutcomeFailed:
			return false, err
		case OutcomeNotFound:
			p.Sleep(p.Interval / 2)
		case OutcomeRateLimited:
			p.Sleep(p.Interval * 2)
		case OutcomeInProgress:
			p.Sleep(p.Interval)
		}
	}
	return false, fmt.Errorf("timed out after %s waiting for indexing (last outcome %d)", p.Timeout, lastOutcome)
}
