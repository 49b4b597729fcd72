package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Action is what a Policy does after a failed attempt.
type Action int

const (
	// RetryInPlace waits for the backoff and tries again.
	RetryInPlace Action = iota
	// RecoverThenRetry runs the Recover hook (no backoff) and tries again.
	RecoverThenRetry
	// GiveUp stops immediately with the attempt's error.
	GiveUp
)

func (a Action) String() string {
	switch a {
	case RetryInPlace:
		return "retry"
	case RecoverThenRetry:
		return "recover"
	default:
		return "give_up"
	}
}

// Policy runs an operation up to MaxAttempts times. Classify maps each
// failure to an Action; a nil Classify retries everything in place.
type Policy struct {
	MaxAttempts int
	Classify    func(err error) Action
	Backoff     func(attempt int) time.Duration
	// Recover repairs shared state before the next attempt. A Recover error
	// ends the run.
	Recover func(ctx context.Context, attempt int, cause error) error
	// OnFailure observes every failed attempt with the action chosen.
	OnFailure func(attempt int, err error, action Action)
	Sleep     func(ctx context.Context, d time.Duration)
}

// Run calls op with 1-based attempt numbers until it succeeds, the budget is
// spent, Classify says GiveUp, Recover fails, or ctx is done. It returns the
// number of attempts consumed and the final error.
func (p Policy) Run(ctx context.Context, op func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = op(ctx, attempt); err == nil {
			return attempt, nil
		}
		action := RetryInPlace
		if p.Classify != nil {
			action = p.Classify(err)
		}
		if attempt == maxAttempts && action != GiveUp {
			action = GiveUp
		}
		if p.OnFailure != nil {
			p.OnFailure(attempt, err, action)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, fmt.Errorf("%w (last error: %w)", ctxErr, err)
		}
		switch action {
		case GiveUp:
			return attempt, err
		case RecoverThenRetry:
			if p.Recover != nil {
				if rerr := p.Recover(ctx, attempt, err); rerr != nil {
					return attempt, fmt.Errorf("%w (after: %w)", rerr, err)
				}
			}
		default:
			if p.Backoff != nil {
				sleep(ctx, p.Backoff(attempt))
			}
		}
	}
	return maxAttempts, err
}

// Constant returns a backoff of d for every attempt.
func Constant(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// Uniform returns a backoff drawn uniformly from [lo, hi].
func Uniform(lo, hi time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return Between(lo, hi) }
}

// Between draws a duration uniformly from [lo, hi]. hi < lo returns lo.
func Between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
