package wallet

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryPolicy controls how conflicting or transiently failing mutations are
// re-run. Delays grow exponentially from BaseDelay up to MaxDelay, with
// full jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	BaseDelay:   10 * time.Millisecond,
	MaxDelay:    200 * time.Millisecond,
}

// NoRetry runs every operation exactly once.
var NoRetry = RetryPolicy{MaxAttempts: 1}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}

	d := p.BaseDelay << (attempt - 1)
	if d <= 0 || (p.MaxDelay > 0 && d > p.MaxDelay) {
		d = p.MaxDelay
	}

	if d <= 0 {
		return 0
	}

	return rand.N(d) + 1
}

// run calls fn until it succeeds, returns a non-retryable error, or the
// attempts are used up. The last error is returned.
func (p RetryPolicy) run(ctx context.Context, fn func(attempt int) (retry bool, err error)) error {
	attempts := max(p.MaxAttempts, 1)

	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		var retry bool

		retry, err = fn(attempt)
		if err == nil || !retry || attempt == attempts {
			return err
		}

		timer := time.NewTimer(p.delay(attempt))

		select {
		case <-ctx.Done():
			timer.Stop()

			return fmt.Errorf("%w (last error: %w)", ctx.Err(), err)
		case <-timer.C:
		}
	}

	return err
}
