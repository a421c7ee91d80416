package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is an explicit retry policy injected into I/O collaborators. The
// correlation core itself never retries; it is a pure in-memory computation.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy returns the policy used for provider and notification calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     20 * time.Second,
	}
}

// Do runs op under the policy. retryable decides which errors are worth
// retrying; others are returned immediately. A nil retryable retries everything.
func (p Policy) Do(ctx context.Context, op func() error, retryable func(error) bool) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx))
}
