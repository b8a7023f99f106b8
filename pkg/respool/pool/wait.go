package pool

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	rperrors "github.com/randalmurphal/respool/pkg/respool/errors"
)

// waitConfig configures AcquireWait.
type waitConfig struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	maxWait         time.Duration
}

// defaultWait is the standard wait configuration.
var defaultWait = waitConfig{
	initialInterval: 5 * time.Millisecond,
	maxInterval:     250 * time.Millisecond,
	maxWait:         30 * time.Second,
}

// WaitOption configures AcquireWait.
type WaitOption func(*waitConfig)

// WithInitialInterval sets the first retry delay.
func WithInitialInterval(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		if d > 0 {
			c.initialInterval = d
		}
	}
}

// WithMaxInterval caps the delay between retries.
func WithMaxInterval(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		if d > 0 {
			c.maxInterval = d
		}
	}
}

// WithMaxWait bounds the total time spent waiting.
// Default: 30s
func WithMaxWait(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

// AcquireWait acquires from p, retrying with exponential backoff while the
// pool is exhausted. It stops at the first other error and returns it.
// When ctx is done it returns the context error; when the max wait elapses
// it returns the last ErrPoolExhausted.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
//	defer cancel()
//	conn, err := pool.AcquireWait(ctx, conns)
func AcquireWait[V comparable](ctx context.Context, p *Pool[V], opts ...WaitOption) (V, error) {
	cfg := defaultWait
	for _, opt := range opts {
		opt(&cfg)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.initialInterval
	b.MaxInterval = cfg.maxInterval

	return backoff.Retry(ctx, func() (V, error) {
		v, err := p.AcquireContext(ctx)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, rperrors.ErrPoolExhausted) {
			return v, err
		}
		return v, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(cfg.maxWait),
	)
}
