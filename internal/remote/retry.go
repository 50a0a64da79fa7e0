package remote

import (
	"context"
	"time"
)

// RetryConfig bounds the exponential backoff applied to retryable rejections.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryConfig mirrors the engine defaults: three attempts starting at
// one second and doubling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	return c
}

// Retry runs fn until it succeeds, the rejection is non-retryable, the
// attempt budget is exhausted, or ctx is done. The sleep between attempts
// grows geometrically from BaseDelay. The last classified error is returned.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.normalized()
	delay := cfg.BaseDelay
	var last *Error
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = Classify(err)
		if !last.Retryable || attempt >= cfg.MaxAttempts {
			return last
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Classify(ctx.Err())
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}
}
