// Package limiter provides the protection wrappers around model calls:
// exponential-backoff retry for transient failures, a circuit breaker,
// and request rate limiting.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// TransientError marks a failure eligible for backoff retry: rate
// limiting, 5xx responses, timeouts. Anything not wrapped in it fails
// the attempt immediately.
type TransientError struct {
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transient HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RetryableStatus reports whether an HTTP status code is transient.
func RetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// RetryConfig holds backoff parameters.
type RetryConfig struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

// DefaultRetryConfig returns the retry parameters used for model calls.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		BaseDelay:     200 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// Retryer executes functions with exponential backoff on transient
// errors. Retries are invisible to callers unless they exhaust.
type Retryer struct {
	config *RetryConfig
}

// NewRetryer creates a retryer, falling back to defaults when config is
// nil.
func NewRetryer(config *RetryConfig) *Retryer {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &Retryer{config: config}
}

// Do runs fn, retrying transient errors up to MaxRetries times with
// exponential backoff. Context cancellation stops the wait immediately.
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == r.config.MaxRetries {
			break
		}
		if !IsTransient(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay(attempt)):
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (r *Retryer) delay(attempt int) time.Duration {
	d := float64(r.config.BaseDelay) * math.Pow(r.config.BackoffFactor, float64(attempt))
	if d > float64(r.config.MaxDelay) {
		d = float64(r.config.MaxDelay)
	}
	if r.config.Jitter {
		d *= 1 + (rand.Float64()*0.5 - 0.25)
	}
	return time.Duration(d)
}
