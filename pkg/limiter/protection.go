package limiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ProtectionConfig tunes the stacked protections for one model endpoint.
type ProtectionConfig struct {
	Name         string
	MaxRPM       int
	Retry        *RetryConfig
	BreakerReset time.Duration
}

// DefaultProtectionConfig returns sane defaults for a single external
// model endpoint.
func DefaultProtectionConfig(name string) *ProtectionConfig {
	return &ProtectionConfig{
		Name:         name,
		MaxRPM:       60,
		Retry:        DefaultRetryConfig(),
		BreakerReset: 30 * time.Second,
	}
}

// Protection stacks rate limiting, retry with backoff, and a circuit
// breaker around calls to one external endpoint.
type Protection struct {
	limiter *rate.Limiter
	retryer *Retryer
	breaker *gobreaker.CircuitBreaker
}

// NewProtection builds the protection stack for a model endpoint.
func NewProtection(config *ProtectionConfig, logger *slog.Logger) *Protection {
	if config == nil {
		config = DefaultProtectionConfig("model")
	}
	rpm := config.MaxRPM
	if rpm <= 0 {
		rpm = 60
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     config.BreakerReset,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			}
		},
	})
	return &Protection{
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), max(1, rpm/10)),
		retryer: NewRetryer(config.Retry),
		breaker: breaker,
	}
}

// Execute runs fn under rate limiting, the circuit breaker, and the
// retry policy, in that order.
func (p *Protection) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.retryer.Do(ctx, fn)
	})
	return err
}

// State returns the breaker state for diagnostics.
func (p *Protection) State() gobreaker.State { return p.breaker.State() }
