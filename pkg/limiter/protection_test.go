package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func testProtection(t *testing.T) *Protection {
	t.Helper()
	return NewProtection(&ProtectionConfig{
		Name:         "test",
		MaxRPM:       6000,
		Retry:        fastRetryConfig(1),
		BreakerReset: time.Second,
	}, nil)
}

func TestProtectionExecuteSuccess(t *testing.T) {
	p := testProtection(t)

	calls := 0
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if p.State() != gobreaker.StateClosed {
		t.Errorf("breaker should stay closed, got %s", p.State())
	}
}

func TestProtectionExecuteRetriesTransient(t *testing.T) {
	p := testProtection(t)

	calls := 0
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &TransientError{StatusCode: 503, Err: errors.New("blip")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestProtectionBreakerOpens(t *testing.T) {
	p := testProtection(t)

	boom := errors.New("permanent failure")
	for i := 0; i < 5; i++ {
		_ = p.Execute(context.Background(), func(ctx context.Context) error {
			return boom
		})
	}

	if p.State() != gobreaker.StateOpen {
		t.Fatalf("breaker should open after repeated failures, got %s", p.State())
	}

	err := p.Execute(context.Background(), func(ctx context.Context) error {
		t.Error("calls must be short-circuited while the breaker is open")
		return nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestProtectionHonorsContext(t *testing.T) {
	p := testProtection(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Execute(ctx, func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
}
