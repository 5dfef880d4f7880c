package observability

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if got := GetRequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
}

func TestRequestIDMissing(t *testing.T) {
	if got := GetRequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}
}

func TestRequestIDTypedKey(t *testing.T) {
	// A foreign key with the same string value must not collide with the
	// typed context key.
	type otherKey string
	ctx := context.WithValue(context.Background(), otherKey("request_id"), "spoofed")
	if got := GetRequestIDFromContext(ctx); got != "" {
		t.Errorf("expected the typed key to be isolated, got %q", got)
	}
}
