package llm

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/planforge/coach/pkg/limiter"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"fenced without language", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"surrounding prose", `Here is your plan: {"a":1} enjoy!`, `{"a":1}`, true},
		{"nested objects", `{"a":{"b":2}}`, `{"a":{"b":2}}`, true},
		{"braces inside strings", `{"a":"{not a brace}"}`, `{"a":"{not a brace}"}`, true},
		{"escaped quotes", `{"a":"she said \"hi\""}`, `{"a":"she said \"hi\""}`, true},
		{"no object", "just some text", "", false},
		{"unterminated", `{"a":1`, "", false},
		{"malformed", `{"a":}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.input)
			if tt.ok {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if string(got) != tt.want {
					t.Errorf("expected %s, got %s", tt.want, got)
				}
			} else if err == nil {
				t.Errorf("expected failure, got %s", got)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	if classify(ctx, nil) != nil {
		t.Error("nil error stays nil")
	}

	// Retryable API statuses become transient.
	err := classify(ctx, &openai.APIError{HTTPStatusCode: 429})
	if !limiter.IsTransient(err) {
		t.Errorf("429 must be transient, got %v", err)
	}
	err = classify(ctx, &openai.APIError{HTTPStatusCode: 503})
	if !limiter.IsTransient(err) {
		t.Errorf("503 must be transient, got %v", err)
	}

	// Client errors fail immediately.
	err = classify(ctx, &openai.APIError{HTTPStatusCode: 401})
	if limiter.IsTransient(err) {
		t.Error("401 must not be retried")
	}

	// Per-call deadline is transient.
	err = classify(ctx, context.DeadlineExceeded)
	if !limiter.IsTransient(err) {
		t.Errorf("per-call timeout must be transient, got %v", err)
	}

	// Caller cancellation wins over everything.
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	err = classify(canceled, context.DeadlineExceeded)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("caller cancellation must surface, got %v", err)
	}
	if limiter.IsTransient(err) {
		t.Error("caller cancellation must not be retried")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{APIKey: "test"}, nil, nil)
	if c.config.Model != openai.GPT4oMini {
		t.Errorf("expected default model, got %s", c.config.Model)
	}
	if c.config.CallTimeout != DefaultConfig().CallTimeout {
		t.Errorf("expected default timeout, got %s", c.config.CallTimeout)
	}
}
