package core

import (
	"context"
	"encoding/json"
)

// Message is one turn of the model conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// GenerationParams are the sampling parameters of one model call.
type GenerationParams struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// Completion is the outcome of one model call. Parsed is nil when the
// model returned text that is not a JSON object; ParseError then carries
// the violation the repair prompt is seeded with. A non-nil error is
// reserved for fatal attempt failures (empty response, retries
// exhausted, timeout) so the controller can branch without exceptions.
type Completion struct {
	Raw        string
	Parsed     json.RawMessage
	ParseError string
	Model      string
}

type ModelClient interface {
	Complete(ctx context.Context, messages []Message, params GenerationParams) (Completion, error)
}

// PlanCache memoizes accepted plans by request fingerprint. GetOrRun
// returns the cached value on a hit within TTL; on a miss it invokes
// compute and stores the result. It does not guarantee single-flight:
// concurrent misses for the same key may both call compute.
type PlanCache interface {
	GetOrRun(ctx context.Context, key string, compute func(context.Context) (*GeneratedPlan, error)) (plan *GeneratedPlan, hit bool, err error)
}

// PlanStore persists accepted plans. It is never given a rejected result.
type PlanStore interface {
	SavePlan(ctx context.Context, userID, fingerprint string, plan *GeneratedPlan) error
}

// QuotaService is consulted before generation begins and may
// short-circuit the request. Allow returns ErrQuotaExceeded when the
// user is out of budget for the current period.
type QuotaService interface {
	Allow(ctx context.Context, userID string) error
	Record(ctx context.Context, userID, planID string) error
}
