// Package llm adapts an OpenAI-compatible chat completion API to the
// core.ModelClient port. It is the only component in the repository with
// real I/O and non-determinism: everything it returns is untrusted until
// it passes validation.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/planforge/coach/core"
	"github.com/planforge/coach/pkg/limiter"
	"github.com/planforge/coach/pkg/metrics"
	"github.com/planforge/coach/pkg/tokens"
)

// ErrEmptyResponse is returned when the model produced no content. It is
// fatal for the attempt.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Config holds the adapter configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	CallTimeout time.Duration // hard wall-clock cap per call, must be below the caller's budget
	MaxRPM      int
	Retry       *limiter.RetryConfig
	Encoding    string // tiktoken encoding name for prompt accounting
}

// DefaultConfig returns adapter defaults for the primary model.
func DefaultConfig() Config {
	return Config{
		Model:       openai.GPT4oMini,
		CallTimeout: 45 * time.Second,
		MaxRPM:      60,
		Encoding:    "cl100k_base",
	}
}

// Client is the OpenAI-backed model client.
type Client struct {
	api        *openai.Client
	config     Config
	protection *limiter.Protection
	counter    tokens.Counter
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a model client. logger and m may be nil.
func NewClient(config Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultConfig().CallTimeout
	}
	if config.Encoding == "" {
		config.Encoding = DefaultConfig().Encoding
	}
	if logger == nil {
		logger = slog.Default()
	}

	apiConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		apiConfig.BaseURL = config.BaseURL
	}

	protection := limiter.NewProtection(&limiter.ProtectionConfig{
		Name:         "model-" + config.Model,
		MaxRPM:       config.MaxRPM,
		Retry:        config.Retry,
		BreakerReset: 30 * time.Second,
	}, logger)

	return &Client{
		api:        openai.NewClientWithConfig(apiConfig),
		config:     config,
		protection: protection,
		counter:    tokens.NewCounter(config.Encoding),
		logger:     logger,
		metrics:    m,
	}
}

// Complete sends the conversation under a JSON response-format
// constraint and reduces every non-exceptional failure to "no parsed
// object" so the repair controller can branch without exception-driven
// control flow. A returned error means the attempt is unusable: empty
// response, retries exhausted, or the call timed out.
func (c *Client) Complete(ctx context.Context, messages []core.Message, params core.GenerationParams) (core.Completion, error) {
	model := params.Model
	if model == "" {
		model = c.config.Model
	}

	c.logPromptSize(messages, params)

	request := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(messages),
		Temperature: params.Temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	var response openai.ChatCompletionResponse
	err := c.protection.Execute(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
		defer cancel()
		var callErr error
		response, callErr = c.api.CreateChatCompletion(callCtx, request)
		return classify(ctx, callErr)
	})
	elapsed := time.Since(start)

	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveModelCall(model, "error", elapsed)
		}
		return core.Completion{}, fmt.Errorf("model call failed: %w", err)
	}
	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		if c.metrics != nil {
			c.metrics.ObserveModelCall(model, "error", elapsed)
		}
		return core.Completion{}, ErrEmptyResponse
	}

	text := response.Choices[0].Message.Content
	completion := core.Completion{Raw: text, Model: model}
	if parsed, perr := extractJSON(text); perr == nil {
		completion.Parsed = parsed
		if c.metrics != nil {
			c.metrics.ObserveModelCall(model, "ok", elapsed)
		}
	} else {
		completion.ParseError = "response is not valid JSON: " + perr.Error()
		if c.metrics != nil {
			c.metrics.ObserveModelCall(model, "parse_error", elapsed)
		}
	}
	return completion, nil
}

func (c *Client) logPromptSize(messages []core.Message, params core.GenerationParams) {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Content)
	}
	count, err := c.counter.Count(b.String())
	if err != nil {
		return
	}
	c.logger.Debug("prompt token count", "tokens", count, "max_tokens", params.MaxTokens)
}

func convertMessages(messages []core.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// classify maps provider errors onto the retry taxonomy: 429/5xx and
// per-call timeouts are transient; caller cancellation and everything
// else fail immediately.
func classify(callerCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if callerCtx.Err() != nil {
		return callerCtx.Err()
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && limiter.RetryableStatus(apiErr.HTTPStatusCode) {
		return &limiter.TransientError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && limiter.RetryableStatus(reqErr.HTTPStatusCode) {
		return &limiter.TransientError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &limiter.TransientError{Err: err}
	}
	return err
}

// extractJSON pulls the first complete JSON object out of the model
// text, tolerating markdown fences and surrounding prose.
func extractJSON(text string) (json.RawMessage, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, errors.New("no JSON object found")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '{':
			depth++
		case !inString && ch == '}':
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if !json.Valid([]byte(candidate)) {
					return nil, errors.New("object is malformed")
				}
				return json.RawMessage(candidate), nil
			}
		}
	}
	return nil, errors.New("unterminated JSON object")
}

var _ core.ModelClient = (*Client)(nil)
