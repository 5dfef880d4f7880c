package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/planforge/coach/pkg/logging"
	"github.com/planforge/coach/pkg/metrics"
	"github.com/planforge/coach/pkg/tracing"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Manager manages all observability components
type Manager struct {
	metrics *metrics.Metrics
	tracer  *tracing.Tracer
	logger  *logging.Logger
}

// Config holds observability configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	JaegerEndpoint string
	LogLevel       string
	LogFormat      string
}

// NewManager creates a new observability manager
func NewManager(config Config) (*Manager, error) {
	tracerConfig := tracing.Config{
		ServiceName:    config.ServiceName,
		ServiceVersion: config.ServiceVersion,
		JaegerEndpoint: config.JaegerEndpoint,
		Environment:    config.Environment,
	}

	tracer, err := tracing.NewTracer(tracerConfig)
	if err != nil {
		return nil, err
	}

	loggerConfig := logging.Config{
		Level:     config.LogLevel,
		Format:    config.LogFormat,
		Output:    "stdout",
		AddCaller: true,
		AddStack:  false,
	}

	logger, err := logging.NewLogger(loggerConfig)
	if err != nil {
		return nil, err
	}

	// Metrics register with the default registry, so they are created
	// last: a failed manager must not leave collectors behind.
	return &Manager{
		metrics: metrics.New(),
		tracer:  tracer,
		logger:  logger,
	}, nil
}

// GetMetrics returns the metrics instance
func (m *Manager) GetMetrics() *metrics.Metrics {
	return m.metrics
}

// GetTracer returns the tracer instance
func (m *Manager) GetTracer() *tracing.Tracer {
	return m.tracer
}

// GetLogger returns the logger instance
func (m *Manager) GetLogger() *logging.Logger {
	return m.logger
}

// StartGenerationSpan starts a span for a plan generation with logging
func (m *Manager) StartGenerationSpan(ctx context.Context, workoutType string, targetMinutes int, requestID string) (context.Context, trace.Span) {
	ctx, span := m.tracer.StartGenerationSpan(ctx, workoutType, targetMinutes)

	span.SetAttributes(
		attribute.String("request_id", requestID),
	)

	m.logger.WithRequestID(requestID).WithFields(map[string]interface{}{
		"workout_type":   workoutType,
		"target_minutes": targetMinutes,
		"trace_id":       tracing.GetTraceID(ctx),
	}).Info("Plan generation started")

	return ctx, span
}

// RecordGeneration logs a completed generation outcome. The pipeline
// records its own Prometheus counters at the source, so this only logs.
func (m *Manager) RecordGeneration(status string, repairAttempts int, score float64, duration time.Duration, requestID string) {
	m.logger.LogGeneration(status, repairAttempts, score, duration, requestID)
}

// Shutdown shuts down all observability components
func (m *Manager) Shutdown(ctx context.Context) error {
	if err := m.tracer.Shutdown(ctx); err != nil {
		return err
	}
	if err := m.logger.Sync(); err != nil {
		return err
	}
	return nil
}

// GetRequestIDFromContext extracts request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
