package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps OpenTelemetry tracer
type Tracer struct {
	tracer trace.Tracer
}

// Config holds tracing configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	JaegerEndpoint string
	Environment    string
}

// NewTracer creates a new OpenTelemetry tracer
func NewTracer(config Config) (*Tracer, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.JaegerEndpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		tracer: otel.Tracer(config.ServiceName),
	}, nil
}

// StartGenerationSpan starts a span for one plan generation
func (t *Tracer) StartGenerationSpan(ctx context.Context, workoutType string, targetMinutes int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("plan.workout_type", workoutType),
		attribute.Int("plan.target_minutes", targetMinutes),
	}

	return t.tracer.Start(ctx, "plan.generate", trace.WithAttributes(attrs...))
}

// StartModelSpan starts a span for a model call
func (t *Tracer) StartModelSpan(ctx context.Context, model string, attempt int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("llm.model", model),
		attribute.Int("llm.attempt", attempt),
		attribute.String("llm.operation", "chat_completion"),
	}

	return t.tracer.Start(ctx, "llm.request", trace.WithAttributes(attrs...))
}

// StartCacheSpan starts a span for cache operations
func (t *Tracer) StartCacheSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.operation", operation),
	}

	return t.tracer.Start(ctx, "cache.operation", trace.WithAttributes(attrs...))
}

// StartValidationSpan starts a span for a validation stage
func (t *Tracer) StartValidationSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("validation.stage", stage),
	}

	return t.tracer.Start(ctx, "plan.validate", trace.WithAttributes(attrs...))
}

// RecordSpanError records an error in a span
func RecordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSpanSuccess records success in a span
func RecordSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// RecordSpanDuration records duration in a span
func RecordSpanDuration(span trace.Span, duration time.Duration) {
	span.SetAttributes(attribute.Float64("duration_ms", float64(duration.Nanoseconds())/1e6))
}

// Shutdown shuts down the tracer
func (t *Tracer) Shutdown(ctx context.Context) error {
	return otel.GetTracerProvider().(interface{ Shutdown(context.Context) error }).Shutdown(ctx)
}

// GetTraceID extracts trace ID from context
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
