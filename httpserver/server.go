// Package httpserver exposes the plan generator over HTTP.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/planforge/coach/core"
	"github.com/planforge/coach/pkg/cache"
	"github.com/planforge/coach/pkg/metrics"
	"github.com/planforge/coach/pkg/observability"
	"github.com/planforge/coach/planner"
)

const maxRequestBody = 1 << 20 // 1 MiB

// PlanGenerator is the generation pipeline the server fronts.
type PlanGenerator interface {
	Generate(ctx context.Context, req core.WorkoutRequest) (*core.GeneratedPlan, error)
}

// Server represents the HTTP server
type Server struct {
	port      string
	logger    *slog.Logger
	router    *http.ServeMux
	handler   http.Handler
	generator PlanGenerator
	store     core.PlanStore         // nil disables persistence
	quota     core.QuotaService      // nil disables quota enforcement
	planCache *cache.PlanCache       // nil disables the stats endpoint
	metrics   *metrics.Metrics       // nil disables instrumentation
	obs       *observability.Manager // nil disables spans and outcome logs
	httpSrv   *http.Server
}

// NewServer creates a new HTTP server. store, quota, planCache, m, and
// obs may be nil.
func NewServer(port string, generator PlanGenerator, store core.PlanStore, quota core.QuotaService, planCache *cache.PlanCache, m *metrics.Metrics, obs *observability.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:      port,
		logger:    logger,
		router:    http.NewServeMux(),
		generator: generator,
		store:     store,
		quota:     quota,
		planCache: planCache,
		metrics:   m,
		obs:       obs,
	}
	s.setupRoutes()
	s.handler = requestIDMiddleware(s.router)
	return s
}

// requestIDMiddleware tags every request with an ID, honoring one the
// caller already carries.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(observability.WithRequestID(r.Context(), id)))
	})
}

// setupRoutes configures all the HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	v1 := http.NewServeMux()
	v1.HandleFunc("/plans", s.handlePlans)
	v1.HandleFunc("/cache/stats", s.handleCacheStats)

	s.router.Handle("/v1/", http.StripPrefix("/v1", v1))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "port", s.port)
	s.httpSrv = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.handler
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"coach","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handlePlans handles plan generation requests
func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req core.WorkoutRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", "INVALID_JSON", http.StatusBadRequest)
		return
	}

	if msg := validateRequest(req); msg != "" {
		s.writeError(w, msg, "INVALID_REQUEST", http.StatusBadRequest)
		return
	}

	if s.quota != nil && req.UserID != "" {
		if err := s.quota.Allow(r.Context(), req.UserID); err != nil {
			if errors.Is(err, core.ErrQuotaExceeded) {
				if s.metrics != nil {
					s.metrics.QuotaRejections.Inc()
				}
				s.writeError(w, "Monthly generation quota exceeded", "QUOTA_EXCEEDED", http.StatusTooManyRequests)
				return
			}
			s.logger.Error("quota check failed", "error", err, "user_id", req.UserID)
			s.writeError(w, "Internal error", "INTERNAL", http.StatusInternalServerError)
			return
		}
	}

	ctx := r.Context()
	requestID := observability.GetRequestIDFromContext(ctx)
	if s.obs != nil {
		var span trace.Span
		ctx, span = s.obs.StartGenerationSpan(ctx, req.WorkoutType, req.DurationMinutes, requestID)
		defer span.End()
	}

	start := time.Now()
	plan, err := s.generator.Generate(ctx, req)
	if err != nil {
		if s.obs != nil {
			if _, ok := core.IsGenerationError(err); ok {
				s.obs.RecordGeneration("rejected", 0, 0, time.Since(start), requestID)
			}
		}
		s.writeGenerationError(w, r, err)
		return
	}

	if s.obs != nil {
		s.obs.RecordGeneration("accepted", plan.Metadata.RepairAttempts, plan.Metadata.Quality.Overall, time.Since(start), requestID)
	}
	s.logger.Info("plan generated",
		"plan_id", plan.Metadata.PlanID,
		"request_id", requestID,
		"score", plan.Metadata.Quality.Overall,
		"repair_attempts", plan.Metadata.RepairAttempts,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if req.UserID != "" {
		if s.store != nil {
			if err := s.store.SavePlan(r.Context(), req.UserID, planner.Fingerprint(req), plan); err != nil {
				s.logger.Warn("failed to persist plan", "error", err, "plan_id", plan.Metadata.PlanID)
			}
		}
		if s.quota != nil {
			if err := s.quota.Record(r.Context(), req.UserID, plan.Metadata.PlanID); err != nil {
				s.logger.Warn("failed to record quota usage", "error", err, "user_id", req.UserID)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(plan)
}

// writeGenerationError maps pipeline failures to sanitized HTTP errors.
func (s *Server) writeGenerationError(w http.ResponseWriter, r *http.Request, err error) {
	if genErr, ok := core.IsGenerationError(err); ok {
		// The violation history stays in the logs; callers get only the
		// generic failure text.
		s.logger.Warn("generation rejected",
			"attempts", genErr.Attempts,
			"violations", genErr.Violations,
		)
		s.writeError(w, "Could not generate a valid plan", "GENERATION_FAILED", http.StatusUnprocessableEntity)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.writeError(w, "Generation timed out", "TIMEOUT", http.StatusGatewayTimeout)
		return
	}
	s.logger.Error("generation failed", "error", err)
	s.writeError(w, "Internal error", "INTERNAL", http.StatusInternalServerError)
}

// handleCacheStats handles cache statistics requests
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.planCache == nil {
		s.writeError(w, "Cache not available", "CACHE_DISABLED", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.planCache.Stats())
}

// validateRequest checks the request fields the pipeline cannot default.
func validateRequest(req core.WorkoutRequest) string {
	switch req.Experience {
	case core.ExperienceBeginner, core.ExperienceIntermediate, core.ExperienceAdvanced:
	default:
		return "experience must be beginner, intermediate, or advanced"
	}
	if req.WorkoutType == "" {
		return "workout_type is required"
	}
	if req.DurationMinutes < 10 || req.DurationMinutes > 180 {
		return "duration_minutes must be between 10 and 180"
	}
	if req.Intensity < 0 || req.Intensity > 1 {
		return "intensity must be between 0 and 1"
	}
	return ""
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, message, code string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}
