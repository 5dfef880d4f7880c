package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planforge/coach/core"
	"github.com/planforge/coach/httpserver"
	"github.com/planforge/coach/pkg/cache"
	"github.com/planforge/coach/pkg/llm"
	"github.com/planforge/coach/pkg/logging"
	"github.com/planforge/coach/pkg/metrics"
	"github.com/planforge/coach/pkg/observability"
	"github.com/planforge/coach/pkg/store"
	"github.com/planforge/coach/pkg/tracing"
	"github.com/planforge/coach/planner"
)

func main() {
	config := LoadConfig()

	var logger *slog.Logger
	var m *metrics.Metrics
	var tracer *tracing.Tracer
	var obs *observability.Manager
	var obsErr error

	if config.JaegerEndpoint != "" {
		manager, err := observability.NewManager(observability.Config{
			ServiceName:    "coach",
			ServiceVersion: "1.0.0",
			Environment:    config.Environment,
			JaegerEndpoint: config.JaegerEndpoint,
			LogLevel:       config.LogLevel,
			LogFormat:      "json",
		})
		if err != nil {
			obsErr = err
		} else {
			obs = manager
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := obs.Shutdown(ctx); err != nil {
					obs.GetLogger().GetSlog().Warn("observability shutdown failed", "error", err)
				}
			}()
			logger = obs.GetLogger().GetSlog()
			m = obs.GetMetrics()
			tracer = obs.GetTracer()
		}
	}

	if logger == nil {
		structured, err := logging.NewLogger(logging.Config{
			Level:  config.LogLevel,
			Format: "json",
			Output: "stdout",
		})
		if err != nil {
			log.Fatal("failed to initialize logger: ", err)
		}
		defer structured.Close()
		logger = structured.GetSlog()
		m = metrics.New()
		if obsErr != nil {
			logger.Warn("tracing unavailable, continuing without", "error", obsErr)
		}
	}

	guidelines, err := planner.LoadGuidelines(config.GuidelinesPath)
	if err != nil {
		log.Fatal("failed to load programming guidelines: ", err)
	}

	llmConfig := llm.DefaultConfig()
	llmConfig.Model = config.Model
	llmConfig.BaseURL = config.BaseURL
	llmConfig.APIKey = config.APIKey
	llmConfig.CallTimeout = config.CallTimeout
	llmConfig.MaxRPM = config.MaxRPM
	client := llm.NewClient(llmConfig, logger, m)

	planCache, err := cache.New(&cache.Config{
		MaxSize:         config.CacheSize,
		TTL:             config.CacheTTL,
		CleanupInterval: 5 * time.Minute,
	})
	if err != nil {
		log.Fatal("failed to create plan cache: ", err)
	}
	defer planCache.Close()

	sqliteStore, err := store.NewSQLiteStore(config.DBPath, config.MonthlyQuota)
	if err != nil {
		log.Fatal("failed to open plan store: ", err)
	}
	defer sqliteStore.Close()

	genConfig := planner.DefaultGeneratorConfig()
	genConfig.Model = config.Model
	genConfig.MaxRepairAttempts = config.MaxRepairs
	generator := planner.NewGenerator(client, guidelines, genConfig, planCache, logger, m, tracer)

	var quota core.QuotaService
	if config.MonthlyQuota > 0 {
		quota = sqliteStore
	}

	server := httpserver.NewServer(config.Port, generator, sqliteStore, quota, planCache, m, obs, logger)

	logger.Info("starting coach service",
		"port", config.Port,
		"model", config.Model,
		"max_repairs", config.MaxRepairs,
		"monthly_quota", config.MonthlyQuota,
		"log_level", config.LogLevel,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal("server failed: ", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
}
