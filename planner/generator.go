package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/planforge/coach/core"
	"github.com/planforge/coach/pkg/metrics"
	"github.com/planforge/coach/pkg/tracing"
)

// GeneratorConfig tunes the repair loop and model sampling.
type GeneratorConfig struct {
	Model              string
	Temperature        float32
	TopP               float32
	MaxTokens          int
	MaxRepairAttempts  int     // repair rounds after the initial attempt
	ExcellentScore     float64 // stop early at or above this score
	MinAcceptableScore float64 // below this, warn and retry while budget remains
}

// DefaultGeneratorConfig returns the production defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Temperature:        0.7,
		TopP:               0.95,
		MaxTokens:          4096,
		MaxRepairAttempts:  2,
		ExcellentScore:     92,
		MinAcceptableScore: 60,
	}
}

// Generator drives the generation pipeline: prompt building, the model
// call, validation, at most MaxRepairAttempts bounded repair rounds,
// quality scoring, and write-through memoization. One request drives at
// most one in-flight model call at a time; repair attempts are strictly
// sequential.
type Generator struct {
	model      core.ModelClient
	guidelines *GuidelineTable
	scorer     *Scorer
	cache      core.PlanCache // nil disables memoization
	config     GeneratorConfig
	logger     *slog.Logger
	metrics    *metrics.Metrics // nil disables instrumentation
	tracer     *tracing.Tracer  // nil disables spans
}

// NewGenerator creates a generator. cache, logger, m, and tracer may be nil.
func NewGenerator(model core.ModelClient, guidelines *GuidelineTable, config GeneratorConfig, cache core.PlanCache, logger *slog.Logger, m *metrics.Metrics, tracer *tracing.Tracer) *Generator {
	if guidelines == nil {
		guidelines = DefaultGuidelines()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		model:      model,
		guidelines: guidelines,
		scorer:     NewScorer(guidelines),
		cache:      cache,
		config:     config,
		logger:     logger,
		metrics:    m,
		tracer:     tracer,
	}
}

// Generate produces a validated, scored plan for the request, returning
// the memoized result when an identical normalized request was accepted
// within the cache TTL.
func (g *Generator) Generate(ctx context.Context, req core.WorkoutRequest) (*core.GeneratedPlan, error) {
	if g.cache == nil {
		return g.run(ctx, req)
	}
	key := Fingerprint(req)
	if g.tracer != nil {
		var span trace.Span
		ctx, span = g.tracer.StartCacheSpan(ctx, "lookup")
		defer span.End()
	}
	plan, hit, err := g.cache.GetOrRun(ctx, key, func(ctx context.Context) (*core.GeneratedPlan, error) {
		return g.run(ctx, req)
	})
	if g.metrics != nil {
		if hit {
			g.metrics.CacheHitsTotal.Inc()
		} else {
			g.metrics.CacheMissesTotal.Inc()
		}
	}
	g.logger.Info("plan cache lookup", "fingerprint", key[:12], "hit", hit)
	return plan, err
}

// run wraps the repair loop in a generation span when tracing is on.
func (g *Generator) run(ctx context.Context, req core.WorkoutRequest) (*core.GeneratedPlan, error) {
	if g.tracer == nil {
		return g.repairLoop(ctx, req)
	}
	ctx, span := g.tracer.StartGenerationSpan(ctx, req.WorkoutType, req.DurationMinutes)
	defer span.End()
	start := time.Now()
	plan, err := g.repairLoop(ctx, req)
	if err != nil {
		tracing.RecordSpanError(span, err)
	} else {
		tracing.RecordSpanSuccess(span)
	}
	tracing.RecordSpanDuration(span, time.Since(start))
	return plan, err
}

// repairLoop executes the Draft -> Validating -> {Accepted|Repairing|Rejected}
// state machine.
func (g *Generator) repairLoop(ctx context.Context, req core.WorkoutRequest) (*core.GeneratedPlan, error) {
	pc := g.guidelines.Lookup(req)
	prompt := BuildPrompt(req, pc)
	params := core.GenerationParams{
		Model:       g.config.Model,
		Temperature: g.config.Temperature,
		TopP:        g.config.TopP,
		MaxTokens:   g.config.MaxTokens,
	}

	var (
		history        []string // every violation across attempts, for the terminal error
		prevRaw        string   // previous invalid candidate, fed back as context
		prevViolations []string // violations driving the current repair round
		fallback       *core.GeneratedPlan // valid but below the quality floor
	)

	maxAttempts := g.config.MaxRepairAttempts + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		g.logger.Info("generation attempt started",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"workout_type", req.WorkoutType,
			"target_minutes", req.DurationMinutes,
		)

		mctx := ctx
		var modelSpan trace.Span
		if g.tracer != nil {
			mctx, modelSpan = g.tracer.StartModelSpan(ctx, params.Model, attempt)
		}
		completion, err := g.model.Complete(mctx, buildMessages(prompt, prevRaw, prevViolations), params)
		if modelSpan != nil {
			if err != nil {
				tracing.RecordSpanError(modelSpan, err)
			} else {
				tracing.RecordSpanSuccess(modelSpan)
			}
			modelSpan.End()
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			msg := fmt.Sprintf("attempt %d: %v", attempt+1, err)
			history = append(history, msg)
			g.logger.Warn("model call failed", "attempt", attempt, "error", err)
			prevRaw, prevViolations = "", nil
			continue
		}

		errs, warnings, plan, check := g.validate(ctx, completion, prompt, req)

		if !errs.Blocking() && plan != nil {
			score := g.scorer.Score(plan, req)
			if errs.Duration != "" {
				warnings = append(warnings, errs.Duration)
			}

			if score.Overall < g.config.MinAcceptableScore {
				g.logger.Warn("plan quality below acceptable threshold",
					"attempt", attempt, "score", score.Overall, "grade", score.Grade)
				warnings = append(warnings, fmt.Sprintf("quality score %.1f below the %.0f threshold", score.Overall, g.config.MinAcceptableScore))
				candidate := g.buildResult(req, prompt, *plan, score, check, warnings, attempt, completion.Model)
				if attempt < maxAttempts-1 {
					if fallback == nil {
						fallback = candidate
					}
					history = append(history, fmt.Sprintf("attempt %d: quality score %.1f below threshold", attempt+1, score.Overall))
					prevRaw = completion.Raw
					prevViolations = qualityFeedback(score)
					continue
				}
				return g.accept(candidate), nil
			}

			if score.Overall >= g.config.ExcellentScore {
				g.logger.Info("plan accepted early on excellent score",
					"attempt", attempt, "score", score.Overall)
			}
			return g.accept(g.buildResult(req, prompt, *plan, score, check, warnings, attempt, completion.Model)), nil
		}

		blocking := errs.All()
		if g.metrics != nil {
			if len(errs.Schema) > 0 {
				g.metrics.ValidationFailures.WithLabelValues("schema").Inc()
			}
			if len(errs.Rules) > 0 {
				g.metrics.ValidationFailures.WithLabelValues("rules").Inc()
			}
		}
		g.logger.Warn("candidate failed validation",
			"attempt", attempt,
			"schema_violations", len(errs.Schema),
			"rule_violations", len(errs.Rules),
			"violations", blocking,
		)
		for _, v := range blocking {
			history = append(history, fmt.Sprintf("attempt %d: %s", attempt+1, v))
		}
		prevRaw = completion.Raw
		prevViolations = append(errs.Schema, errs.Rules...)
	}

	if fallback != nil {
		g.logger.Warn("repair budget exhausted, returning best valid plan",
			"score", fallback.Metadata.Quality.Overall)
		return g.accept(fallback), nil
	}

	if g.metrics != nil {
		g.metrics.GenerationsTotal.WithLabelValues("rejected").Inc()
	}
	return nil, &core.GenerationError{Attempts: maxAttempts, Violations: history}
}

// validate runs the schema gate, then fans out the domain rule and
// duration checks over the decoded candidate.
func (g *Generator) validate(ctx context.Context, completion core.Completion, prompt Prompt, req core.WorkoutRequest) (*core.ValidationErrors, []string, *core.WorkoutPlan, DurationCheck) {
	var span trace.Span
	if g.tracer != nil {
		ctx, span = g.tracer.StartValidationSpan(ctx, "candidate")
		defer span.End()
	}

	errs := &core.ValidationErrors{}
	var warnings []string
	var plan *core.WorkoutPlan
	var check DurationCheck

	if completion.Parsed == nil {
		errs.AddSchema(completion.ParseError)
	} else {
		schemaRes := ValidateSchema(completion.Parsed, prompt.MinExercises, prompt.MaxExercises)
		warnings = schemaRes.Warnings
		for _, v := range schemaRes.Critical {
			errs.AddSchema(v)
		}
		if schemaRes.Passed() {
			decoded, derr := DecodePlan(completion.Parsed)
			if derr != nil {
				errs.AddSchema(derr.Error())
			} else {
				plan = decoded
				// Domain rules and duration are independent pure
				// checks over the same immutable candidate; fan out
				// and union their results.
				var ruleViolations []string
				eg, _ := errgroup.WithContext(ctx)
				eg.Go(func() error {
					ruleViolations = ValidateRules(plan, req)
					return nil
				})
				eg.Go(func() error {
					check = AdjustDuration(plan, req.DurationMinutes, g.logger)
					return nil
				})
				_ = eg.Wait()
				for _, v := range ruleViolations {
					errs.AddRule(v)
				}
				if !check.Within {
					errs.Duration = check.Message
				}
			}
		}
	}

	if span != nil {
		if errs.Blocking() {
			tracing.RecordSpanError(span, errors.New(strings.Join(errs.All(), "; ")))
		} else {
			tracing.RecordSpanSuccess(span)
		}
	}
	return errs, warnings, plan, check
}

// accept records success instrumentation for the plan actually returned.
func (g *Generator) accept(plan *core.GeneratedPlan) *core.GeneratedPlan {
	if g.metrics != nil {
		g.metrics.GenerationsTotal.WithLabelValues("accepted").Inc()
		g.metrics.RepairAttempts.Observe(float64(plan.Metadata.RepairAttempts))
		g.metrics.QualityScore.Observe(plan.Metadata.Quality.Overall)
		g.metrics.DurationDelta.Observe(plan.Metadata.DurationDelta)
	}
	g.logger.Info("plan accepted",
		"plan_id", plan.Metadata.PlanID,
		"repair_attempts", plan.Metadata.RepairAttempts,
		"score", plan.Metadata.Quality.Overall,
		"grade", plan.Metadata.Quality.Grade,
		"estimated_minutes", plan.Metadata.EstimatedMinutes,
		"target_minutes", plan.Metadata.TargetMinutes,
	)
	return plan
}

// buildResult assembles a candidate result with its metadata.
func (g *Generator) buildResult(req core.WorkoutRequest, prompt Prompt, plan core.WorkoutPlan, score core.QualityScore, check DurationCheck, warnings []string, attempt int, model string) *core.GeneratedPlan {
	return &core.GeneratedPlan{
		Plan: plan,
		Metadata: core.GenerationMetadata{
			PlanID:           uuid.NewString(),
			Model:            model,
			Temperature:      g.config.Temperature,
			MinExercises:     prompt.MinExercises,
			MaxExercises:     prompt.MaxExercises,
			TargetMinutes:    req.DurationMinutes,
			EstimatedMinutes: check.EstimatedMinutes,
			DurationDelta:    check.Delta,
			DurationWithin:   check.Within,
			Warnings:         warnings,
			Quality:          score,
			RepairAttempts:   attempt,
			Intensity:        req.Intensity,
			ProgressionNote:  req.ProgressionNote,
			GeneratedAt:      time.Now().UTC(),
		},
	}
}

// buildMessages produces the conversation for an attempt. A repair round
// restates the original instructions, replays the previous invalid
// candidate as assistant context, and appends the bulleted violations.
func buildMessages(prompt Prompt, prevRaw string, violations []string) []core.Message {
	messages := []core.Message{
		{Role: "system", Content: prompt.System},
		{Role: "user", Content: prompt.User},
	}
	if prevRaw == "" || len(violations) == 0 {
		return messages
	}
	var b strings.Builder
	b.WriteString("Your previous response violated the following requirements:\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- %s\n", v)
	}
	b.WriteString("\nProduce a corrected plan that fixes every violation above while still satisfying all of the original instructions. Respond with the complete JSON object only.")
	return append(messages,
		core.Message{Role: "assistant", Content: prevRaw},
		core.Message{Role: "user", Content: b.String()},
	)
}

// qualityFeedback turns the weakest sub-scores into repair bullets.
func qualityFeedback(score core.QualityScore) []string {
	var feedback []string
	if score.Safety < 70 {
		feedback = append(feedback, "add at least two safety tips and two form tips to every exercise, and keep rest periods appropriate to the movement")
	}
	if score.Programming < 70 {
		feedback = append(feedback, "order compound exercises before isolation work and keep set counts within the prescribed range")
	}
	if score.Completeness < 70 {
		feedback = append(feedback, "give every exercise a full description, muscle group tags, and complete the workout summary")
	}
	if score.Personalization < 70 {
		feedback = append(feedback, "match the exercise count to the target duration and respect the available equipment")
	}
	if len(feedback) == 0 {
		feedback = append(feedback, fmt.Sprintf("raise the overall plan quality (currently %.0f/100): richer coaching detail, tighter programming", score.Overall))
	}
	return feedback
}
