package planner

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/planforge/coach/core"
)

var timeTokenPattern = regexp.MustCompile(`^(\d+)(?:-(\d+))?s$`)

// EstimateMinutes computes the expected total duration of a plan. For
// each exercise the work time is sets x time-per-set, where time-per-set
// comes from a parsed time token ("30s", "30-45s" averaged) or a flat
// one minute per set for rep-based exercises. Rest time is
// (sets-1) x restSeconds/60: no rest is credited after the final set.
// Deterministic: no randomness, identical input gives identical output.
func EstimateMinutes(plan *core.WorkoutPlan) float64 {
	var total float64
	for _, ex := range plan.Exercises {
		sets := float64(ex.Sets)
		if sets < 1 {
			continue
		}
		total += sets * timePerSetMinutes(ex.Reps.Raw)
		total += (sets - 1) * float64(ex.RestSeconds) / 60.0
	}
	return total
}

// timePerSetMinutes parses a time token into minutes, averaging ranges;
// anything else is assumed to take one minute per set.
func timePerSetMinutes(reps string) float64 {
	m := timeTokenPattern.FindStringSubmatch(strings.TrimSpace(reps))
	if m == nil {
		return 1.0
	}
	lo, _ := strconv.ParseFloat(m[1], 64)
	if m[2] == "" {
		return lo / 60.0
	}
	hi, _ := strconv.ParseFloat(m[2], 64)
	return (lo + hi) / 2.0 / 60.0
}

// DurationTolerance is the allowed absolute deviation in minutes:
// max(3, round(target*0.10)). The floor keeps the tolerance from
// collapsing to near-zero on very short workouts.
func DurationTolerance(targetMinutes int) int {
	tol := int(math.Round(float64(targetMinutes) * 0.10))
	if tol < 3 {
		tol = 3
	}
	return tol
}

// DurationCheck is the full diagnostic result of duration validation.
type DurationCheck struct {
	EstimatedMinutes float64
	TargetMinutes    int
	Delta            float64 // signed, estimate - target
	Tolerance        int
	Within           bool
	Message          string // non-empty when outside tolerance
}

// ValidateDuration reports pass/fail with full diagnostic detail.
func ValidateDuration(plan *core.WorkoutPlan, targetMinutes int) DurationCheck {
	estimate := EstimateMinutes(plan)
	tolerance := DurationTolerance(targetMinutes)
	delta := estimate - float64(targetMinutes)
	check := DurationCheck{
		EstimatedMinutes: estimate,
		TargetMinutes:    targetMinutes,
		Delta:            delta,
		Tolerance:        tolerance,
		Within:           math.Abs(delta) <= float64(tolerance),
	}
	if !check.Within {
		check.Message = fmt.Sprintf("estimated duration %.1f minutes is outside the %d-minute tolerance of the %d-minute target (off by %+.1f)",
			estimate, tolerance, targetMinutes, delta)
	}
	return check
}

// AdjustDuration wraps ValidateDuration but always reports success,
// logging a warning on mismatch instead of failing the attempt. The
// model's temporal judgment is trusted over mechanical truncation or
// padding; the internal pass/fail is still exposed on the returned check
// as a diagnostic.
func AdjustDuration(plan *core.WorkoutPlan, targetMinutes int, logger *slog.Logger) DurationCheck {
	check := ValidateDuration(plan, targetMinutes)
	if !check.Within && logger != nil {
		logger.Warn("plan duration outside tolerance, accepting anyway",
			"estimated_minutes", check.EstimatedMinutes,
			"target_minutes", check.TargetMinutes,
			"delta", check.Delta,
			"tolerance", check.Tolerance,
		)
	}
	return check
}
