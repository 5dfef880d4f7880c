package planner

import (
	"math"
	"strings"

	"github.com/planforge/coach/core"
)

// Composite weights. Safety carries the largest share.
const (
	weightSafety          = 0.40
	weightProgramming     = 0.30
	weightCompleteness    = 0.20
	weightPersonalization = 0.10
)

// Rest-period minimums in seconds by exercise kind, and the global cap.
const (
	restMinCompound  = 120
	restMinIsolation = 60
	restMinWarmup    = 15
	restMinIsometric = 45
	restMaxAny       = 300
)

type exerciseKind int

const (
	kindIsolation exerciseKind = iota
	kindCompound
	kindWarmup
	kindIsometric
)

// Scorer computes the advisory quality score of a validated plan. It
// never gates acceptance on its own; the generator consults the
// configured thresholds.
type Scorer struct {
	guidelines *GuidelineTable
}

// NewScorer creates a scorer backed by a guideline table.
func NewScorer(guidelines *GuidelineTable) *Scorer {
	return &Scorer{guidelines: guidelines}
}

// Score computes the weighted composite quality of a plan for a request.
// Each sub-score is independently clamped to [0,100].
func (s *Scorer) Score(plan *core.WorkoutPlan, req core.WorkoutRequest) core.QualityScore {
	pc := s.guidelines.Lookup(req)

	completeness := clampScore(s.scoreCompleteness(plan))
	safety := clampScore(s.scoreSafety(plan, req))
	programming := clampScore(s.scoreProgramming(plan, req, pc))
	personalization := clampScore(s.scorePersonalization(plan, req, pc))

	overall := weightSafety*safety +
		weightProgramming*programming +
		weightCompleteness*completeness +
		weightPersonalization*personalization
	overall = clampScore(overall)

	return core.QualityScore{
		Overall:         round1(overall),
		Grade:           letterGrade(overall),
		Completeness:    round1(completeness),
		Safety:          round1(safety),
		Programming:     round1(programming),
		Personalization: round1(personalization),
	}
}

func (s *Scorer) scoreCompleteness(plan *core.WorkoutPlan) float64 {
	score := 100.0
	for _, ex := range plan.Exercises {
		if len(ex.Description) < shortDescriptionChars {
			score -= 8
		}
		if len(ex.FormTips) == 0 {
			score -= 6
		}
		if len(ex.SafetyTips) == 0 {
			score -= 6
		}
		if len(ex.MuscleGroups) == 0 {
			score -= 5
		}
	}
	for _, field := range []string{plan.Summary.TotalVolume, plan.Summary.PrimaryFocus, plan.Summary.ExpectedRPE} {
		if strings.TrimSpace(field) == "" {
			score -= 10
		}
	}
	return score
}

func (s *Scorer) scoreSafety(plan *core.WorkoutPlan, req core.WorkoutRequest) float64 {
	score := 100.0
	hasInjuries := len(req.Injuries) > 0
	for _, ex := range plan.Exercises {
		if len(ex.SafetyTips) == 0 {
			score -= 10
		} else if len(ex.SafetyTips) == 1 {
			score -= 4
		}
		if len(ex.FormTips) < 2 {
			score -= 5
		}
		if difficultyMismatch(ex.Difficulty, req.Experience) {
			score -= 8
		}
		if min := restMinimum(kindOf(ex)); ex.RestSeconds < min {
			score -= 8
		}
		if ex.RestSeconds > restMaxAny {
			score -= 5
		}
		// Verbose guidance earns a small bonus, more when the user has
		// stated injuries.
		if len(ex.SafetyTips) >= 3 && len(ex.FormTips) >= 3 {
			if hasInjuries {
				score += 4
			} else {
				score += 2
			}
		}
	}
	return score
}

func (s *Scorer) scoreProgramming(plan *core.WorkoutPlan, req core.WorkoutRequest, pc core.ProgrammingContext) float64 {
	score := 100.0
	seenIsolation := false
	muscles := make(map[string]bool)
	for _, ex := range plan.Exercises {
		if ex.Sets < pc.SetsMin-1 || ex.Sets > pc.SetsMax+1 {
			score -= 8
		}
		if strings.TrimSpace(ex.Reps.Raw) == "" {
			score -= 10
		}
		kind := kindOf(ex)
		if kind == kindIsolation {
			seenIsolation = true
		}
		if kind == kindCompound && seenIsolation {
			score -= 5
		}
		for _, mg := range ex.MuscleGroups {
			muscles[strings.ToLower(strings.TrimSpace(mg))] = true
		}
	}
	if strings.Contains(strings.ToLower(req.WorkoutType), "full body") && len(muscles) < 4 {
		score -= 15
	}
	return score
}

func (s *Scorer) scorePersonalization(plan *core.WorkoutPlan, req core.WorkoutRequest, pc core.ProgrammingContext) float64 {
	score := 100.0

	minCount, maxCount := exerciseBounds(req, pc)
	if n := len(plan.Exercises); n < minCount || n > maxCount {
		score -= 15
	}

	if bodyweightOnly(req.Equipment) {
		for _, ex := range plan.Exercises {
			if ex.UsesWeight {
				score -= 12
			}
		}
	}

	wt := strings.ToLower(req.WorkoutType)
	if strings.Contains(wt, "upper") || strings.Contains(wt, "lower") {
		wantLower := strings.Contains(wt, "lower")
		for _, ex := range plan.Exercises {
			for _, mg := range ex.MuscleGroups {
				if isLowerBodyMuscle(mg) != wantLower {
					score -= 10
					break
				}
			}
		}
	}
	return score
}

func bodyweightOnly(equipment []string) bool {
	if len(equipment) == 0 {
		return true
	}
	for _, e := range equipment {
		if !strings.Contains(strings.ToLower(e), "bodyweight") {
			return false
		}
	}
	return true
}

var lowerBodyMuscles = []string{"quad", "hamstring", "glute", "calf", "calves", "legs", "hip"}

func isLowerBodyMuscle(muscle string) bool {
	m := strings.ToLower(muscle)
	for _, token := range lowerBodyMuscles {
		if strings.Contains(m, token) {
			return true
		}
	}
	return false
}

var compoundTokens = []string{"squat", "deadlift", "press", "row", "pull-up", "pullup", "clean", "thruster"}
var warmupTokens = []string{"warm", "jumping jack", "arm circle", "march", "mobility"}
var isometricTokens = []string{"plank", "hold", "wall sit", "iso"}

func kindOf(ex core.Exercise) exerciseKind {
	name := strings.ToLower(ex.Name)
	for _, t := range warmupTokens {
		if strings.Contains(name, t) {
			return kindWarmup
		}
	}
	for _, t := range isometricTokens {
		if strings.Contains(name, t) {
			return kindIsometric
		}
	}
	if len(ex.MuscleGroups) >= 2 {
		return kindCompound
	}
	for _, t := range compoundTokens {
		if strings.Contains(name, t) {
			return kindCompound
		}
	}
	return kindIsolation
}

func restMinimum(kind exerciseKind) int {
	switch kind {
	case kindCompound:
		return restMinCompound
	case kindWarmup:
		return restMinWarmup
	case kindIsometric:
		return restMinIsometric
	default:
		return restMinIsolation
	}
}

func difficultyMismatch(difficulty string, exp core.Experience) bool {
	d := strings.ToLower(difficulty)
	switch exp {
	case core.ExperienceBeginner:
		return strings.Contains(d, "advanced") || strings.Contains(d, "expert")
	case core.ExperienceAdvanced:
		return strings.Contains(d, "beginner")
	default:
		return false
	}
}

func letterGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
