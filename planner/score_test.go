package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planforge/coach/core"
)

func strongExercise(name string, muscles ...string) core.Exercise {
	return core.Exercise{
		Name:         name,
		Description:  "A complete movement description with cues.",
		Sets:         3,
		Reps:         core.RepSpec{Raw: "8-12"},
		FormTips:     []string{"brace", "neutral spine", "full range"},
		SafetyTips:   []string{"warm up first", "stop on pain", "control the eccentric"},
		RestSeconds:  120,
		UsesWeight:   true,
		MuscleGroups: muscles,
		Difficulty:   "beginner",
	}
}

func strongPlan() *core.WorkoutPlan {
	return &core.WorkoutPlan{
		Exercises: []core.Exercise{
			strongExercise("Dumbbell Bench Press", "chest", "triceps"),
			strongExercise("Dumbbell Row", "back", "biceps"),
			strongExercise("Dumbbell Shoulder Press", "shoulders", "triceps"),
			strongExercise("Dumbbell Pullover", "chest", "lats"),
			strongExercise("Dumbbell Curl to Press", "biceps", "shoulders"),
		},
		Summary: core.WorkoutSummary{
			TotalVolume:  "15 sets",
			PrimaryFocus: "upper body push/pull",
			ExpectedRPE:  "7/10",
		},
	}
}

func TestScoreStrongPlan(t *testing.T) {
	scorer := NewScorer(DefaultGuidelines())
	score := scorer.Score(strongPlan(), hypertrophyRequest())

	require.Equal(t, 100.0, score.Overall)
	require.Equal(t, "A", score.Grade)
	require.Equal(t, 100.0, score.Safety)
	require.Equal(t, 100.0, score.Completeness)
}

func TestScoreSafetyPenalties(t *testing.T) {
	scorer := NewScorer(DefaultGuidelines())
	req := hypertrophyRequest()

	plan := strongPlan()
	plan.Exercises[0].SafetyTips = nil // -10
	plan.Exercises[0].FormTips = []string{"one"} // -5
	plan.Exercises[1].RestSeconds = 30 // compound below 120: -8

	score := scorer.Score(plan, req)
	require.Less(t, score.Safety, 100.0)
	require.Less(t, score.Overall, 100.0)
}

func TestScoreDifficultyMismatch(t *testing.T) {
	scorer := NewScorer(DefaultGuidelines())
	req := hypertrophyRequest() // beginner

	plan := strongPlan()
	for i := range plan.Exercises {
		plan.Exercises[i].Difficulty = "advanced"
	}

	mismatched := scorer.Score(plan, req)
	baseline := scorer.Score(strongPlan(), req)
	require.Less(t, mismatched.Safety, baseline.Safety)
}

func TestScoreBodyweightViolation(t *testing.T) {
	scorer := NewScorer(DefaultGuidelines())
	req := hypertrophyRequest()
	req.Equipment = []string{"bodyweight"}

	score := scorer.Score(strongPlan(), req) // every exercise uses weight
	require.Less(t, score.Personalization, 100.0)
}

func TestScoreCompletenessPenalties(t *testing.T) {
	scorer := NewScorer(DefaultGuidelines())
	req := hypertrophyRequest()

	plan := strongPlan()
	plan.Summary.ExpectedRPE = "" // -10
	plan.Exercises[0].Description = "short" // -8
	plan.Exercises[1].MuscleGroups = nil // -5

	score := scorer.Score(plan, req)
	require.InDelta(t, 77.0, score.Completeness, 0.1)
}

func TestScoreFullBodyVariety(t *testing.T) {
	scorer := NewScorer(DefaultGuidelines())
	req := hypertrophyRequest()
	req.WorkoutType = "full body"

	narrow := strongPlan()
	for i := range narrow.Exercises {
		narrow.Exercises[i].MuscleGroups = []string{"chest"}
	}

	score := scorer.Score(narrow, req)
	require.LessOrEqual(t, score.Programming, 85.0)
}

func TestScoreClampedToRange(t *testing.T) {
	scorer := NewScorer(DefaultGuidelines())
	req := hypertrophyRequest()
	req.Equipment = nil // bodyweight only

	awful := &core.WorkoutPlan{Exercises: []core.Exercise{
		{Name: "Mystery", Sets: 10, UsesWeight: true, Difficulty: "expert"},
		{Name: "Mystery 2", Sets: 10, UsesWeight: true, Difficulty: "expert"},
	}}

	score := scorer.Score(awful, req)
	require.GreaterOrEqual(t, score.Overall, 0.0)
	require.LessOrEqual(t, score.Overall, 100.0)
	require.Equal(t, "F", score.Grade)
}

func TestLetterGrade(t *testing.T) {
	require.Equal(t, "A", letterGrade(95))
	require.Equal(t, "B", letterGrade(85))
	require.Equal(t, "C", letterGrade(75))
	require.Equal(t, "D", letterGrade(65))
	require.Equal(t, "F", letterGrade(40))
}

func TestKindOf(t *testing.T) {
	require.Equal(t, kindWarmup, kindOf(core.Exercise{Name: "Arm Circle Warm-Up"}))
	require.Equal(t, kindIsometric, kindOf(core.Exercise{Name: "Plank"}))
	require.Equal(t, kindCompound, kindOf(core.Exercise{Name: "Back Squat"}))
	require.Equal(t, kindCompound, kindOf(core.Exercise{Name: "Mystery", MuscleGroups: []string{"a", "b"}}))
	require.Equal(t, kindIsolation, kindOf(core.Exercise{Name: "Bicep Curl"}))
}
