package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planforge/coach/core"
)

func exercise(name string) core.Exercise {
	return core.Exercise{
		Name:        name,
		Sets:        3,
		Reps:        core.RepSpec{Raw: "8-12"},
		RestSeconds: 60,
	}
}

func planOf(names ...string) *core.WorkoutPlan {
	plan := &core.WorkoutPlan{}
	for _, n := range names {
		plan.Exercises = append(plan.Exercises, exercise(n))
	}
	return plan
}

func TestValidateRulesPasses(t *testing.T) {
	req := core.WorkoutRequest{
		Equipment:   []string{"dumbbells"},
		WorkoutType: "upper body",
	}
	plan := planOf("Dumbbell Bench Press", "Push-Up", "Plank")
	require.Empty(t, ValidateRules(plan, req))
}

func TestValidateRulesEquipmentStrict(t *testing.T) {
	req := core.WorkoutRequest{
		Equipment:   []string{"bodyweight"},
		WorkoutType: "upper body",
	}
	plan := planOf("Cable Chest Press")

	violations := ValidateRules(plan, req)
	require.Len(t, violations, 1)
	require.Contains(t, violations[0], `requires equipment "cable"`)
}

func TestValidateRulesEquipmentSubstringMatch(t *testing.T) {
	// "adjustable dumbbells" satisfies a dumbbell exercise.
	req := core.WorkoutRequest{
		Equipment:   []string{"adjustable dumbbells"},
		WorkoutType: "upper body",
	}
	require.Empty(t, ValidateRules(planOf("Dumbbell Row"), req))
}

func TestValidateRulesInjuryContraindication(t *testing.T) {
	req := core.WorkoutRequest{
		Injuries:    []string{"left knee pain"},
		WorkoutType: "lower body",
	}
	plan := planOf("Jump Squat")

	violations := ValidateRules(plan, req)
	require.NotEmpty(t, violations)

	var found bool
	for _, v := range violations {
		if strings.Contains(v, "contraindicated for a knee injury") {
			found = true
		}
	}
	require.True(t, found, "violations: %v", violations)
}

func TestValidateRulesTypeExclusion(t *testing.T) {
	req := core.WorkoutRequest{WorkoutType: "upper body"}
	violations := ValidateRules(planOf("Goblet Squat"), req)
	require.Len(t, violations, 1, "violations: %v", violations)
	require.Contains(t, violations[0], `does not match workout type "upper body"`)

	req = core.WorkoutRequest{WorkoutType: "lower body"}
	violations = ValidateRules(planOf("Pull-Up"), req)
	require.Len(t, violations, 1)
	require.Contains(t, violations[0], "does not match workout type")
}

func TestValidateRulesRepsNeedDigits(t *testing.T) {
	req := core.WorkoutRequest{WorkoutType: "full body"}
	plan := planOf("Push-Up")
	plan.Exercises[0].Reps = core.RepSpec{Raw: "to failure"}

	violations := ValidateRules(plan, req)
	require.Len(t, violations, 1)
	require.Contains(t, violations[0], "no digits")
}

func TestValidateRulesDeterministicOrder(t *testing.T) {
	req := core.WorkoutRequest{
		Injuries:    []string{"knee"},
		WorkoutType: "upper body",
	}
	plan := planOf("Barbell Squat", "Push-Up")

	first := ValidateRules(plan, req)
	for i := 0; i < 3; i++ {
		require.Equal(t, first, ValidateRules(plan, req))
	}
	// Plan order first, then check order within an exercise.
	require.Contains(t, first[0], "does not match workout type")
	require.Contains(t, first[1], "requires equipment")
	require.Contains(t, first[2], "contraindicated")
}

func TestLookupInjuryRule(t *testing.T) {
	key, rule := lookupInjuryRule("Chronic Shoulder Impingement")
	require.Equal(t, "shoulder", key)
	require.NotEmpty(t, rule.Avoid)
	require.NotEmpty(t, rule.Instead)

	key, _ = lookupInjuryRule("tennis elbow")
	require.Equal(t, "elbow", key)

	key, _ = lookupInjuryRule("mystery ailment")
	require.Equal(t, "", key)
}

func TestWellFormedReps(t *testing.T) {
	for _, ok := range []string{"10", "8-12", "45s", "30-45s", " 12 "} {
		require.True(t, WellFormedReps(ok), "%q should be well-formed", ok)
	}
	for _, bad := range []string{"", "a few", "8—12", "12s-30s", "-5", "10.5"} {
		require.False(t, WellFormedReps(bad), "%q should be rejected", bad)
	}
}
