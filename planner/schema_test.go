package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// validCandidate builds a schema-valid candidate with n exercises.
func validCandidate(n int) json.RawMessage {
	var exercises []string
	for i := 0; i < n; i++ {
		exercises = append(exercises, fmt.Sprintf(`{
			"name": "Exercise %d",
			"description": "A long enough description of the movement.",
			"sets": 3,
			"reps": "8-12",
			"formTips": ["brace the core"],
			"safetyTips": ["stop on pain"],
			"restSeconds": 60,
			"usesWeight": false,
			"muscleGroups": ["chest"],
			"difficulty": "beginner"
		}`, i))
	}
	doc := fmt.Sprintf(`{
		"exercises": [%s],
		"workoutSummary": {"totalVolume": "9 sets", "primaryFocus": "push", "expectedRPE": "7/10"}
	}`, strings.Join(exercises, ","))
	return json.RawMessage(doc)
}

func TestValidateSchemaPasses(t *testing.T) {
	res := ValidateSchema(validCandidate(4), 4, 6)
	require.True(t, res.Passed(), "violations: %v", res.Critical)
	require.Empty(t, res.Warnings)
}

func TestValidateSchemaCountBounds(t *testing.T) {
	res := ValidateSchema(validCandidate(3), 4, 6)
	require.False(t, res.Passed())
	require.Contains(t, res.Critical[0], "exercise count 3 outside required range [4,6]")

	res = ValidateSchema(validCandidate(7), 4, 6)
	require.False(t, res.Passed())
}

func TestValidateSchemaDuplicateNames(t *testing.T) {
	doc := `{
		"exercises": [
			{"name": "Push-Up", "description": "A long enough description here.", "sets": 3, "reps": "8-12",
			 "formTips": ["a"], "safetyTips": ["b"], "restSeconds": 60, "usesWeight": false,
			 "muscleGroups": ["chest"], "difficulty": "beginner"},
			{"name": "push-up", "description": "A long enough description here.", "sets": 3, "reps": "8-12",
			 "formTips": ["a"], "safetyTips": ["b"], "restSeconds": 60, "usesWeight": false,
			 "muscleGroups": ["chest"], "difficulty": "beginner"}
		],
		"workoutSummary": {"totalVolume": "6 sets", "primaryFocus": "push", "expectedRPE": "7/10"}
	}`

	res := ValidateSchema(json.RawMessage(doc), 1, 6)
	require.False(t, res.Passed())

	dups := 0
	for _, v := range res.Critical {
		if strings.Contains(v, "duplicate exercise name") {
			dups++
			require.Contains(t, v, `"push-up"`)
		}
	}
	require.Equal(t, 1, dups, "exactly one violation per duplicate occurrence")
}

func TestValidateSchemaRepsShapes(t *testing.T) {
	tests := []struct {
		reps string
		ok   bool
	}{
		{`10`, true},
		{`"8-12"`, true},
		{`"45s"`, true},
		{`"30-45s"`, true},
		{`"a few"`, false},
		{`10.5`, false},
		{`true`, false},
		{`"12-8s-"`, false},
	}

	for _, tt := range tests {
		doc := fmt.Sprintf(`{
			"exercises": [{"name": "X", "description": "A long enough description here.", "sets": 3, "reps": %s,
				"formTips": ["a"], "safetyTips": ["b"], "restSeconds": 60, "usesWeight": false,
				"muscleGroups": ["chest"], "difficulty": "beginner"}],
			"workoutSummary": {"totalVolume": "3 sets", "primaryFocus": "push", "expectedRPE": "7/10"}
		}`, tt.reps)
		res := ValidateSchema(json.RawMessage(doc), 1, 6)
		require.Equal(t, tt.ok, res.Passed(), "reps %s, violations %v", tt.reps, res.Critical)
	}
}

func TestValidateSchemaMissingFields(t *testing.T) {
	doc := `{
		"exercises": [{"name": "X", "sets": 3}],
		"workoutSummary": {"totalVolume": "3 sets", "primaryFocus": "push"}
	}`
	res := ValidateSchema(json.RawMessage(doc), 1, 6)
	require.False(t, res.Passed())

	joined := strings.Join(res.Critical, "\n")
	require.Contains(t, joined, "missing required field: description")
	require.Contains(t, joined, "missing required field: reps")
	require.Contains(t, joined, "missing required text field: expectedRPE")
}

func TestValidateSchemaShortDescriptionIsWarning(t *testing.T) {
	doc := `{
		"exercises": [{"name": "X", "description": "short", "sets": 3, "reps": "8-12",
			"formTips": ["a"], "safetyTips": ["b"], "restSeconds": 60, "usesWeight": false,
			"muscleGroups": ["chest"], "difficulty": "beginner"}],
		"workoutSummary": {"totalVolume": "3 sets", "primaryFocus": "push", "expectedRPE": "7/10"}
	}`
	res := ValidateSchema(json.RawMessage(doc), 1, 6)
	require.True(t, res.Passed(), "short descriptions never block: %v", res.Critical)
	require.Len(t, res.Warnings, 1)
}

func TestValidateSchemaNotAnObject(t *testing.T) {
	res := ValidateSchema(json.RawMessage(`[1,2,3]`), 1, 6)
	require.False(t, res.Passed())
	require.Contains(t, res.Critical[0], "not a JSON object")
}

func TestDecodePlan(t *testing.T) {
	plan, err := DecodePlan(validCandidate(4))
	require.NoError(t, err)
	require.Len(t, plan.Exercises, 4)
	require.Equal(t, "8-12", plan.Exercises[0].Reps.Raw)
	require.Equal(t, "push", plan.Summary.PrimaryFocus)
}
