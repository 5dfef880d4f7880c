package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planforge/coach/core"
)

func TestNormalizeGoal(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"strength", GoalStrength},
		{"get strong", GoalStrength},
		{"build muscle", GoalHypertrophy},
		{"lose weight", GoalFatLoss},
		{"improve stamina", GoalEndurance},
		{"general fitness", GoalGeneralFitness},
		{"learn the violin", GoalGeneralFitness},
		{"", GoalGeneralFitness},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NormalizeGoal(tt.input), "goal %q", tt.input)
	}
}

func TestLookupDegradesGracefully(t *testing.T) {
	table := DefaultGuidelines()

	pc := table.Lookup(core.WorkoutRequest{
		Experience: core.ExperienceAdvanced,
		Goals:      []string{"strength"},
	})
	require.Equal(t, "very heavy", pc.Intensity)

	// Unknown experience falls back to beginner ranges.
	pc = table.Lookup(core.WorkoutRequest{
		Experience: "ninja",
		Goals:      []string{"strength"},
	})
	require.Equal(t, table.Entries[GoalStrength][core.ExperienceBeginner], pc)

	// No goals falls back to general fitness.
	pc = table.Lookup(core.WorkoutRequest{Experience: core.ExperienceBeginner})
	require.Equal(t, table.Entries[GoalGeneralFitness][core.ExperienceBeginner], pc)
}

func TestDefaultGuidelinesValidate(t *testing.T) {
	require.NoError(t, DefaultGuidelines().Validate())
}

func TestValidateRejectsBadTables(t *testing.T) {
	empty := &GuidelineTable{}
	require.Error(t, empty.Validate())

	unknownGoal := &GuidelineTable{Entries: map[string]map[core.Experience]core.ProgrammingContext{
		"yoga": {core.ExperienceBeginner: {SetsMin: 2, SetsMax: 3, RepsMin: 8, RepsMax: 12, RestMinSecs: 30, RestMaxSecs: 60}},
	}}
	require.ErrorContains(t, unknownGoal.Validate(), "unknown goal category")

	badRange := &GuidelineTable{Entries: map[string]map[core.Experience]core.ProgrammingContext{
		GoalStrength: {core.ExperienceBeginner: {SetsMin: 4, SetsMax: 2, RepsMin: 4, RepsMax: 6, RestMinSecs: 60, RestMaxSecs: 90}},
	}}
	require.ErrorContains(t, badRange.Validate(), "invalid sets range")
}

func TestLoadGuidelines(t *testing.T) {
	// Empty and missing paths fall back to the defaults.
	table, err := LoadGuidelines("")
	require.NoError(t, err)
	require.NoError(t, table.Validate())

	table, err = LoadGuidelines(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.NoError(t, table.Validate())

	// A valid YAML file overrides the defaults.
	path := filepath.Join(t.TempDir(), "guidelines.yaml")
	yaml := `entries:
  strength:
    beginner:
      sets_min: 3
      sets_max: 4
      reps_min: 4
      reps_max: 6
      rest_min_secs: 120
      rest_max_secs: 180
      intensity: heavy
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	table, err = LoadGuidelines(path)
	require.NoError(t, err)
	pc := table.Entries[GoalStrength][core.ExperienceBeginner]
	require.Equal(t, 3, pc.SetsMin)
	require.Equal(t, "heavy", pc.Intensity)
}
