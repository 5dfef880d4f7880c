package planner

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planforge/coach/core"
)

func timedExercise(reps string, sets, restSecs int) core.Exercise {
	return core.Exercise{
		Name:        "Exercise",
		Sets:        sets,
		Reps:        core.RepSpec{Raw: reps},
		RestSeconds: restSecs,
	}
}

func TestEstimateMinutes(t *testing.T) {
	tests := []struct {
		name string
		ex   core.Exercise
		want float64
	}{
		{"rep-based one minute per set", timedExercise("8-12", 3, 60), 3 + 2*1.0},
		{"time token", timedExercise("45s", 4, 30), 4*0.75 + 3*0.5},
		{"time range averaged", timedExercise("30-60s", 2, 60), 2*0.75 + 1*1.0},
		{"no rest after final set", timedExercise("10", 1, 90), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &core.WorkoutPlan{Exercises: []core.Exercise{tt.ex}}
			require.InDelta(t, tt.want, EstimateMinutes(plan), 1e-9)
		})
	}
}

func TestEstimateMinutesSkipsZeroSets(t *testing.T) {
	plan := &core.WorkoutPlan{Exercises: []core.Exercise{timedExercise("10", 0, 60)}}
	require.Zero(t, EstimateMinutes(plan))
}

func TestEstimateMinutesDeterministic(t *testing.T) {
	plan := &core.WorkoutPlan{Exercises: []core.Exercise{
		timedExercise("8-12", 3, 90),
		timedExercise("45s", 3, 30),
	}}
	first := EstimateMinutes(plan)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, EstimateMinutes(plan))
	}
}

func TestDurationTolerance(t *testing.T) {
	require.Equal(t, 3, DurationTolerance(10), "floor applies to short workouts")
	require.Equal(t, 3, DurationTolerance(30))
	require.Equal(t, 5, DurationTolerance(45), "rounds 4.5 up")
	require.Equal(t, 6, DurationTolerance(60))
	require.Equal(t, 9, DurationTolerance(90))
}

func TestValidateDuration(t *testing.T) {
	// Six 5-minute exercises plus one 2-minute: estimate 32 for target 30.
	within := &core.WorkoutPlan{}
	for i := 0; i < 6; i++ {
		within.Exercises = append(within.Exercises, timedExercise("8-12", 3, 60))
	}
	within.Exercises = append(within.Exercises, timedExercise("10", 2, 0))

	check := ValidateDuration(within, 30)
	require.InDelta(t, 32, check.EstimatedMinutes, 1e-9)
	require.True(t, check.Within)
	require.Empty(t, check.Message)

	// Seven 5-minute exercises: estimate 35, outside the 3-minute band.
	outside := &core.WorkoutPlan{}
	for i := 0; i < 7; i++ {
		outside.Exercises = append(outside.Exercises, timedExercise("8-12", 3, 60))
	}

	check = ValidateDuration(outside, 30)
	require.InDelta(t, 35, check.EstimatedMinutes, 1e-9)
	require.False(t, check.Within)
	require.Contains(t, check.Message, "outside the 3-minute tolerance")
	require.InDelta(t, 5, check.Delta, 1e-9)
}

func TestAdjustDurationNeverFails(t *testing.T) {
	plan := &core.WorkoutPlan{Exercises: []core.Exercise{timedExercise("8-12", 3, 60)}}

	check := AdjustDuration(plan, 60, slog.Default())
	require.False(t, check.Within)
	require.NotEmpty(t, check.Message, "diagnostic survives even though the attempt continues")

	// Nil logger is tolerated.
	require.NotPanics(t, func() { AdjustDuration(plan, 60, nil) })
}

func TestTimePerSetMinutes(t *testing.T) {
	require.InDelta(t, 1.0, timePerSetMinutes("8-12"), 1e-9)
	require.InDelta(t, 0.5, timePerSetMinutes("30s"), 1e-9)
	require.InDelta(t, 0.625, timePerSetMinutes("30-45s"), 1e-9)
	require.InDelta(t, 1.0, timePerSetMinutes("not a token"), 1e-9)
}
