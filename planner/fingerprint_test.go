package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/planforge/coach/core"
)

func TestFingerprintStable(t *testing.T) {
	req := hypertrophyRequest()
	first := Fingerprint(req)
	require.Len(t, first, 64)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, Fingerprint(req))
	}
}

func TestFingerprintOrderAndCaseInvariant(t *testing.T) {
	a := hypertrophyRequest()

	b := a
	b.Equipment = []string{"BENCH", "Dumbbells"}
	b.Goals = []string{"Build Muscle"}
	require.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintIgnoresIdentity(t *testing.T) {
	a := hypertrophyRequest()

	b := a
	b.UserID = "user-42"
	require.Equal(t, Fingerprint(a), Fingerprint(b),
		"user identity must not affect the cache key")
}

func TestFingerprintSensitiveToHistory(t *testing.T) {
	a := hypertrophyRequest()

	b := a
	b.History = []core.SessionSummary{{WorkoutType: "upper body", DifficultyScore: 5}}
	require.NotEqual(t, Fingerprint(a), Fingerprint(b),
		"history changes the prompt, so it must change the cache key")

	c := b
	c.History = []core.SessionSummary{{WorkoutType: "upper body", DifficultyScore: 1}}
	require.NotEqual(t, Fingerprint(b), Fingerprint(c),
		"session feedback must be part of the key")
}

func TestFingerprintIgnoresHistoryTimestamps(t *testing.T) {
	a := hypertrophyRequest()
	a.History = []core.SessionSummary{{WorkoutType: "Upper Body", DifficultyScore: 3}}

	b := a
	b.History = []core.SessionSummary{{
		CompletedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		WorkoutType:     "upper body",
		DifficultyScore: 3,
	}}
	require.Equal(t, Fingerprint(a), Fingerprint(b),
		"completion timestamps never reach the prompt")
}

func TestFingerprintSensitiveToContent(t *testing.T) {
	a := hypertrophyRequest()

	b := a
	b.DurationMinutes = 60
	require.NotEqual(t, Fingerprint(a), Fingerprint(b))

	c := a
	c.Injuries = []string{"knee"}
	require.NotEqual(t, Fingerprint(a), Fingerprint(c))
}

func TestFingerprintIntensityRounding(t *testing.T) {
	a := hypertrophyRequest()
	a.Intensity = 0.701

	b := a
	b.Intensity = 0.699
	require.Equal(t, Fingerprint(a), Fingerprint(b), "intensity compares at two decimals")

	c := a
	c.Intensity = 0.75
	require.NotEqual(t, Fingerprint(a), Fingerprint(c))
}
