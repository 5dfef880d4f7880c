package planner

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/planforge/coach/core"
)

// normalizedSession is the prompt-relevant projection of one prior
// session. CompletedAt is deliberately left out: timestamps never reach
// the prompt, so they must not bust the cache.
type normalizedSession struct {
	WorkoutType     string `json:"workout_type"`
	DurationMinutes int    `json:"duration_minutes"`
	DifficultyScore int    `json:"difficulty_score"`
}

// Fingerprint returns a stable cache key for a request: every list field
// lowercased and sorted, the intensity scalar rounded to the display
// granularity, session history reduced to its prompt-relevant fields,
// and the result hashed with SHA-256. Identical requests produce
// identical fingerprints regardless of list order or casing.
func Fingerprint(req core.WorkoutRequest) string {
	var history []normalizedSession
	for _, s := range req.History {
		history = append(history, normalizedSession{
			WorkoutType:     strings.TrimSpace(strings.ToLower(s.WorkoutType)),
			DurationMinutes: s.DurationMinutes,
			DifficultyScore: s.DifficultyScore,
		})
	}

	normalized := struct {
		Experience      string              `json:"experience"`
		Goals           []string            `json:"goals"`
		Equipment       []string            `json:"equipment"`
		Injuries        []string            `json:"injuries"`
		InjuryNotes     string              `json:"injury_notes"`
		WorkoutType     string              `json:"workout_type"`
		DurationMinutes int                 `json:"duration_minutes"`
		Intensity       float64             `json:"intensity"`
		ProgressionNote string              `json:"progression_note"`
		History         []normalizedSession `json:"history,omitempty"`
	}{
		Experience:      strings.ToLower(string(req.Experience)),
		Goals:           sortedLower(req.Goals),
		Equipment:       sortedLower(req.Equipment),
		Injuries:        sortedLower(req.Injuries),
		InjuryNotes:     strings.TrimSpace(strings.ToLower(req.InjuryNotes)),
		WorkoutType:     strings.TrimSpace(strings.ToLower(req.WorkoutType)),
		DurationMinutes: req.DurationMinutes,
		Intensity:       math.Round(req.Intensity*100) / 100,
		ProgressionNote: strings.TrimSpace(req.ProgressionNote),
		History:         history,
	}

	data, _ := json.Marshal(normalized)
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
