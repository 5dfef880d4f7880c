package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Experience is the user's training experience level.
type Experience string

const (
	ExperienceBeginner     Experience = "beginner"
	ExperienceIntermediate Experience = "intermediate"
	ExperienceAdvanced     Experience = "advanced"
)

// SessionSummary is a compact record of a prior workout session used for
// progression hints. All fields are optional.
type SessionSummary struct {
	CompletedAt     time.Time `json:"completed_at"`
	WorkoutType     string    `json:"workout_type"`
	DurationMinutes int       `json:"duration_minutes"`
	DifficultyScore int       `json:"difficulty_score,omitempty"` // 1-5 user feedback
}

// WorkoutRequest is the immutable input of one generation call.
type WorkoutRequest struct {
	UserID          string           `json:"user_id,omitempty"`
	Experience      Experience       `json:"experience"`
	Goals           []string         `json:"goals"`
	Equipment       []string         `json:"equipment"`
	Injuries        []string         `json:"injuries,omitempty"`
	InjuryNotes     string           `json:"injury_notes,omitempty"`
	WorkoutType     string           `json:"workout_type"`
	DurationMinutes int              `json:"duration_minutes"`
	History         []SessionSummary `json:"history,omitempty"`
	Intensity       float64          `json:"intensity,omitempty"` // 0 means unset
	ProgressionNote string           `json:"progression_note,omitempty"`
}

// ProgrammingContext holds evidence-based set/rep/rest ranges for a goal
// and experience combination. Looked up, never computed at runtime.
type ProgrammingContext struct {
	SetsMin     int    `json:"sets_min" yaml:"sets_min"`
	SetsMax     int    `json:"sets_max" yaml:"sets_max"`
	RepsMin     int    `json:"reps_min" yaml:"reps_min"`
	RepsMax     int    `json:"reps_max" yaml:"reps_max"`
	RestMinSecs int    `json:"rest_min_secs" yaml:"rest_min_secs"`
	RestMaxSecs int    `json:"rest_max_secs" yaml:"rest_max_secs"`
	Intensity   string `json:"intensity" yaml:"intensity"`
}

// RepSpec is the reps field of an exercise. The model may emit a plain
// integer, a numeric range like "8-12", or a time token like "45s" or
// "30-45s". The raw token is preserved so a stored plan re-marshals
// byte-identically.
type RepSpec struct {
	Raw       string
	IsNumeric bool // true when the source JSON was a bare number
}

// UnmarshalJSON accepts both a JSON number and a JSON string.
func (r *RepSpec) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		r.Raw = v
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("reps must be a number or string: %w", err)
	}
	r.Raw = strconv.Itoa(int(n))
	r.IsNumeric = true
	return nil
}

// MarshalJSON re-emits the reps field in its original shape.
func (r RepSpec) MarshalJSON() ([]byte, error) {
	if r.IsNumeric {
		return []byte(r.Raw), nil
	}
	return json.Marshal(r.Raw)
}

// String returns the raw rep token.
func (r RepSpec) String() string { return r.Raw }

// Exercise is one entry of a generated plan. Produced only by the model;
// every field must survive schema validation before being trusted.
type Exercise struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Sets         int      `json:"sets"`
	Reps         RepSpec  `json:"reps"`
	FormTips     []string `json:"formTips"`
	SafetyTips   []string `json:"safetyTips"`
	RestSeconds  int      `json:"restSeconds"`
	UsesWeight   bool     `json:"usesWeight"`
	MuscleGroups []string `json:"muscleGroups"`
	Difficulty   string   `json:"difficulty"`
}

// WorkoutSummary is the summary block the model attaches to a plan.
type WorkoutSummary struct {
	TotalVolume  string `json:"totalVolume"`
	PrimaryFocus string `json:"primaryFocus"`
	ExpectedRPE  string `json:"expectedRPE"`
}

// WorkoutPlan is an ordered exercise list plus summary. Invariants:
// exercise count within the bounds computed at prompt-build time, and no
// two names collide case-insensitively.
type WorkoutPlan struct {
	Exercises []Exercise     `json:"exercises"`
	Summary   WorkoutSummary `json:"workoutSummary"`
}

// QualityScore is the weighted composite quality of a validated plan.
type QualityScore struct {
	Overall         float64 `json:"overall"`
	Grade           string  `json:"grade"`
	Completeness    float64 `json:"completeness"`
	Safety          float64 `json:"safety"`
	Programming     float64 `json:"programming"`
	Personalization float64 `json:"personalization"`
}

// GenerationMetadata is attached to every accepted plan. It exists only
// on a successfully validated result.
type GenerationMetadata struct {
	PlanID           string       `json:"plan_id"`
	Model            string       `json:"model"`
	Temperature      float32      `json:"temperature"`
	MinExercises     int          `json:"min_exercises"`
	MaxExercises     int          `json:"max_exercises"`
	TargetMinutes    int          `json:"target_minutes"`
	EstimatedMinutes float64      `json:"estimated_minutes"`
	DurationDelta    float64      `json:"duration_delta"`
	DurationWithin   bool         `json:"duration_within_tolerance"`
	Warnings         []string     `json:"warnings,omitempty"`
	Quality          QualityScore `json:"quality"`
	RepairAttempts   int          `json:"repair_attempts"`
	Intensity        float64      `json:"intensity,omitempty"`
	ProgressionNote  string       `json:"progression_note,omitempty"`
	GeneratedAt      time.Time    `json:"generated_at"`
}

// GeneratedPlan is the final output of the orchestrator.
type GeneratedPlan struct {
	Plan     WorkoutPlan        `json:"plan"`
	Metadata GenerationMetadata `json:"metadata"`
}

// ValidationErrors accumulates violations during one generation attempt.
// Created fresh per attempt, discarded after a repair round or success.
type ValidationErrors struct {
	Schema   []string
	Rules    []string
	Duration string
}

// AddSchema appends a structural violation.
func (v *ValidationErrors) AddSchema(msg string) { v.Schema = append(v.Schema, msg) }

// AddRule appends a domain or safety violation.
func (v *ValidationErrors) AddRule(msg string) { v.Rules = append(v.Rules, msg) }

// Blocking reports whether any violation must trigger a repair round.
// Duration mismatches are deliberately non-blocking.
func (v *ValidationErrors) Blocking() bool {
	return len(v.Schema) > 0 || len(v.Rules) > 0
}

// All returns every accumulated violation in deterministic order.
func (v *ValidationErrors) All() []string {
	out := make([]string, 0, len(v.Schema)+len(v.Rules)+1)
	out = append(out, v.Schema...)
	out = append(out, v.Rules...)
	if v.Duration != "" {
		out = append(out, v.Duration)
	}
	return out
}
