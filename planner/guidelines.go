// Package planner implements the workout generation orchestrator: prompt
// construction, model output validation, quality scoring, and the bounded
// repair loop that ties them together.
package planner

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/planforge/coach/core"
)

// Goal categories recognized by the guideline table. Free-form goal text
// is normalized onto this closed set; unknown goals fall back to general
// fitness.
const (
	GoalStrength       = "strength"
	GoalHypertrophy    = "hypertrophy"
	GoalEndurance      = "endurance"
	GoalFatLoss        = "fat_loss"
	GoalGeneralFitness = "general_fitness"
)

// goalAliases maps common free-text goal phrasings onto goal categories.
// Matching is by substring, consistent with the keyword detection used
// elsewhere in the validators.
var goalAliases = map[string]string{
	"strength":      GoalStrength,
	"strong":        GoalStrength,
	"power":         GoalStrength,
	"hypertrophy":   GoalHypertrophy,
	"muscle":        GoalHypertrophy,
	"build":         GoalHypertrophy,
	"bulk":          GoalHypertrophy,
	"endurance":     GoalEndurance,
	"stamina":       GoalEndurance,
	"cardio":        GoalEndurance,
	"conditioning":  GoalEndurance,
	"fat":           GoalFatLoss,
	"weight loss":   GoalFatLoss,
	"lose weight":   GoalFatLoss,
	"lean":          GoalFatLoss,
	"tone":          GoalFatLoss,
	"fitness":       GoalGeneralFitness,
	"health":        GoalGeneralFitness,
	"general":       GoalGeneralFitness,
	"mobility":      GoalGeneralFitness,
	"stay in shape": GoalGeneralFitness,
}

// GuidelineTable is the static lookup of programming ranges keyed by goal
// category and experience. Pure data; no I/O after construction.
type GuidelineTable struct {
	Entries map[string]map[core.Experience]core.ProgrammingContext `yaml:"entries"`
}

// DefaultGuidelines returns the built-in evidence-based table.
func DefaultGuidelines() *GuidelineTable {
	return &GuidelineTable{Entries: map[string]map[core.Experience]core.ProgrammingContext{
		GoalStrength: {
			core.ExperienceBeginner:     {SetsMin: 3, SetsMax: 4, RepsMin: 4, RepsMax: 6, RestMinSecs: 120, RestMaxSecs: 180, Intensity: "heavy"},
			core.ExperienceIntermediate: {SetsMin: 3, SetsMax: 5, RepsMin: 3, RepsMax: 6, RestMinSecs: 150, RestMaxSecs: 240, Intensity: "heavy"},
			core.ExperienceAdvanced:     {SetsMin: 4, SetsMax: 6, RepsMin: 1, RepsMax: 5, RestMinSecs: 180, RestMaxSecs: 300, Intensity: "very heavy"},
		},
		GoalHypertrophy: {
			core.ExperienceBeginner:     {SetsMin: 3, SetsMax: 3, RepsMin: 8, RepsMax: 12, RestMinSecs: 60, RestMaxSecs: 90, Intensity: "moderate"},
			core.ExperienceIntermediate: {SetsMin: 3, SetsMax: 4, RepsMin: 8, RepsMax: 12, RestMinSecs: 60, RestMaxSecs: 120, Intensity: "moderate-heavy"},
			core.ExperienceAdvanced:     {SetsMin: 3, SetsMax: 5, RepsMin: 6, RepsMax: 12, RestMinSecs: 60, RestMaxSecs: 120, Intensity: "heavy"},
		},
		GoalEndurance: {
			core.ExperienceBeginner:     {SetsMin: 2, SetsMax: 3, RepsMin: 12, RepsMax: 15, RestMinSecs: 30, RestMaxSecs: 60, Intensity: "light"},
			core.ExperienceIntermediate: {SetsMin: 2, SetsMax: 4, RepsMin: 12, RepsMax: 20, RestMinSecs: 30, RestMaxSecs: 60, Intensity: "light-moderate"},
			core.ExperienceAdvanced:     {SetsMin: 3, SetsMax: 4, RepsMin: 15, RepsMax: 25, RestMinSecs: 20, RestMaxSecs: 45, Intensity: "moderate"},
		},
		GoalFatLoss: {
			core.ExperienceBeginner:     {SetsMin: 2, SetsMax: 3, RepsMin: 10, RepsMax: 15, RestMinSecs: 30, RestMaxSecs: 60, Intensity: "moderate"},
			core.ExperienceIntermediate: {SetsMin: 3, SetsMax: 4, RepsMin: 10, RepsMax: 15, RestMinSecs: 30, RestMaxSecs: 45, Intensity: "moderate"},
			core.ExperienceAdvanced:     {SetsMin: 3, SetsMax: 5, RepsMin: 12, RepsMax: 20, RestMinSecs: 20, RestMaxSecs: 45, Intensity: "moderate-high"},
		},
		GoalGeneralFitness: {
			core.ExperienceBeginner:     {SetsMin: 2, SetsMax: 3, RepsMin: 8, RepsMax: 12, RestMinSecs: 60, RestMaxSecs: 90, Intensity: "light-moderate"},
			core.ExperienceIntermediate: {SetsMin: 3, SetsMax: 3, RepsMin: 8, RepsMax: 15, RestMinSecs: 45, RestMaxSecs: 90, Intensity: "moderate"},
			core.ExperienceAdvanced:     {SetsMin: 3, SetsMax: 4, RepsMin: 8, RepsMax: 15, RestMinSecs: 45, RestMaxSecs: 90, Intensity: "moderate"},
		},
	}}
}

// LoadGuidelines reads a guideline table from a YAML file, falling back
// to the defaults when the path is empty or the file does not exist.
func LoadGuidelines(path string) (*GuidelineTable, error) {
	if path == "" {
		return DefaultGuidelines(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultGuidelines(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read guidelines file %s: %w", path, err)
	}
	var table GuidelineTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse guidelines YAML: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// Validate checks the table at startup: every entry must belong to the
// closed goal set and carry sane ranges.
func (t *GuidelineTable) Validate() error {
	known := map[string]bool{
		GoalStrength: true, GoalHypertrophy: true, GoalEndurance: true,
		GoalFatLoss: true, GoalGeneralFitness: true,
	}
	if len(t.Entries) == 0 {
		return fmt.Errorf("guideline table has no entries")
	}
	goals := make([]string, 0, len(t.Entries))
	for g := range t.Entries {
		goals = append(goals, g)
	}
	sort.Strings(goals)
	for _, goal := range goals {
		if !known[goal] {
			return fmt.Errorf("guideline table: unknown goal category %q", goal)
		}
		for exp, pc := range t.Entries[goal] {
			switch {
			case pc.SetsMin < 1 || pc.SetsMax < pc.SetsMin:
				return fmt.Errorf("guideline table: %s/%s has invalid sets range [%d,%d]", goal, exp, pc.SetsMin, pc.SetsMax)
			case pc.RepsMin < 1 || pc.RepsMax < pc.RepsMin:
				return fmt.Errorf("guideline table: %s/%s has invalid reps range [%d,%d]", goal, exp, pc.RepsMin, pc.RepsMax)
			case pc.RestMinSecs < 0 || pc.RestMaxSecs < pc.RestMinSecs:
				return fmt.Errorf("guideline table: %s/%s has invalid rest range [%d,%d]", goal, exp, pc.RestMinSecs, pc.RestMaxSecs)
			}
		}
	}
	return nil
}

// NormalizeGoal maps free-form goal text onto a goal category.
func NormalizeGoal(goal string) string {
	g := strings.ToLower(strings.TrimSpace(goal))
	if _, ok := DefaultGuidelines().Entries[g]; ok {
		return g
	}
	for alias, category := range goalAliases {
		if strings.Contains(g, alias) {
			return category
		}
	}
	return GoalGeneralFitness
}

// Lookup returns the programming context for a request. The first goal
// drives the lookup; missing experience degrades to beginner ranges.
func (t *GuidelineTable) Lookup(req core.WorkoutRequest) core.ProgrammingContext {
	goal := GoalGeneralFitness
	if len(req.Goals) > 0 {
		goal = NormalizeGoal(req.Goals[0])
	}
	exp := req.Experience
	if exp != core.ExperienceBeginner && exp != core.ExperienceIntermediate && exp != core.ExperienceAdvanced {
		exp = core.ExperienceBeginner
	}
	byExp, ok := t.Entries[goal]
	if !ok {
		byExp = t.Entries[GoalGeneralFitness]
	}
	if pc, ok := byExp[exp]; ok {
		return pc
	}
	return byExp[core.ExperienceBeginner]
}
