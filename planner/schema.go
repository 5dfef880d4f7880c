package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/planforge/coach/core"
)

// SchemaResult separates blocking structural violations from cosmetic
// warnings. Critical violations must trigger repair or rejection;
// warnings are logged and attached to metadata, never blocking.
type SchemaResult struct {
	Critical []string
	Warnings []string
}

// Passed reports whether the candidate survived all critical checks.
func (r SchemaResult) Passed() bool { return len(r.Critical) == 0 }

const shortDescriptionChars = 20

// requiredExerciseFields lists every exercise field and its expected
// primitive type, in the fixed order checks run so violation messages
// are deterministic.
var requiredExerciseFields = []struct {
	name string
	kind string // "string", "int", "reps", "stringlist", "bool"
}{
	{"name", "string"},
	{"description", "string"},
	{"sets", "int"},
	{"reps", "reps"},
	{"formTips", "stringlist"},
	{"safetyTips", "stringlist"},
	{"restSeconds", "int"},
	{"usesWeight", "bool"},
	{"muscleGroups", "stringlist"},
	{"difficulty", "string"},
}

// ValidateSchema checks a parsed candidate object against the structural
// rules: an exercises array within [min,max], correctly typed fields on
// every exercise, accepted rep shapes, case-insensitively unique names,
// and a complete workoutSummary block.
func ValidateSchema(raw json.RawMessage, minExercises, maxExercises int) SchemaResult {
	var res SchemaResult

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		res.Critical = append(res.Critical, "response is not a JSON object")
		return res
	}

	exercisesAny, ok := doc["exercises"]
	if !ok {
		res.Critical = append(res.Critical, "missing required field: exercises")
		return res
	}
	exercises, ok := exercisesAny.([]any)
	if !ok {
		res.Critical = append(res.Critical, "field exercises must be an array")
		return res
	}
	if len(exercises) < minExercises || len(exercises) > maxExercises {
		res.Critical = append(res.Critical,
			fmt.Sprintf("exercise count %d outside required range [%d,%d]", len(exercises), minExercises, maxExercises))
	}

	seen := make(map[string]bool, len(exercises))
	for i, exAny := range exercises {
		ex, ok := exAny.(map[string]any)
		if !ok {
			res.Critical = append(res.Critical, fmt.Sprintf("exercise %d is not an object", i))
			continue
		}
		res.checkExerciseFields(i, ex)

		if name, ok := ex["name"].(string); ok && name != "" {
			key := strings.ToLower(strings.TrimSpace(name))
			if seen[key] {
				res.Critical = append(res.Critical, fmt.Sprintf("duplicate exercise name (case-insensitive): %q", name))
			}
			seen[key] = true
		}
		if desc, ok := ex["description"].(string); ok && len(desc) < shortDescriptionChars {
			res.Warnings = append(res.Warnings, fmt.Sprintf("exercise %d has a very short description", i))
		}
	}

	summaryAny, ok := doc["workoutSummary"]
	if !ok {
		res.Critical = append(res.Critical, "missing required field: workoutSummary")
		return res
	}
	summary, ok := summaryAny.(map[string]any)
	if !ok {
		res.Critical = append(res.Critical, "field workoutSummary must be an object")
		return res
	}
	for _, field := range []string{"totalVolume", "primaryFocus", "expectedRPE"} {
		if s, ok := summary[field].(string); !ok || s == "" {
			res.Critical = append(res.Critical, fmt.Sprintf("workoutSummary missing required text field: %s", field))
		}
	}
	return res
}

func (r *SchemaResult) checkExerciseFields(idx int, ex map[string]any) {
	for _, f := range requiredExerciseFields {
		val, present := ex[f.name]
		if !present || val == nil {
			r.Critical = append(r.Critical, fmt.Sprintf("exercise %d missing required field: %s", idx, f.name))
			continue
		}
		switch f.kind {
		case "string":
			if s, ok := val.(string); !ok || s == "" {
				r.Critical = append(r.Critical, fmt.Sprintf("exercise %d field %s must be a non-empty string", idx, f.name))
			}
		case "int":
			n, ok := val.(json.Number)
			if !ok {
				r.Critical = append(r.Critical, fmt.Sprintf("exercise %d field %s must be an integer", idx, f.name))
				continue
			}
			if _, err := n.Int64(); err != nil {
				r.Critical = append(r.Critical, fmt.Sprintf("exercise %d field %s must be an integer", idx, f.name))
			}
		case "reps":
			switch v := val.(type) {
			case json.Number:
				if _, err := v.Int64(); err != nil {
					r.Critical = append(r.Critical, fmt.Sprintf("exercise %d field reps must be an integer or a formatted string", idx))
				}
			case string:
				if !WellFormedReps(v) {
					r.Critical = append(r.Critical, fmt.Sprintf("exercise %d field reps %q is not an integer, range like \"8-12\", or time like \"45s\"", idx, v))
				}
			default:
				r.Critical = append(r.Critical, fmt.Sprintf("exercise %d field reps must be an integer or a formatted string", idx))
			}
		case "stringlist":
			list, ok := val.([]any)
			if !ok {
				r.Critical = append(r.Critical, fmt.Sprintf("exercise %d field %s must be an array of strings", idx, f.name))
				continue
			}
			for _, item := range list {
				if _, ok := item.(string); !ok {
					r.Critical = append(r.Critical, fmt.Sprintf("exercise %d field %s must be an array of strings", idx, f.name))
					break
				}
			}
		case "bool":
			if _, ok := val.(bool); !ok {
				r.Critical = append(r.Critical, fmt.Sprintf("exercise %d field %s must be a boolean", idx, f.name))
			}
		}
	}
}

// DecodePlan unmarshals a candidate that already passed schema
// validation into the typed plan.
func DecodePlan(raw json.RawMessage) (*core.WorkoutPlan, error) {
	var plan core.WorkoutPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode validated plan: %w", err)
	}
	return &plan, nil
}
