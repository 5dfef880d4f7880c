package planner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/planforge/coach/core"
)

// InjuryRule pairs the exercise-name tokens to avoid for an injury with
// safer substitutes surfaced in the prompt.
type InjuryRule struct {
	Avoid   []string
	Instead []string
}

// injuryRules keys injury keywords to avoid lists. Detection is by
// substring on both the stated injury and the exercise name; the
// substring semantics are intentional, they keep the table extensible
// without enumerating every exercise variant.
var injuryRules = map[string]InjuryRule{
	"knee": {
		Avoid:   []string{"squat", "lunge", "jump", "pistol", "burpee", "step-up"},
		Instead: []string{"glute bridge", "hip thrust", "seated leg curl", "terminal knee extension"},
	},
	"shoulder": {
		Avoid:   []string{"overhead press", "shoulder press", "lateral raise", "upright row", "snatch", "handstand", "dip"},
		Instead: []string{"landmine press", "neutral-grip floor press", "cable row"},
	},
	"back": {
		Avoid:   []string{"deadlift", "good morning", "bent-over row", "superman", "sit-up"},
		Instead: []string{"bird dog", "dead bug", "chest-supported row", "glute bridge"},
	},
	"wrist": {
		Avoid:   []string{"push-up", "pushup", "plank", "handstand", "front squat", "clean"},
		Instead: []string{"dumbbell bench press", "forearm plank", "machine chest press"},
	},
	"ankle": {
		Avoid:   []string{"jump", "sprint", "calf raise", "skipping", "box step"},
		Instead: []string{"seated leg press", "swimming", "cycling"},
	},
	"elbow": {
		Avoid:   []string{"skull crusher", "tricep extension", "dip", "close-grip"},
		Instead: []string{"cable pushdown with light load", "neutral-grip press"},
	},
	"hip": {
		Avoid:   []string{"lunge", "sumo", "hip thrust", "leg raise"},
		Instead: []string{"partial-range squat", "isometric glute bridge"},
	},
	"neck": {
		Avoid:   []string{"shrug", "overhead", "bridge", "headstand"},
		Instead: []string{"band pull-apart", "scapular retraction"},
	},
}

// lookupInjuryRule matches a stated injury against the rule table by
// substring and returns the matched key plus the rule.
func lookupInjuryRule(injury string) (string, InjuryRule) {
	inj := strings.ToLower(strings.TrimSpace(injury))
	for key, rule := range injuryRules {
		if strings.Contains(inj, key) {
			return key, rule
		}
	}
	return "", InjuryRule{}
}

// typeExclusions maps workout types to muscle/movement families that are
// hard violations for that type. The set is deliberately small: domain
// validation is lenient except for these anatomical exclusions, since
// over-constraining produces spurious rejections.
var typeExclusions = map[string][]string{
	"upper body": {"squat", "lunge", "leg press", "leg curl", "leg extension", "calf raise", "hip thrust"},
	"lower body": {"bench press", "push-up", "pushup", "pull-up", "pullup", "shoulder press", "bicep curl", "tricep", "lat pulldown", "chest fly"},
}

// equipmentKeywords names the mechanically-incompatible equipment
// classes: an exercise naming one of these requires it in the allowed
// list. Bodyweight exercises always pass.
var equipmentKeywords = []string{"cable", "barbell", "dumbbell", "machine", "kettlebell"}

var repFormatPattern = regexp.MustCompile(`^(\d+|\d+-\d+|\d+s|\d+-\d+s)$`)

// ValidateRules runs the domain rule checks over a decoded plan: workout
// type match, equipment availability, rep-format well-formedness, and
// injury contraindications. The violation list is empty on pass and its
// order is deterministic (plan order, then check order per exercise).
func ValidateRules(plan *core.WorkoutPlan, req core.WorkoutRequest) []string {
	var violations []string
	excluded := typeExclusions[strings.ToLower(strings.TrimSpace(req.WorkoutType))]
	equipment := sortedLower(req.Equipment)

	for _, ex := range plan.Exercises {
		name := strings.ToLower(ex.Name)

		for _, token := range excluded {
			if strings.Contains(name, token) {
				violations = append(violations,
					fmt.Sprintf("exercise %q does not match workout type %q (contains %q)", ex.Name, req.WorkoutType, token))
				break
			}
		}

		if v := checkEquipment(ex.Name, name, equipment); v != "" {
			violations = append(violations, v)
		}

		if !strings.ContainsAny(ex.Reps.Raw, "0123456789") {
			violations = append(violations,
				fmt.Sprintf("exercise %q has a reps value %q with no digits", ex.Name, ex.Reps.Raw))
		}

		for _, injury := range req.Injuries {
			key, rule := lookupInjuryRule(injury)
			if key == "" {
				continue
			}
			for _, avoid := range rule.Avoid {
				if strings.Contains(name, avoid) {
					violations = append(violations,
						fmt.Sprintf("exercise %q is contraindicated for a %s injury (matches %q)", ex.Name, key, avoid))
					break
				}
			}
		}
	}
	return violations
}

// checkEquipment is strict for named equipment classes: a cable exercise
// with no cable machine available is a hard violation.
func checkEquipment(displayName, lowerName string, available []string) string {
	for _, kw := range equipmentKeywords {
		if !strings.Contains(lowerName, kw) {
			continue
		}
		found := false
		for _, item := range available {
			if strings.Contains(item, kw) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Sprintf("exercise %q requires equipment %q which is not in the available list", displayName, kw)
		}
	}
	return ""
}

// WellFormedReps reports whether a rep token matches one of the accepted
// shapes: integer, numeric range, or seconds token.
func WellFormedReps(raw string) bool {
	return repFormatPattern.MatchString(strings.TrimSpace(raw))
}
