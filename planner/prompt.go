package planner

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/planforge/coach/core"
)

// Prompt is the deterministic output of the prompt builder: the two
// conversation messages plus the exercise-count bounds the validators
// will later enforce mechanically.
type Prompt struct {
	System       string
	User         string
	MinExercises int
	MaxExercises int
}

// timeBasedTypes are workout types whose exercises are prescribed in
// seconds of work rather than rep counts.
var timeBasedTypes = map[string]bool{
	"hiit":    true,
	"circuit": true,
	"cardio":  true,
	"tabata":  true,
	"core":    true,
}

const minExerciseFloor = 4

// warmupMinutes returns the warm-up allowance, scaling with duration.
func warmupMinutes(durationMinutes int) int {
	switch {
	case durationMinutes < 30:
		return 5
	case durationMinutes <= 60:
		return 8
	default:
		return 10
	}
}

// isTimeBased reports whether a workout type prescribes timed work.
func isTimeBased(workoutType string) bool {
	return timeBasedTypes[strings.ToLower(strings.TrimSpace(workoutType))]
}

// exerciseBounds derives [min,max] exercise counts from the available
// time and the estimated per-exercise minutes. Time-based types assume
// the 3-5 minute midpoint; set/rep types derive per-exercise time from
// the programming-context midpoints as sets + (sets-1)*rest/60 minutes.
func exerciseBounds(req core.WorkoutRequest, pc core.ProgrammingContext) (int, int) {
	available := float64(req.DurationMinutes - warmupMinutes(req.DurationMinutes))
	if available < 1 {
		available = 1
	}

	var perExercise float64
	if isTimeBased(req.WorkoutType) {
		perExercise = 4.0
	} else {
		sets := float64(pc.SetsMin+pc.SetsMax) / 2.0
		rest := float64(pc.RestMinSecs+pc.RestMaxSecs) / 2.0
		perExercise = sets + (sets-1)*rest/60.0
	}
	if perExercise < 1 {
		perExercise = 1
	}

	maxCount := int(math.Round(available / perExercise))
	minCount := maxCount - 2
	if minCount < minExerciseFloor {
		minCount = minExerciseFloor
	}
	if maxCount < minCount {
		maxCount = minCount
	}
	return minCount, maxCount
}

// BuildPrompt constructs the system and user messages for a request.
// Deterministic given identical input: list fields are sorted before
// rendering and no randomness or I/O is involved. Every hard constraint
// the validators check mechanically is restated here in natural language
// so the common case needs no repair round.
func BuildPrompt(req core.WorkoutRequest, pc core.ProgrammingContext) Prompt {
	minCount, maxCount := exerciseBounds(req, pc)
	tolerance := DurationTolerance(req.DurationMinutes)

	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s workout plan.\n\n", strings.TrimSpace(req.WorkoutType))

	fmt.Fprintf(&b, "User profile:\n")
	fmt.Fprintf(&b, "- Experience: %s\n", req.Experience)
	if len(req.Goals) > 0 {
		fmt.Fprintf(&b, "- Goals: %s\n", joinSorted(req.Goals))
	}
	fmt.Fprintf(&b, "- Target duration: %d minutes (the estimated total time of the plan must be within %d minutes of this target)\n",
		req.DurationMinutes, tolerance)
	if req.Intensity > 0 {
		fmt.Fprintf(&b, "- Target intensity: %.2f on a 0-1 scale\n", req.Intensity)
	}
	if req.ProgressionNote != "" {
		fmt.Fprintf(&b, "- Progression note: %s\n", req.ProgressionNote)
	}
	if hint := historyHint(req.History); hint != "" {
		fmt.Fprintf(&b, "- Recent training: %s\n", hint)
	}

	fmt.Fprintf(&b, "\nHard constraints:\n")
	if len(req.Equipment) > 0 {
		fmt.Fprintf(&b, "- Available equipment, and nothing else: %s. Do not prescribe any exercise requiring equipment outside this list.\n",
			joinSorted(req.Equipment))
	} else {
		fmt.Fprintf(&b, "- No equipment available: bodyweight exercises only.\n")
	}
	writeInjuryConstraints(&b, req)
	fmt.Fprintf(&b, "- The plan must contain between %d and %d exercises.\n", minCount, maxCount)
	fmt.Fprintf(&b, "- Exercise names must be unique.\n")
	if isTimeBased(req.WorkoutType) {
		fmt.Fprintf(&b, "- Use time-based reps formatted as a seconds token, e.g. \"45s\" or \"30-45s\".\n")
	} else {
		fmt.Fprintf(&b, "- Use rep-based prescriptions: a plain integer or a numeric range like \"8-12\".\n")
	}
	fmt.Fprintf(&b, "- Programming ranges for this user: %d-%d sets, %d-%d reps, %d-%d seconds rest, %s intensity.\n",
		pc.SetsMin, pc.SetsMax, pc.RepsMin, pc.RepsMax, pc.RestMinSecs, pc.RestMaxSecs, pc.Intensity)

	fmt.Fprintf(&b, "\nRespond with a single JSON object and nothing else, shaped exactly as:\n")
	fmt.Fprintf(&b, `{"exercises":[{"name":"","description":"","sets":3,"reps":"8-12","formTips":[""],"safetyTips":[""],"restSeconds":60,"usesWeight":false,"muscleGroups":[""],"difficulty":""}],"workoutSummary":{"totalVolume":"","primaryFocus":"","expectedRPE":""}}`)
	b.WriteString("\n")

	return Prompt{
		System:       systemMessage,
		User:         b.String(),
		MinExercises: minCount,
		MaxExercises: maxCount,
	}
}

const systemMessage = "You are an expert strength and conditioning coach. " +
	"You design safe, effective, evidence-based workout plans matched to the user's " +
	"constraints. You always respond with valid JSON matching the requested schema, " +
	"with no markdown fences and no commentary."

// writeInjuryConstraints renders per-injury avoid lists with "use
// instead" exemplars so the model rarely needs a repair round for the
// one rule that is never downgraded.
func writeInjuryConstraints(b *strings.Builder, req core.WorkoutRequest) {
	if len(req.Injuries) == 0 {
		return
	}
	for _, injury := range sortedLower(req.Injuries) {
		key, rule := lookupInjuryRule(injury)
		if key == "" {
			fmt.Fprintf(b, "- The user reports a %q injury: avoid any exercise that could load it.\n", injury)
			continue
		}
		fmt.Fprintf(b, "- The user has a %s injury. Avoid: %s. Use instead: %s.\n",
			key, strings.Join(rule.Avoid, ", "), strings.Join(rule.Instead, ", "))
	}
	if req.InjuryNotes != "" {
		fmt.Fprintf(b, "- Injury notes from the user: %s\n", req.InjuryNotes)
	}
}

// historyHint condenses prior sessions into a one-line progression hint.
func historyHint(history []core.SessionSummary) string {
	if len(history) == 0 {
		return ""
	}
	last := history[len(history)-1]
	hint := fmt.Sprintf("%d prior session(s)", len(history))
	if last.WorkoutType != "" {
		hint += fmt.Sprintf(", most recent was %s", last.WorkoutType)
	}
	switch {
	case last.DifficultyScore >= 5:
		hint += " and was rated too difficult; ease the load slightly"
	case last.DifficultyScore == 1:
		hint += " and was rated too easy; progress the load"
	}
	return hint
}

func joinSorted(items []string) string {
	return strings.Join(sortedLower(items), ", ")
}

func sortedLower(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(it))
		if it != "" {
			out = append(out, it)
		}
	}
	sort.Strings(out)
	return out
}
