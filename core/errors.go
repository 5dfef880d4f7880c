package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQuotaExceeded is returned when the entitlement collaborator refuses
// the request before generation starts.
var ErrQuotaExceeded = errors.New("generation quota exceeded")

// GenerationError is the terminal failure of a generation call: the
// repair budget is exhausted or the model adapter failed with no retries
// left. It carries the full violation history for diagnosability; the
// text shown to end callers must stay generic.
type GenerationError struct {
	Attempts   int
	Violations []string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("plan generation failed after %d attempt(s): %s",
		e.Attempts, strings.Join(e.Violations, "; "))
}

// IsGenerationError reports whether err is a terminal generation failure.
func IsGenerationError(err error) (*GenerationError, bool) {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
