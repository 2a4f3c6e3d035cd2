package survey

import (
	"errors"
	"strings"
)

var ErrSurveyClosed = errors.New("survey is not open for submissions")

// ValidationError rejects a whole submission. Nothing it describes was persisted.
type ValidationError struct {
	// Missing lists the text of every mandatory question left unanswered.
	Missing []string
	// Invalid lists values rejected before any write, e.g. over-long answers.
	Invalid []string
}

func (e *ValidationError) Error() string {
	parts := []string{}
	if len(e.Missing) > 0 {
		parts = append(parts, "Please answer all required questions: "+strings.Join(e.Missing, ", "))
	}
	parts = append(parts, e.Invalid...)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}
