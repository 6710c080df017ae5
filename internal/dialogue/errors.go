package dialogue

import (
	"errors"
	"fmt"
	"strings"
)

var ErrClarificationUnanswered = errors.New("clarification was not answered")

// UnresolvedSlotError means a required slot has neither a binding nor a default.
// The template is already settled when it is raised, so the engine asks for
// the missing slot with a ClarifyArgument request listing the parameter's
// options rather than asking for the command again.
type UnresolvedSlotError struct {
	Template string
	Slots    []string
}

func (e *UnresolvedSlotError) Error() string {
	return fmt.Sprintf("%s: unresolved %s", e.Template, strings.Join(e.Slots, ", "))
}

// AmbiguousGroundingError means several objects fit a referring phrase equally well.
type AmbiguousGroundingError struct {
	Phrase  string
	Objects []string
}

func (e *AmbiguousGroundingError) Error() string {
	return fmt.Sprintf("%q matches %d objects: %s", e.Phrase, len(e.Objects), strings.Join(e.Objects, ", "))
}

// NoViableTemplateError means nothing in the grammar fits the utterance.
type NoViableTemplateError struct {
	Best      float64
	Threshold float64
	Empty     bool
}

func (e *NoViableTemplateError) Error() string {
	if e.Empty {
		return "no command matches the utterance"
	}
	return fmt.Sprintf("best cost %.2f exceeds threshold %.2f", e.Best, e.Threshold)
}
