package grammar

import (
	"fmt"
	"strings"
)

const (
	CodeNoCommands          = "no_commands"
	CodeEmptySlots          = "empty_slots"
	CodeUndeclaredParameter = "undeclared_parameter"
	CodeUndefinedOption     = "undefined_option"
	CodeMissingPhrases      = "missing_phrases"
	CodeEmptyPhrase         = "empty_phrase"
	CodeInvalidStrategy     = "invalid_strategy"
	CodeDuplicateName       = "duplicate_name"
	CodeDescriptorOverlap   = "descriptor_overlap"
	CodeEmptyGroup          = "empty_group"
	CodeUnknownDefault      = "unknown_default"
	CodeMissingDescriptors  = "missing_descriptors"
)

type Issue struct {
	Code    string
	Subject string
	Message string
}

func (i Issue) String() string {
	if i.Subject == "" {
		return fmt.Sprintf("%s: %s", i.Code, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Code, i.Subject, i.Message)
}

// GrammarError reports every problem found while compiling a grammar.
type GrammarError struct {
	Issues []Issue
}

func (e *GrammarError) Error() string {
	if len(e.Issues) == 1 {
		return "invalid grammar: " + e.Issues[0].String()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	return fmt.Sprintf("invalid grammar (%d issues): %s", len(e.Issues), strings.Join(parts, "; "))
}

// Has reports whether an issue with code was recorded.
func (e *GrammarError) Has(code string) bool {
	for _, issue := range e.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}
