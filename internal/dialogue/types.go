package dialogue

import (
	"slices"

	"hfparse/internal/parser"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingCommand
	PhaseAwaitingArgument
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingCommand:
		return "awaiting_command"
	case PhaseAwaitingArgument:
		return "awaiting_argument"
	default:
		return "idle"
	}
}

type ClarificationKind string

const (
	ClarifyCommand  ClarificationKind = "command"
	ClarifyArgument ClarificationKind = "argument"
)

type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type ClarificationRequest struct {
	Kind ClarificationKind `json:"kind"`
	// Slot is the slot being asked about, empty for command clarifications.
	Slot    string   `json:"slot,omitempty"`
	Choices []Choice `json:"choices"`
	Prompt  string   `json:"prompt"`
}

func (r *ClarificationRequest) Values() []string {
	out := make([]string, 0, len(r.Choices))
	for _, c := range r.Choices {
		out = append(out, c.Value)
	}
	return out
}

// Context is what earlier turns of a session leave behind.
type Context struct {
	LastSide   string `json:"last_side,omitempty"`
	LastAction string `json:"last_action,omitempty"`
}

// State is owned by the caller and threaded through Engine.Turn.
type State struct {
	SessionID  string
	Phase      Phase
	Turn       int
	Pending    *ClarificationRequest
	Candidates []parser.CommandParse
	Context    Context
	Attempts   int
}

func NewState(sessionID string) State {
	return State{SessionID: sessionID}
}

// Reset drops any pending clarification. Session history is kept.
func (s State) Reset() State {
	s.Phase = PhaseIdle
	s.Pending = nil
	s.Candidates = nil
	s.Attempts = 0
	return s
}

func (s State) await(phase Phase, req *ClarificationRequest, cands []parser.CommandParse) State {
	s.Phase = phase
	s.Pending = req
	s.Candidates = slices.Clone(cands)
	return s
}

type OutcomeKind string

const (
	OutcomeCommitted     OutcomeKind = "committed"
	OutcomeClarify       OutcomeKind = "clarify"
	OutcomeNotUnderstood OutcomeKind = "not_understood"
	OutcomeCancelled     OutcomeKind = "cancelled"
)

type Outcome struct {
	Kind          OutcomeKind
	Command       *parser.CommandParse
	Clarification *ClarificationRequest
	// Ranked is the scorer output behind this outcome, when there was one.
	Ranked []parser.CommandParse
	// Reason explains clarifications and failures.
	Reason error
}
