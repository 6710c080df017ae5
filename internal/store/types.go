package store

import (
	"time"

	"github.com/google/uuid"

	"hfparse/internal/dialogue"
)

// TurnRecord is one processed utterance.
type TurnRecord struct {
	ID        uuid.UUID         `json:"id"`
	SessionID string            `json:"session_id"`
	Turn      int               `json:"turn"`
	Utterance string            `json:"utterance"`
	Outcome   string            `json:"outcome"`
	Template  string            `json:"template,omitempty"`
	Args      map[string]string `json:"args,omitempty"`
	Prompt    string            `json:"prompt,omitempty"`
	Choices   []string          `json:"choices,omitempty"`
	Score     float64           `json:"score"`
	Prior     float64           `json:"prior"`
	Reason    string            `json:"reason,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// TurnFilter narrows ListTurns. Zero fields match everything; Limit keeps
// the most recent turns.
type TurnFilter struct {
	SessionID string
	Outcome   string
	Limit     int
}

type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Turns     int       `json:"turns"`
	Committed int       `json:"committed"`
	FirstAt   time.Time `json:"first_at"`
	LastAt    time.Time `json:"last_at"`
}

type SearchResult struct {
	Turn    TurnRecord `json:"turn"`
	Score   float64    `json:"score"`
	Snippet string     `json:"snippet"`
}

// NewTurnRecord captures a dialogue outcome for the log. Committed turns
// carry the command; clarifications carry the prompt and choices; the
// best-ranked parse supplies the score otherwise.
func NewTurnRecord(sessionID string, turn int, utterance string, out dialogue.Outcome, now time.Time) TurnRecord {
	rec := TurnRecord{
		ID:        uuid.New(),
		SessionID: sessionID,
		Turn:      turn,
		Utterance: utterance,
		Outcome:   string(out.Kind),
		CreatedAt: now.UTC(),
	}
	switch {
	case out.Command != nil:
		rec.Template = out.Command.Template
		rec.Args = out.Command.Args()
		rec.Score = out.Command.Score
		rec.Prior = out.Command.Prior
	case len(out.Ranked) > 0:
		rec.Template = out.Ranked[0].Template
		rec.Score = out.Ranked[0].Score
		rec.Prior = out.Ranked[0].Prior
	}
	if c := out.Clarification; c != nil {
		rec.Prompt = c.Prompt
		rec.Choices = c.Values()
	}
	if out.Reason != nil {
		rec.Reason = out.Reason.Error()
	}
	return rec
}
