// Package store persists the turn log: every utterance a session sees and
// what the dialogue engine made of it.
package store

import (
	"context"
	"time"
)

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	RecordTurn(ctx context.Context, t TurnRecord) error
	ListTurns(ctx context.Context, f TurnFilter) ([]TurnRecord, error)
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	SearchTurns(ctx context.Context, query, outcome string) ([]SearchResult, error)
	PurgeSession(ctx context.Context, sessionID string) (int64, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)

	RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}
