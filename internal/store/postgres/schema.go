package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// One Exec runs the statements in an implicit transaction.
	ddl := `
CREATE TABLE IF NOT EXISTS turns (
    id         UUID PRIMARY KEY,
    session_id TEXT NOT NULL,
    turn       INTEGER NOT NULL,
    utterance  TEXT NOT NULL,
    outcome    TEXT NOT NULL,
    template   TEXT DEFAULT '',
    args       JSONB DEFAULT '{}',
    prompt     TEXT DEFAULT '',
    choices    TEXT[] DEFAULT '{}',
    score      DOUBLE PRECISION DEFAULT 0,
    prior      DOUBLE PRECISION DEFAULT 0,
    reason     TEXT DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

ALTER TABLE turns ADD COLUMN IF NOT EXISTS search_vector TSVECTOR
    GENERATED ALWAYS AS (to_tsvector('english', utterance || ' ' || coalesce(prompt, ''))) STORED;

CREATE INDEX IF NOT EXISTS idx_turns_search ON turns USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns (session_id, turn);
CREATE INDEX IF NOT EXISTS idx_turns_outcome ON turns (outcome);
CREATE INDEX IF NOT EXISTS idx_turns_created ON turns (created_at);
`
	_, err := c.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
