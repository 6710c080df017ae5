package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS turns (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		turn       INTEGER NOT NULL,
		utterance  TEXT NOT NULL,
		outcome    TEXT NOT NULL,
		template   TEXT DEFAULT '',
		args       TEXT DEFAULT '{}',
		prompt     TEXT DEFAULT '',
		choices    TEXT DEFAULT '[]',
		score      REAL DEFAULT 0,
		prior      REAL DEFAULT 0,
		reason     TEXT DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns (session_id, turn);
	CREATE INDEX IF NOT EXISTS idx_turns_outcome ON turns (outcome);
	CREATE INDEX IF NOT EXISTS idx_turns_created ON turns (created_at);

	CREATE VIRTUAL TABLE IF NOT EXISTS turns_fts USING fts5(
		utterance,
		prompt,
		content=turns,
		content_rowid=rowid
	);

	CREATE TRIGGER IF NOT EXISTS turns_ai AFTER INSERT ON turns BEGIN
		INSERT INTO turns_fts(rowid, utterance, prompt)
		VALUES (new.rowid, new.utterance, new.prompt);
	END;

	CREATE TRIGGER IF NOT EXISTS turns_ad AFTER DELETE ON turns BEGIN
		INSERT INTO turns_fts(turns_fts, rowid, utterance, prompt)
		VALUES ('delete', old.rowid, old.utterance, old.prompt);
	END;
	`

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

// splitStatements splits DDL on lines ending in ";", keeping trigger bodies
// whole up to their END; line.
func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder
	depth := 0

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		upper := strings.ToUpper(stripped)
		if strings.HasPrefix(upper, "CREATE TRIGGER") {
			depth++
		}
		if !strings.HasSuffix(stripped, ";") {
			continue
		}
		if depth > 0 && upper != "END;" {
			continue
		}
		if upper == "END;" {
			depth--
		}
		statements = append(statements, current.String())
		current.Reset()
	}

	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}
