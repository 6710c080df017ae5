package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"hfparse/internal/store"
)

const turnColumns = `id, session_id, turn, utterance, outcome, template, args, prompt, choices, score, prior, reason, created_at`

func (c *Client) RecordTurn(ctx context.Context, t store.TurnRecord) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	argsJSON, err := json.Marshal(t.Args)
	if err != nil {
		return fmt.Errorf("marshaling args: %w", err)
	}
	choicesJSON, err := json.Marshal(t.Choices)
	if err != nil {
		return fmt.Errorf("marshaling choices: %w", err)
	}

	query := `INSERT INTO turns (` + turnColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = c.db.ExecContext(ctx, query,
		t.ID.String(),
		t.SessionID,
		t.Turn,
		t.Utterance,
		t.Outcome,
		t.Template,
		string(argsJSON),
		t.Prompt,
		string(choicesJSON),
		t.Score,
		t.Prior,
		t.Reason,
		formatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("recording turn: %w", err)
	}
	return nil
}

func (c *Client) ListTurns(ctx context.Context, f store.TurnFilter) ([]store.TurnRecord, error) {
	var where []string
	var args []any
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, f.Outcome)
	}

	query := `SELECT ` + turnColumns + ` FROM turns`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, turn DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	turns := []store.TurnRecord{}
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	slices.Reverse(turns)
	return turns, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]store.SessionSummary, error) {
	query := `
	SELECT session_id,
	       COUNT(*),
	       SUM(CASE WHEN outcome = 'committed' THEN 1 ELSE 0 END),
	       MIN(created_at),
	       MAX(created_at)
	FROM turns
	GROUP BY session_id
	ORDER BY MAX(created_at) DESC
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := []store.SessionSummary{}
	for rows.Next() {
		var s store.SessionSummary
		var first, last string
		if err := rows.Scan(&s.SessionID, &s.Turns, &s.Committed, &first, &last); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if s.FirstAt, err = parseTime(first); err != nil {
			return nil, err
		}
		if s.LastAt, err = parseTime(last); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(row scanner, extra ...any) (store.TurnRecord, error) {
	var t store.TurnRecord
	var id, argsJSON, choicesJSON, created string
	dest := append([]any{
		&id, &t.SessionID, &t.Turn, &t.Utterance, &t.Outcome, &t.Template,
		&argsJSON, &t.Prompt, &choicesJSON, &t.Score, &t.Prior, &t.Reason, &created,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return t, fmt.Errorf("scanning turn: %w", err)
	}

	var err error
	if t.ID, err = uuid.Parse(id); err != nil {
		return t, fmt.Errorf("parsing turn id: %w", err)
	}
	if argsJSON != "" && argsJSON != "null" {
		if err := json.Unmarshal([]byte(argsJSON), &t.Args); err != nil {
			return t, fmt.Errorf("unmarshaling args: %w", err)
		}
	}
	if choicesJSON != "" && choicesJSON != "null" {
		if err := json.Unmarshal([]byte(choicesJSON), &t.Choices); err != nil {
			return t, fmt.Errorf("unmarshaling choices: %w", err)
		}
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return t, err
	}
	return t, nil
}
