package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hfparse/internal/store"
)

const turnColumns = `id::text, session_id, turn, utterance, outcome, template, args, prompt, choices, score, prior, reason, created_at`

func (c *Client) RecordTurn(ctx context.Context, t store.TurnRecord) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	args := t.Args
	if args == nil {
		args = map[string]string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshaling args: %w", err)
	}
	choices := t.Choices
	if choices == nil {
		choices = []string{}
	}

	_, err = c.pool.Exec(ctx, `
INSERT INTO turns (id, session_id, turn, utterance, outcome, template, args, prompt, choices, score, prior, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`,
		t.ID.String(), t.SessionID, t.Turn, t.Utterance, t.Outcome, t.Template,
		argsJSON, t.Prompt, choices, t.Score, t.Prior, t.Reason, t.CreatedAt,
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
		args = append(args, f.SessionID)
		where = append(where, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if f.Outcome != "" {
		args = append(args, f.Outcome)
		where = append(where, fmt.Sprintf("outcome = $%d", len(args)))
	}

	query := `SELECT ` + turnColumns + ` FROM turns`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, turn DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := c.pool.Query(ctx, query, args...)
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
	rows, err := c.pool.Query(ctx, `
SELECT session_id,
       COUNT(*)::int,
       COUNT(*) FILTER (WHERE outcome = 'committed')::int,
       MIN(created_at),
       MAX(created_at)
FROM turns
GROUP BY session_id
ORDER BY MAX(created_at) DESC
`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := []store.SessionSummary{}
	for rows.Next() {
		var s store.SessionSummary
		if err := rows.Scan(&s.SessionID, &s.Turns, &s.Committed, &s.FirstAt, &s.LastAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func (c *Client) SearchTurns(ctx context.Context, query, outcome string) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	sql := `
SELECT ` + turnColumns + `,
    ts_rank(search_vector, websearch_to_tsquery('english', $1)) AS score,
    ts_headline('english', utterance, websearch_to_tsquery('english', $1),
        'MaxFragments=1, MaxWords=20, MinWords=5, StartSel=**, StopSel=**') AS snippet
FROM turns
WHERE search_vector @@ websearch_to_tsquery('english', $1)
  AND ($2 = '' OR outcome = $2)
ORDER BY score DESC, created_at DESC
LIMIT 50
`
	rows, err := c.pool.Query(ctx, sql, query, outcome)
	if err != nil {
		return nil, fmt.Errorf("searching turns: %w", err)
	}
	defer rows.Close()

	results := []store.SearchResult{}
	for rows.Next() {
		var r store.SearchResult
		var score float32
		r.Turn, err = scanTurn(rows, &score, &r.Snippet)
		if err != nil {
			return nil, err
		}
		r.Score = float64(score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}

func (c *Client) PurgeSession(ctx context.Context, sessionID string) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM turns WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("purging session: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (c *Client) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM turns WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging turns: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTurn(row pgx.Row, extra ...any) (store.TurnRecord, error) {
	var t store.TurnRecord
	var id string
	var argsJSON []byte
	dest := append([]any{
		&id, &t.SessionID, &t.Turn, &t.Utterance, &t.Outcome, &t.Template,
		&argsJSON, &t.Prompt, &t.Choices, &t.Score, &t.Prior, &t.Reason, &t.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return t, fmt.Errorf("scanning turn: %w", err)
	}

	var err error
	if t.ID, err = uuid.Parse(id); err != nil {
		return t, fmt.Errorf("parsing turn id: %w", err)
	}
	if len(argsJSON) > 0 {
		if err := json.Unmarshal(argsJSON, &t.Args); err != nil {
			return t, fmt.Errorf("unmarshaling args: %w", err)
		}
	}
	if len(t.Args) == 0 {
		t.Args = nil
	}
	if len(t.Choices) == 0 {
		t.Choices = nil
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
