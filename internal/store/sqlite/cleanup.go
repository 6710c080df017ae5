package sqlite

import (
	"context"
	"fmt"
	"time"
)

func (c *Client) PurgeSession(ctx context.Context, sessionID string) (int64, error) {
	result, err := c.db.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("purging session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return affected, nil
}

// PurgeBefore deletes turns recorded before cutoff.
func (c *Client) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := c.db.ExecContext(ctx, `DELETE FROM turns WHERE created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purging turns: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return affected, nil
}
