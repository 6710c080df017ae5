package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"hfparse/internal/store"
)

func openTemp(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := New(ctx, "sqlite://"+filepath.Join(t.TempDir(), "turns.db"))
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { c.Close(ctx) })
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return c
}

func TestTurnLog(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	turns := []store.TurnRecord{
		{SessionID: "a", Turn: 1, Utterance: "pick up the red box", Outcome: "clarify", Template: "pick_up",
			Prompt: "Which object did you mean: the left most box or the right most box?", Choices: []string{"obj0", "obj1"}, CreatedAt: base},
		{SessionID: "a", Turn: 2, Utterance: "the left one", Outcome: "committed", Template: "pick_up",
			Args: map[string]string{"pick_up": "pick_up", "obj": "obj0", "side": "right_hand"}, CreatedAt: base.Add(time.Second)},
		{SessionID: "b", Turn: 1, Utterance: "banana", Outcome: "not_understood", Score: 4, Reason: "best cost 4.00 exceeds threshold 3.50", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, turn := range turns {
		if err := c.RecordTurn(ctx, turn); err != nil {
			t.Fatalf("RecordTurn: %v", err)
		}
	}

	got, err := c.ListTurns(ctx, store.TurnFilter{SessionID: "a"})
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	ignoreID := cmpopts.IgnoreFields(store.TurnRecord{}, "ID")
	if diff := cmp.Diff(turns[:2], got, ignoreID, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("session a mismatch (-want +got):\n%s", diff)
	}

	latest, err := c.ListTurns(ctx, store.TurnFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if len(latest) != 1 || latest[0].Utterance != "banana" {
		t.Errorf("latest turn = %+v", latest)
	}

	failed, err := c.ListTurns(ctx, store.TurnFilter{Outcome: "not_understood"})
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if len(failed) != 1 || failed[0].SessionID != "b" {
		t.Errorf("not understood turns = %+v", failed)
	}

	sessions, err := c.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	want := []store.SessionSummary{
		{SessionID: "b", Turns: 1, Committed: 0, FirstAt: base.Add(2 * time.Second), LastAt: base.Add(2 * time.Second)},
		{SessionID: "a", Turns: 2, Committed: 1, FirstAt: base, LastAt: base.Add(time.Second)},
	}
	if diff := cmp.Diff(want, sessions); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}

	results, err := c.SearchTurns(ctx, "red box", "")
	if err != nil {
		t.Fatalf("SearchTurns: %v", err)
	}
	if len(results) != 1 || results[0].Turn.Turn != 1 || results[0].Turn.SessionID != "a" {
		t.Errorf("search results = %+v", results)
	}

	n, err := c.PurgeSession(ctx, "a")
	if err != nil {
		t.Fatalf("PurgeSession: %v", err)
	}
	if n != 2 {
		t.Errorf("purged %d turns, want 2", n)
	}
	n, err = c.PurgeBefore(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d turns, want 1", n)
	}
	rows, err := c.RunSQL(ctx, "SELECT COUNT(*) AS n FROM turns", nil)
	if err != nil {
		t.Fatalf("RunSQL: %v", err)
	}
	if rows[0]["n"] != int64(0) {
		t.Errorf("turns left = %v", rows[0]["n"])
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	c := openTemp(t)
	if err := c.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}

func TestDriverDSN(t *testing.T) {
	tests := []struct {
		dsn     string
		dir     string
		want    string
		wantErr bool
	}{
		{dsn: "sqlite://:memory:", want: ":memory:"},
		{dsn: "sqlite:///var/lib/hfparse.db", dir: "/srv", want: "/var/lib/hfparse.db"},
		{dsn: "sqlite://hfparse.db", want: "./hfparse.db"},
		{dsn: "sqlite://hfparse.db", dir: "/srv/robot", want: "/srv/robot/hfparse.db"},
		{dsn: "sqlite://data/turns.db?_pragma=foo", want: "./data/turns.db?_pragma=foo"},
		{dsn: "sqlite://my%20turns.db", dir: "/srv", want: "/srv/my turns.db"},
		{dsn: "sqlite://", wantErr: true},
		{dsn: "postgres://localhost/hfparse", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.dsn+"@"+tt.dir, func(t *testing.T) {
			got, err := driverDSN(tt.dsn, tt.dir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("driverDSN error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("driverDSN(%q, %q) = %q, want %q", tt.dsn, tt.dir, got, tt.want)
			}
		})
	}
}
