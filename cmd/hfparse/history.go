package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hfparse/internal/store"
)

func historyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the turn log",
	}
	cmd.AddCommand(historyListCmd(a))
	cmd.AddCommand(historySessionsCmd(a))
	cmd.AddCommand(historySearchCmd(a))
	cmd.AddCommand(historyPurgeCmd(a))
	cmd.AddCommand(historySQLCmd(a))
	return cmd
}

// withDB loads the project and hands fn an open turn log.
func (a *app) withDB(fn func(ctx context.Context, db store.Store) error) error {
	ctx := context.Background()

	p, err := a.loadProject()
	if err != nil {
		return err
	}
	db, err := openDB(ctx, p.cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	return fn(ctx, db)
}

func historyListCmd(a *app) *cobra.Command {
	var filter store.TurnFilter
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged turns, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(ctx context.Context, db store.Store) error {
				turns, err := db.ListTurns(ctx, filter)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(os.Stdout, turns)
				}
				if len(turns) == 0 {
					fmt.Fprintln(os.Stdout, "No turns found.")
					return nil
				}
				for _, t := range turns {
					printTurn(t)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter.SessionID, "session", "", "Session to filter")
	cmd.Flags().StringVar(&filter.Outcome, "outcome", "", "Outcome to filter (committed, clarify, not_understood, cancelled)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "Most recent turns to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func historySessionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "Summarise logged sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(ctx context.Context, db store.Store) error {
				sessions, err := db.ListSessions(ctx)
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					fmt.Fprintln(os.Stdout, "No sessions found.")
					return nil
				}
				for _, s := range sessions {
					fmt.Fprintf(os.Stdout, "%s  turns=%d committed=%d  %s .. %s\n",
						s.SessionID, s.Turns, s.Committed,
						s.FirstAt.Local().Format(time.DateTime), s.LastAt.Local().Format(time.DateTime))
				}
				return nil
			})
		},
	}
}

func historySearchCmd(a *app) *cobra.Command {
	var outcome string
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Full-text search over logged utterances and prompts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return a.withDB(func(ctx context.Context, db store.Store) error {
				results, err := db.SearchTurns(ctx, query, outcome)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintln(os.Stdout, "No matches found.")
					return nil
				}
				for _, r := range results {
					fmt.Fprintf(os.Stdout, "%s #%d [%s] score=%.2f  %s\n", r.Turn.SessionID, r.Turn.Turn, r.Turn.Outcome, r.Score, r.Snippet)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "Outcome to filter")
	return cmd
}

func historyPurgeCmd(a *app) *cobra.Command {
	var sessionID string
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete logged turns by session or age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (sessionID == "") == (olderThan == 0) {
				return fmt.Errorf("exactly one of --session or --older-than is required")
			}
			return a.withDB(func(ctx context.Context, db store.Store) error {
				var n int64
				var err error
				if sessionID != "" {
					n, err = db.PurgeSession(ctx, sessionID)
				} else {
					n, err = db.PurgeBefore(ctx, time.Now().Add(-olderThan))
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Deleted %d turn(s).\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session to delete")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Delete turns older than this, e.g. 720h")
	return cmd
}

func historySQLCmd(a *app) *cobra.Command {
	var paramPairs []string
	cmd := &cobra.Command{
		Use:   "sql <query>",
		Short: "Execute a raw SQL query against the turn log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			params, err := store.ParseParamPairs(paramPairs)
			if err != nil {
				return err
			}
			return a.withDB(func(ctx context.Context, db store.Store) error {
				rows, err := db.RunSQL(ctx, query, params)
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, rows)
			})
		},
	}
	cmd.Flags().StringArrayVar(&paramPairs, "param", nil, "Query parameter as key=value (repeatable)")
	return cmd
}

func printTurn(t store.TurnRecord) {
	line := fmt.Sprintf("%s #%d %-14s %q", t.SessionID, t.Turn, t.Outcome, t.Utterance)
	switch {
	case t.Outcome == "committed":
		line += " -> " + t.Template
		for _, k := range slices.Sorted(maps.Keys(t.Args)) {
			line += fmt.Sprintf(" %s=%s", k, t.Args[k])
		}
	case t.Prompt != "":
		line += " -> " + t.Prompt
	case t.Reason != "":
		line += " (" + t.Reason + ")"
	}
	fmt.Fprintln(os.Stdout, line)
}
