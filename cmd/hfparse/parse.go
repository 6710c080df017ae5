package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hfparse/internal/dialogue"
	"hfparse/internal/parser"
	"hfparse/internal/store"
)

func parseCmd(a *app) *cobra.Command {
	var worldPath string
	var ranked int
	var asJSON bool
	var record bool
	cmd := &cobra.Command{
		Use:   "parse <utterance>",
		Short: "Parse a single utterance against the current world",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(a, strings.Join(args, " "), worldPath, ranked, asJSON, record)
		},
	}
	cmd.Flags().StringVar(&worldPath, "world", "", "World fixture overriding the configured one")
	cmd.Flags().IntVar(&ranked, "ranked", 0, "Also print the N best-ranked parses")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outcome as JSON")
	cmd.Flags().BoolVar(&record, "record", false, "Log the turn to the configured database")
	return cmd
}

func runParse(a *app, text, worldPath string, ranked int, asJSON, record bool) error {
	ctx := context.Background()

	p, err := a.loadProject()
	if err != nil {
		return err
	}
	if err := p.worldOverride(worldPath); err != nil {
		return err
	}

	engine := p.engine(a.logger)
	sessionID := uuid.NewString()
	st := dialogue.NewState(sessionID)
	out, st := engine.Turn(st, parser.NewUtterance(text))
	rec := store.NewTurnRecord(sessionID, st.Turn, text, out, time.Now())

	if record {
		db, err := openDB(ctx, p.cfg)
		if err != nil {
			return err
		}
		defer db.Close(ctx)
		if err := db.RecordTurn(ctx, rec); err != nil {
			return err
		}
	}

	if asJSON {
		return printJSON(os.Stdout, rec)
	}
	printOutcome(os.Stdout, out)
	if ranked > 0 {
		fmt.Fprintln(os.Stdout, "")
		printRanked(os.Stdout, engine.Rank(parser.NewUtterance(text)), p.cfg.Scoring, ranked)
	}
	return nil
}
