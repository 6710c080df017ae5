package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hfparse/internal/dialogue"
	"hfparse/internal/parser"
	"hfparse/internal/store"
)

func replCmd(a *app) *cobra.Command {
	var worldPath string
	var record bool
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Talk to the parser interactively, answering its clarification questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(a, worldPath, record)
		},
	}
	cmd.Flags().StringVar(&worldPath, "world", "", "World fixture overriding the configured one")
	cmd.Flags().BoolVar(&record, "record", false, "Log every turn to the configured database")
	return cmd
}

func runREPL(a *app, worldPath string, record bool) error {
	ctx := context.Background()

	p, err := a.loadProject()
	if err != nil {
		return err
	}
	if err := p.worldOverride(worldPath); err != nil {
		return err
	}

	var db store.Store
	if record {
		db, err = openDB(ctx, p.cfg)
		if err != nil {
			return err
		}
		defer db.Close(ctx)
	}

	engine := p.engine(a.logger)
	st := dialogue.NewState(uuid.NewString())
	fmt.Fprintf(os.Stdout, "session %s; :reset drops a pending question, :quit leaves\n", st.SessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stdout, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case ":quit", ":q":
			return nil
		case ":reset":
			st = st.Reset()
			continue
		}

		var out dialogue.Outcome
		out, st = engine.Turn(st, parser.NewUtterance(line))
		printOutcome(os.Stdout, out)

		if db != nil {
			if err := db.RecordTurn(ctx, store.NewTurnRecord(st.SessionID, st.Turn, line, out, time.Now())); err != nil {
				a.logger.Warn("recording turn", zap.Error(err))
			}
		}
	}
	fmt.Fprintln(os.Stdout, "")
	return scanner.Err()
}
