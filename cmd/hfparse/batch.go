package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hfparse/internal/batch"
	"hfparse/internal/store"
)

func batchCmd(a *app) *cobra.Command {
	var concurrency int
	var record bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "batch <suite.yml>...",
		Short: "Replay scripted dialogues and check every outcome",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(a, args, concurrency, record, asJSON)
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Cases to run at once")
	cmd.Flags().BoolVar(&record, "record", false, "Log every turn to the configured database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print reports as JSON")
	return cmd
}

func runBatch(a *app, paths []string, concurrency int, record, asJSON bool) error {
	ctx := context.Background()

	p, err := a.loadProject()
	if err != nil {
		return err
	}

	opts := batch.Options{World: p.world, Concurrency: concurrency, Logger: a.logger}
	if record {
		var db store.Store
		db, err = openDB(ctx, p.cfg)
		if err != nil {
			return err
		}
		defer db.Close(ctx)
		opts.Recorder = db
	}

	failed := 0
	var reports []*batch.Report
	for _, path := range paths {
		suite, err := batch.LoadSuite(path)
		if err != nil {
			return err
		}
		report, err := batch.Run(ctx, p.model, *p.cfg, suite, opts)
		if err != nil {
			return err
		}
		failed += report.Failed()
		reports = append(reports, report)
	}

	if asJSON {
		if err := printJSON(os.Stdout, reports); err != nil {
			return err
		}
	} else {
		for _, report := range reports {
			fmt.Fprintf(os.Stdout, "%s: %d/%d cases passed\n", report.Suite, len(report.Cases)-report.Failed(), len(report.Cases))
			for _, c := range report.Cases {
				if c.Passed() {
					continue
				}
				fmt.Fprintf(os.Stdout, "  FAIL %s\n", c.Name)
				for _, f := range c.Failures {
					fmt.Fprintf(os.Stdout, "    - %s\n", f)
				}
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d case(s) failed", failed)
	}
	return nil
}
