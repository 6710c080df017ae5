package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"hfparse/internal/validate"
)

func validateCmd(a *app) *cobra.Command {
	var canonical bool
	var noWorld bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Lint the grammar, optionally against the world fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(a, canonical, noWorld)
		},
	}
	cmd.Flags().BoolVar(&canonical, "canonical", false, "Parse every canonical command and report ties (slow)")
	cmd.Flags().BoolVar(&noWorld, "no-world", false, "Skip the checks against the world fixture")
	return cmd
}

func runValidate(a *app, canonical, noWorld bool) error {
	p, err := a.loadProject()
	if err != nil {
		return err
	}

	opts := validate.Options{Canonical: canonical, Costs: p.cfg.Scoring}
	if !noWorld {
		opts.World = p.worldState()
	}
	report, err := validate.Run(p.model, opts)
	if err != nil {
		return err
	}

	var errorIssues []validate.Issue
	var warnIssues []validate.Issue
	for _, issue := range report.Issues {
		switch issue.Severity {
		case validate.SeverityError:
			errorIssues = append(errorIssues, issue)
		case validate.SeverityWarn:
			warnIssues = append(warnIssues, issue)
		}
	}

	if len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintln(os.Stdout, "No issues found.")
		return nil
	}

	if len(errorIssues) > 0 {
		fmt.Fprintf(os.Stdout, "Errors (%d):\n", len(errorIssues))
		printIssues(os.Stdout, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(os.Stdout, "")
		}
		fmt.Fprintf(os.Stdout, "Warnings (%d):\n", len(warnIssues))
		printIssues(os.Stdout, warnIssues)
	}

	if report.HasErrors() {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printIssues(out io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		if issue.Subject == "" {
			fmt.Fprintf(out, "  - %s (%s)\n", issue.Message, issue.Code)
			continue
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", issue.Subject, issue.Message, issue.Code)
	}
}
