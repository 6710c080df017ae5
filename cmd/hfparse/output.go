package main

import (
	"encoding/json"
	"fmt"
	"io"

	"hfparse/internal/config"
	"hfparse/internal/dialogue"
	"hfparse/internal/parser"
)

func printOutcome(w io.Writer, out dialogue.Outcome) {
	switch out.Kind {
	case dialogue.OutcomeCommitted:
		fmt.Fprintln(w, out.Command.String())
	case dialogue.OutcomeClarify:
		fmt.Fprintln(w, out.Clarification.Prompt)
	case dialogue.OutcomeCancelled:
		fmt.Fprintln(w, "Cancelled.")
	default:
		fmt.Fprintln(w, "Sorry, I did not understand.")
		if out.Reason != nil {
			fmt.Fprintf(w, "  (%v)\n", out.Reason)
		}
	}
}

func printRanked(w io.Writer, ranked []parser.CommandParse, costs config.CostModel, limit int) {
	for i, p := range ranked {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(w, "%2d. %-8.2f score=%.2f prior=%.2f  %s\n", p.Rank, parser.Cost(p, costs), p.Score, p.Prior, p.String())
	}
}

func printJSON(w io.Writer, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(w, string(payload))
	return nil
}
