package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hfparse/internal/grammar"
	"hfparse/internal/ground"
	"hfparse/internal/state"
)

func groundCmd(a *app) *cobra.Command {
	var worldPath string
	cmd := &cobra.Command{
		Use:   "ground <phrase>",
		Short: "Rank the objects of the world against a referring phrase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGround(a, strings.Join(args, " "), worldPath)
		},
	}
	cmd.Flags().StringVar(&worldPath, "world", "", "World fixture overriding the configured one")
	return cmd
}

func runGround(a *app, text, worldPath string) error {
	p, err := a.loadProject()
	if err != nil {
		return err
	}
	if err := p.worldOverride(worldPath); err != nil {
		return err
	}
	world := p.worldState()
	if world == nil {
		return state.ErrStateUnavailable
	}

	res := ground.New(p.model, p.cfg.Grounding).Ground(grammar.Words(text), world)
	if len(res.Matched) == 0 {
		fmt.Fprintln(os.Stdout, "No descriptor words recognised.")
	} else {
		fmt.Fprintf(os.Stdout, "Matched: %s\n", strings.Join(res.Matched, ", "))
	}
	for _, ow := range res.Ranked {
		fmt.Fprintf(os.Stdout, "  %-10s %.2f\n", ow.ID, ow.Weight)
	}
	if id, ok := res.Resolved(); ok {
		fmt.Fprintf(os.Stdout, "Resolved: %s\n", id)
	} else {
		fmt.Fprintf(os.Stdout, "Ambiguous between: %s\n", strings.Join(res.Maximal(), ", "))
	}
	return nil
}
