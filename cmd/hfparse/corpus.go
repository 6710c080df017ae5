package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hfparse/internal/phrase"
)

func corpusCmd(a *app) *cobra.Command {
	var descriptions bool
	var count bool
	var template string
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Print every phrase sequence the grammar can realize",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorpus(a, template, descriptions, count)
		},
	}
	cmd.Flags().BoolVar(&descriptions, "descriptions", false, "Enumerate object descriptions instead of commands")
	cmd.Flags().BoolVar(&count, "count", false, "Only print how many sequences there are")
	cmd.Flags().StringVar(&template, "template", "", "Restrict to one command template")
	return cmd
}

func runCorpus(a *app, template string, descriptions, count bool) error {
	p, err := a.loadProject()
	if err != nil {
		return err
	}
	gen := phrase.New(p.model)

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if descriptions {
		n := 0
		for seq := range gen.Descriptions() {
			n++
			if !count {
				fmt.Fprintln(out, joinSequence(seq))
			}
		}
		if count {
			fmt.Fprintln(out, n)
		}
		return nil
	}

	if template != "" {
		t, ok := p.model.Template(template)
		if !ok {
			return fmt.Errorf("unknown command template: %s", template)
		}
		if count {
			fmt.Fprintln(out, gen.CountTemplate(t))
			return nil
		}
		for seq := range gen.Template(t) {
			fmt.Fprintln(out, joinSequence(seq))
		}
		return nil
	}

	if count {
		fmt.Fprintln(out, gen.CountCommands())
		return nil
	}
	for name, seq := range gen.Commands() {
		fmt.Fprintf(out, "%s\t%s\n", name, joinSequence(seq))
	}
	return nil
}

// joinSequence drops the empty phrases left by omitted adjectives.
func joinSequence(seq []string) string {
	words := make([]string, 0, len(seq))
	for _, s := range seq {
		if s != "" {
			words = append(words, s)
		}
	}
	return strings.Join(words, " ")
}
