package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hfparse/internal/ground"
	"hfparse/internal/state"
)

func describeCmd(a *app) *cobra.Command {
	var worldPath string
	cmd := &cobra.Command{
		Use:   "describe [object...]",
		Short: "Print the shortest unambiguous description of world objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(a, args, worldPath)
		},
	}
	cmd.Flags().StringVar(&worldPath, "world", "", "World fixture overriding the configured one")
	return cmd
}

func runDescribe(a *app, ids []string, worldPath string) error {
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

	d := ground.NewDescriber(p.model)
	if len(ids) == 0 {
		for _, desc := range d.Describe(world) {
			fmt.Fprintf(os.Stdout, "%s\t%s\n", desc.ID, desc.Text)
		}
		return nil
	}
	for _, id := range ids {
		if _, ok := world.Object(id); !ok {
			return fmt.Errorf("object not found: %s", id)
		}
		fmt.Fprintf(os.Stdout, "%s\t%s\n", id, d.DescribeOne(id, world))
	}
	return nil
}
