package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"hfparse/internal/assets"
)

func initCmd() *cobra.Command {
	var projectName string
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a project with the stock grammar and world fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(dir, projectName)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the project into")
	return cmd
}

func runInit(dir, projectName string) error {
	files := []struct {
		name     string
		contents []byte
	}{
		{"hfparse.yaml", projectConfig(projectName)},
		{"commands.yml", assets.Grammar},
		{"world_default.yml", assets.World},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.contents, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(os.Stdout, "wrote %s\n", path)
	}
	return nil
}

// projectConfig is the stock config with the project line renamed.
func projectConfig(name string) []byte {
	lines := bytes.SplitN(assets.ProjectConfig, []byte("\n"), 2)
	out := []byte(fmt.Sprintf("project: %s", name))
	if len(lines) == 2 {
		out = append(out, '\n')
		out = append(out, lines[1]...)
	}
	return out
}
