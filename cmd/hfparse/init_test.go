package main

import (
	"path/filepath"
	"strings"
	"testing"

	"hfparse/internal/config"
	"hfparse/internal/grammar"
	"hfparse/internal/state"
)

func TestRunInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "robot")
	if err := runInit(dir, "kitchen"); err != nil {
		t.Fatalf("runInit() error: %v", err)
	}

	cfg, err := config.LoadProjectConfig(filepath.Join(dir, "hfparse.yaml"))
	if err != nil {
		t.Fatalf("LoadProjectConfig() error: %v", err)
	}
	if cfg.Project != "kitchen" {
		t.Errorf("project = %q, want kitchen", cfg.Project)
	}
	if _, err := grammar.Load(cfg.Resolve(cfg.Grammar)); err != nil {
		t.Errorf("grammar.Load() error: %v", err)
	}
	if _, err := state.LoadFixture(cfg.Resolve(cfg.World)); err != nil {
		t.Errorf("LoadFixture() error: %v", err)
	}

	err = runInit(dir, "kitchen")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second runInit() error = %v, want already exists", err)
	}
}

func TestProjectConfig(t *testing.T) {
	got := string(projectConfig("demo"))
	if !strings.HasPrefix(got, "project: demo\nversion: 1\n") {
		t.Errorf("unexpected config head:\n%s", got[:min(len(got), 40)])
	}
}
