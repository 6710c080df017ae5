package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hfparse/internal/config"
	"hfparse/internal/dialogue"
	"hfparse/internal/grammar"
	"hfparse/internal/state"
)

// app holds what the subcommands share: flags and the logger.
type app struct {
	configPath string
	verbose    bool

	level  zap.AtomicLevel
	logger *zap.Logger
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if a.verbose {
		a.level.SetLevel(zap.DebugLevel)
	}
	return a.buildLogger("console")
}

func (a *app) teardown(cmd *cobra.Command, args []string) {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) buildLogger(encoding string) error {
	zc := zap.NewProductionConfig()
	zc.Level = a.level
	zc.Encoding = encoding
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if encoding == "console" {
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	a.logger = logger
	return nil
}

// applyLogging honours the logging section of the project config unless
// --verbose already asked for debug output.
func (a *app) applyLogging(l config.Logging) error {
	if !a.verbose && l.Level != "" {
		lvl, err := zapcore.ParseLevel(l.Level)
		if err != nil {
			return fmt.Errorf("logging level: %w", err)
		}
		a.level.SetLevel(lvl)
	}
	if l.Encoding != "" && l.Encoding != "console" {
		return a.buildLogger(l.Encoding)
	}
	return nil
}

type project struct {
	cfg   *config.ProjectConfig
	model *grammar.Model
	world *state.Fixture
}

func (a *app) loadProject() (*project, error) {
	cfg, err := config.LoadProjectConfig(a.configPath)
	if err != nil {
		return nil, err
	}
	if err := a.applyLogging(cfg.Logging); err != nil {
		return nil, err
	}

	model, err := grammar.Load(cfg.Resolve(cfg.Grammar))
	if err != nil {
		return nil, err
	}
	p := &project{cfg: cfg, model: model}
	if cfg.World != "" {
		p.world, err = state.LoadFixture(cfg.Resolve(cfg.World))
		if err != nil {
			return nil, err
		}
	}
	a.logger.Debug("project loaded",
		zap.String("project", cfg.Project),
		zap.Int("templates", len(model.Templates())),
		zap.Bool("world", p.world != nil))
	return p, nil
}

// worldOverride replaces the configured fixture when path is set.
func (p *project) worldOverride(path string) error {
	if path == "" {
		return nil
	}
	fx, err := state.LoadFixture(path)
	if err != nil {
		return err
	}
	p.world = fx
	return nil
}

func (p *project) worldState() *state.WorldState {
	if p.world == nil {
		return nil
	}
	w := p.world.World()
	return &w
}

func (p *project) engine(logger *zap.Logger) *dialogue.Engine {
	adapter := state.NewAdapter()
	if p.world != nil {
		p.world.Apply(adapter)
	}
	return dialogue.New(p.model, adapter, *p.cfg, logger)
}
