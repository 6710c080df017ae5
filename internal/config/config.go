package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	PrecedenceLiteral = "literal"
	PrecedenceBlended = "blended"
)

type ProjectConfig struct {
	Project   string    `yaml:"project"`
	Version   int       `yaml:"version"`
	Grammar   string    `yaml:"grammar"`
	World     string    `yaml:"world"`
	Scoring   CostModel `yaml:"scoring"`
	Priors    Priors    `yaml:"priors"`
	Grounding Grounding `yaml:"grounding"`
	Dialogue  Dialogue  `yaml:"dialogue"`
	Database  Database  `yaml:"database"`
	Logging   Logging   `yaml:"logging"`

	dir string
}

// CostModel prices the alignment of an utterance against a template.
type CostModel struct {
	AdjectiveSkip    float64 `yaml:"adjective_skip"`
	GenericSkip      float64 `yaml:"generic_skip"`
	Ambiguity        float64 `yaml:"ambiguity"`
	Incomplete       float64 `yaml:"incomplete"`
	MissingVerb      float64 `yaml:"missing_verb"`
	FuzzyEdit        float64 `yaml:"fuzzy_edit"`
	FuzzyMaxDistance int     `yaml:"fuzzy_max_distance"`
	FuzzyMinLength   int     `yaml:"fuzzy_min_length"`
	AcceptThreshold  float64 `yaml:"accept_threshold"`
	TieEpsilon       float64 `yaml:"tie_epsilon"`
	Precedence       string  `yaml:"precedence"`
}

// Priors are the penalties applied to templates that make no sense in
// the current robot state.
type Priors struct {
	DumbStop     float64 `yaml:"dumb_stop"`
	DumbExecute  float64 `yaml:"dumb_execute"`
	NoActions    float64 `yaml:"no_actions"`
	GripperState float64 `yaml:"gripper_state"`
	BadPickPlace float64 `yaml:"bad_pick_place"`
	Unreachable  float64 `yaml:"unreachable"`
	// UnreachableObject applies once an object is grounded and the chosen
	// hand cannot pick it up or reach the requested spot beside it.
	UnreachableObject float64 `yaml:"unreachable_object"`
	SideParam         string  `yaml:"side_parameter"`
}

type Grounding struct {
	Adjective float64 `yaml:"adjective"`
	Noun      float64 `yaml:"noun"`
	Mismatch  float64 `yaml:"mismatch"`
}

type Dialogue struct {
	ClarifyEpsilon float64 `yaml:"clarify_epsilon"`
	MaxAttempts    int     `yaml:"max_attempts"`
	CancelOption   string  `yaml:"cancel_option"`
}

type Database struct {
	DSN string `yaml:"dsn"`
}

type Logging struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

func DefaultCostModel() CostModel {
	return CostModel{
		AdjectiveSkip:    0,
		GenericSkip:      1.0,
		Ambiguity:        1.5,
		Incomplete:       2.0,
		MissingVerb:      3.0,
		FuzzyEdit:        0.4,
		FuzzyMaxDistance: 2,
		FuzzyMinLength:   4,
		AcceptThreshold:  3.5,
		TieEpsilon:       1e-9,
		Precedence:       PrecedenceLiteral,
	}
}

func DefaultPriors() Priors {
	return Priors{
		DumbStop:          10,
		DumbExecute:       10,
		NoActions:         10,
		GripperState:      8,
		BadPickPlace:      5,
		Unreachable:       5,
		UnreachableObject: 5,
		SideParam:         "side",
	}
}

func DefaultGrounding() Grounding {
	return Grounding{Adjective: 1.0, Noun: 0.5, Mismatch: 1.0}
}

func DefaultDialogue() Dialogue {
	return Dialogue{ClarifyEpsilon: 0.25, MaxAttempts: 3, CancelOption: "stop"}
}

func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:   1,
		Scoring:   DefaultCostModel(),
		Priors:    DefaultPriors(),
		Grounding: DefaultGrounding(),
		Dialogue:  DefaultDialogue(),
		Logging:   Logging{Level: "info", Encoding: "console"},
	}
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg := DefaultProjectConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg.dir = filepath.Dir(path)
	return &cfg, nil
}

// Resolve interprets p relative to the directory holding the config file.
func (c *ProjectConfig) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c == nil || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Grammar) == "" {
		return fmt.Errorf("grammar path is required")
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return err
	}
	if cfg.Dialogue.ClarifyEpsilon < 0 {
		return fmt.Errorf("dialogue clarify_epsilon must not be negative")
	}
	if cfg.Dialogue.MaxAttempts < 1 {
		return fmt.Errorf("dialogue max_attempts must be at least 1")
	}
	if cfg.Grounding.Adjective <= 0 || cfg.Grounding.Noun <= 0 {
		return fmt.Errorf("grounding weights must be positive")
	}
	if cfg.Grounding.Mismatch < 0 {
		return fmt.Errorf("grounding mismatch must not be negative")
	}
	return nil
}

func (m CostModel) Validate() error {
	if m.AdjectiveSkip < 0 {
		return fmt.Errorf("scoring adjective_skip must not be negative")
	}
	if m.GenericSkip <= m.AdjectiveSkip {
		return fmt.Errorf("scoring generic_skip must exceed adjective_skip")
	}
	if m.Ambiguity <= m.GenericSkip {
		return fmt.Errorf("scoring ambiguity must exceed generic_skip")
	}
	if m.Incomplete <= 0 || m.MissingVerb <= 0 {
		return fmt.Errorf("scoring incomplete and missing_verb must be positive")
	}
	if m.FuzzyMaxDistance > 0 && (m.FuzzyEdit <= 0 || m.FuzzyEdit >= m.GenericSkip) {
		return fmt.Errorf("scoring fuzzy_edit must be between 0 and generic_skip")
	}
	if m.AcceptThreshold <= 0 {
		return fmt.Errorf("scoring accept_threshold must be positive")
	}
	if m.TieEpsilon < 0 {
		return fmt.Errorf("scoring tie_epsilon must not be negative")
	}
	switch m.Precedence {
	case PrecedenceLiteral, PrecedenceBlended:
	default:
		return fmt.Errorf("unsupported precedence policy: %q", m.Precedence)
	}
	return nil
}
