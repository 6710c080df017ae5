// Package batch replays scripted dialogues through the dialogue engine and
// checks each outcome, optionally logging every turn.
package batch

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"hfparse/internal/config"
	"hfparse/internal/dialogue"
	"hfparse/internal/grammar"
	"hfparse/internal/parser"
	"hfparse/internal/state"
	"hfparse/internal/store"
)

// TurnRecorder receives every processed turn. store.Store satisfies it.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, t store.TurnRecord) error
}

type Options struct {
	// World is used by cases and suites that name no fixture of their own.
	World *state.Fixture
	// Concurrency bounds the number of cases in flight; zero means one.
	Concurrency int
	Recorder    TurnRecorder
	Logger      *zap.Logger
}

func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading suite: %w", err)
	}
	suite, err := ParseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("loading suite %s: %w", path, err)
	}
	suite.dir = filepath.Dir(path)
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return suite, nil
}

func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, err
	}
	if len(suite.Cases) == 0 {
		return nil, fmt.Errorf("suite has no cases")
	}
	for i, c := range suite.Cases {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("case %d is missing a name", i)
		}
		if len(c.Turns) == 0 {
			return nil, fmt.Errorf("case %s has no turns", c.Name)
		}
		for j, step := range c.Turns {
			switch dialogue.OutcomeKind(step.Expect) {
			case "", dialogue.OutcomeCommitted, dialogue.OutcomeClarify, dialogue.OutcomeNotUnderstood, dialogue.OutcomeCancelled:
			default:
				return nil, fmt.Errorf("case %s turn %d: unknown outcome %q", c.Name, j+1, step.Expect)
			}
		}
	}
	return &suite, nil
}

// Run plays every case of suite. Case failures are reported, not returned;
// the error is for fixtures that cannot load and recorders that fail.
func Run(ctx context.Context, model *grammar.Model, cfg config.ProjectConfig, suite *Suite, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	fixtures, err := loadFixtures(suite, opts.World)
	if err != nil {
		return nil, err
	}

	report := &Report{Suite: suite.Name, Cases: make([]CaseResult, len(suite.Cases))}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, c := range suite.Cases {
		g.Go(func() error {
			res, err := runCase(ctx, model, cfg, c, fixtures[i], opts.Recorder, logger)
			if err != nil {
				return fmt.Errorf("case %s: %w", c.Name, err)
			}
			report.Cases[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func loadFixtures(suite *Suite, fallback *state.Fixture) ([]*state.Fixture, error) {
	cache := make(map[string]*state.Fixture)
	load := func(rel string) (*state.Fixture, error) {
		path := rel
		if !filepath.IsAbs(path) {
			path = filepath.Join(suite.dir, rel)
		}
		if fx, ok := cache[path]; ok {
			return fx, nil
		}
		fx, err := state.LoadFixture(path)
		if err != nil {
			return nil, err
		}
		cache[path] = fx
		return fx, nil
	}

	base := fallback
	if suite.World != "" {
		fx, err := load(suite.World)
		if err != nil {
			return nil, err
		}
		base = fx
	}
	out := make([]*state.Fixture, len(suite.Cases))
	for i, c := range suite.Cases {
		out[i] = base
		if c.World == "" {
			continue
		}
		fx, err := load(c.World)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		out[i] = fx
	}
	return out, nil
}

func runCase(ctx context.Context, model *grammar.Model, cfg config.ProjectConfig, c Case, fx *state.Fixture, rec TurnRecorder, logger *zap.Logger) (CaseResult, error) {
	adapter := state.NewAdapter()
	if fx != nil {
		fx.Apply(adapter)
	}
	sessionID := uuid.NewString()
	log := logger.With(zap.String("case", c.Name), zap.String("session", sessionID))
	engine := dialogue.New(model, adapter, cfg, log)

	res := CaseResult{Name: c.Name, SessionID: sessionID}
	st := dialogue.NewState(sessionID)
	for i, step := range c.Turns {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var out dialogue.Outcome
		out, st = engine.Turn(st, parser.NewUtterance(step.Say))
		res.Turns++

		if rec != nil {
			if err := rec.RecordTurn(ctx, store.NewTurnRecord(sessionID, st.Turn, step.Say, out, time.Now())); err != nil {
				return res, fmt.Errorf("recording turn: %w", err)
			}
		}
		for _, f := range check(step, out) {
			res.Failures = append(res.Failures, fmt.Sprintf("turn %d %q: %s", i+1, step.Say, f))
		}
	}
	if res.Passed() {
		log.Debug("case passed", zap.Int("turns", res.Turns))
	} else {
		log.Info("case failed", zap.Strings("failures", res.Failures))
	}
	return res, nil
}

func check(step Step, out dialogue.Outcome) []string {
	var failures []string
	want := dialogue.OutcomeKind(step.Expect)
	if want == "" {
		want = dialogue.OutcomeCommitted
	}
	if out.Kind != want {
		msg := fmt.Sprintf("got %s, want %s", out.Kind, want)
		if out.Reason != nil {
			msg += " (" + out.Reason.Error() + ")"
		}
		return append(failures, msg)
	}

	if step.Template != "" {
		got := ""
		switch {
		case out.Command != nil:
			got = out.Command.Template
		case len(out.Ranked) > 0:
			got = out.Ranked[0].Template
		}
		if got != step.Template {
			failures = append(failures, fmt.Sprintf("template %q, want %q", got, step.Template))
		}
	}
	if len(step.Args) > 0 {
		var got map[string]string
		if out.Command != nil {
			got = out.Command.Args()
		}
		for _, k := range slices.Sorted(maps.Keys(step.Args)) {
			if got[k] != step.Args[k] {
				failures = append(failures, fmt.Sprintf("%s = %q, want %q", k, got[k], step.Args[k]))
			}
		}
	}
	if step.Choices != nil || step.Slot != "" {
		if out.Clarification == nil {
			return append(failures, "no clarification was asked")
		}
		if step.Choices != nil && !slices.Equal(out.Clarification.Values(), step.Choices) {
			failures = append(failures, fmt.Sprintf("choices %v, want %v", out.Clarification.Values(), step.Choices))
		}
		if step.Slot != "" && out.Clarification.Slot != step.Slot {
			failures = append(failures, fmt.Sprintf("asked about %q, want %q", out.Clarification.Slot, step.Slot))
		}
	}
	return failures
}
