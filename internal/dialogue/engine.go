package dialogue

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"hfparse/internal/config"
	"hfparse/internal/grammar"
	"hfparse/internal/ground"
	"hfparse/internal/parser"
	"hfparse/internal/state"
)

// Engine turns utterances into committed commands, asking for
// clarification when the ranking does not settle on one reading. It holds
// no session state; callers pass State in and keep the State returned.
type Engine struct {
	model     *grammar.Model
	scorer    *parser.Scorer
	grounder  *ground.Grounder
	describer *ground.Describer
	adapter   *state.Adapter
	costs     config.CostModel
	priors    config.Priors
	cfg       config.Dialogue
	logger    *zap.Logger
}

func New(model *grammar.Model, adapter *state.Adapter, cfg config.ProjectConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = state.NewAdapter()
	}
	return &Engine{
		model:     model,
		scorer:    parser.NewScorer(model, cfg.Scoring, logger.Named("scorer")),
		grounder:  ground.New(model, cfg.Grounding),
		describer: ground.NewDescriber(model),
		adapter:   adapter,
		costs:     cfg.Scoring,
		priors:    cfg.Priors,
		cfg:       cfg.Dialogue,
		logger:    logger,
	}
}

func (e *Engine) Model() *grammar.Model {
	return e.model
}

func (e *Engine) Adapter() *state.Adapter {
	return e.adapter
}

func (e *Engine) Grounder() *ground.Grounder {
	return e.grounder
}

func (e *Engine) Describer() *ground.Describer {
	return e.describer
}

// Rank scores u against the latest state without touching any session.
func (e *Engine) Rank(u parser.Utterance) []parser.CommandParse {
	return e.scorer.Rank(u, e.context(State{}))
}

// Turn processes one utterance.
func (e *Engine) Turn(st State, u parser.Utterance) (Outcome, State) {
	st.Turn++
	ctx := e.context(st)
	log := e.logger.With(zap.String("session", st.SessionID), zap.Int("turn", st.Turn))

	if st.Phase != PhaseIdle {
		if e.cancels(u) {
			log.Info("clarification cancelled", zap.String("phase", st.Phase.String()))
			return Outcome{Kind: OutcomeCancelled}, st.Reset()
		}
		return e.answer(st, u, ctx, log)
	}

	if u.Empty() {
		return e.notUnderstood(st, nil, &NoViableTemplateError{Empty: true, Threshold: e.costs.AcceptThreshold}, log)
	}
	ranked := e.scorer.Rank(u, ctx)
	return e.decide(st, ranked, ctx, log)
}

func (e *Engine) context(st State) *state.Context {
	snap := e.adapter.Snapshot()
	if err := snap.Err(); err != nil {
		e.logger.Warn("scoring without full robot state", zap.Error(err), zap.String("session", st.SessionID))
	}
	return state.NewContext(e.model, snap, e.priors).WithFallback(e.priors.SideParam, st.Context.LastSide)
}

func (e *Engine) decide(st State, ranked []parser.CommandParse, ctx *state.Context, log *zap.Logger) (Outcome, State) {
	if len(ranked) == 0 {
		return e.notUnderstood(st, ranked, &NoViableTemplateError{Empty: true, Threshold: e.costs.AcceptThreshold}, log)
	}
	if best := parser.Cost(ranked[0], e.costs); best > e.costs.AcceptThreshold {
		return e.notUnderstood(st, ranked, &NoViableTemplateError{Best: best, Threshold: e.costs.AcceptThreshold}, log)
	}

	window := distinctParses(parser.Window(ranked, e.costs, e.cfg.ClarifyEpsilon))
	if templates := templateNames(window); len(templates) > 1 {
		req := e.commandRequest(window)
		log.Info("asking which command", zap.Strings("templates", templates))
		out := Outcome{Kind: OutcomeClarify, Clarification: req, Ranked: ranked}
		return out, st.await(PhaseAwaitingCommand, req, window)
	}
	return e.resolve(st, window, ctx, ranked, log)
}

// resolve settles candidates that share one template: differing slots
// first, then unresolved slots, then object references.
func (e *Engine) resolve(st State, cands []parser.CommandParse, ctx *state.Context, ranked []parser.CommandParse, log *zap.Logger) (Outcome, State) {
	if len(cands) > 1 {
		if slot := firstDifferingSlot(cands); slot != "" {
			req := e.slotRequest(slot, cands)
			log.Info("asking which argument", zap.String("template", cands[0].Template), zap.String("slot", slot))
			out := Outcome{Kind: OutcomeClarify, Clarification: req, Ranked: ranked}
			return out, st.await(PhaseAwaitingArgument, req, cands)
		}
	}

	p := cands[0].Clone()
	if missing := p.Unresolved(); len(missing) > 0 {
		req := e.unresolvedRequest(p.Template, missing[0])
		log.Info("asking for a missing argument", zap.String("template", p.Template), zap.Strings("slots", missing))
		out := Outcome{
			Kind:          OutcomeClarify,
			Clarification: req,
			Ranked:        ranked,
			Reason:        &UnresolvedSlotError{Template: p.Template, Slots: missing},
		}
		return out, st.await(PhaseAwaitingArgument, req, []parser.CommandParse{p})
	}

	world := ctx.Snapshot().World
	for _, v := range p.Slots {
		if v.Kind != grammar.SlotObject || v.Object != "" {
			continue
		}
		res := e.grounder.Ground(v.Tokens, world)
		if id, ok := res.Resolved(); ok {
			v.Object = id
			p.SetSlot(v)
			continue
		}
		tied := res.Maximal()
		if len(tied) == 0 {
			return e.notUnderstood(st, ranked, fmt.Errorf("grounding %q: %w", v.Phrase, state.ErrStateUnavailable), log)
		}
		req := e.objectRequest(v.Slot, tied, world)
		log.Info("asking which object", zap.String("phrase", v.Phrase), zap.Strings("objects", tied))
		out := Outcome{
			Kind:          OutcomeClarify,
			Clarification: req,
			Ranked:        ranked,
			Reason:        &AmbiguousGroundingError{Phrase: v.Phrase, Objects: tied},
		}
		return out, st.await(PhaseAwaitingArgument, req, []parser.CommandParse{p})
	}

	if req := e.settleHand(&p, ctx, log); req != nil {
		log.Info("asking which hand", zap.String("template", p.Template), zap.Strings("hands", req.Values()))
		out := Outcome{Kind: OutcomeClarify, Clarification: req, Ranked: ranked}
		return out, st.await(PhaseAwaitingArgument, req, []parser.CommandParse{p})
	}
	return e.commit(st, p, ranked, log)
}

func (e *Engine) commit(st State, p parser.CommandParse, ranked []parser.CommandParse, log *zap.Logger) (Outcome, State) {
	if side, ok := p.Slot(e.priors.SideParam); ok && side.Option != "" {
		st.Context.LastSide = side.Option
	}
	st.Context.LastAction = p.Template
	log.Info("committed command", zap.String("command", p.String()), zap.Float64("score", p.Score))
	return Outcome{Kind: OutcomeCommitted, Command: &p, Ranked: ranked}, st.Reset()
}

func (e *Engine) notUnderstood(st State, ranked []parser.CommandParse, reason error, log *zap.Logger) (Outcome, State) {
	log.Info("utterance not understood", zap.Error(reason))
	return Outcome{Kind: OutcomeNotUnderstood, Ranked: ranked, Reason: reason}, st.Reset()
}

// cancels reports whether u names the cancel option anywhere, by one of
// its phrases or by the option name itself. The name works even when the
// grammar does not define the option.
func (e *Engine) cancels(u parser.Utterance) bool {
	if e.cfg.CancelOption == "" {
		return false
	}
	if word := grammar.Words(humanize(e.cfg.CancelOption)); len(word) > 0 {
		for i := 0; i+len(word) <= len(u.Tokens); i++ {
			if slices.Equal(u.Tokens[i:i+len(word)], word) {
				return true
			}
		}
	}
	idx := e.model.Index()
	for i := range u.Tokens {
		for _, m := range idx.MatchAt(u.Tokens, i) {
			for _, b := range m.Bindings {
				if b.Option.Name == e.cfg.CancelOption {
					return true
				}
			}
		}
	}
	return false
}

// distinctParses drops readings that repeat an earlier signature.
func distinctParses(parses []parser.CommandParse) []parser.CommandParse {
	seen := make(map[string]struct{}, len(parses))
	out := make([]parser.CommandParse, 0, len(parses))
	for _, p := range parses {
		sig := p.Signature()
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, p)
	}
	return out
}

func templateNames(parses []parser.CommandParse) []string {
	var out []string
	for _, p := range parses {
		if !slices.Contains(out, p.Template) {
			out = append(out, p.Template)
		}
	}
	return out
}

// firstDifferingSlot returns the first non-object slot whose option
// differs between candidates of the same template.
func firstDifferingSlot(cands []parser.CommandParse) string {
	for i, v := range cands[0].Slots {
		if v.Kind == grammar.SlotObject {
			continue
		}
		for _, other := range cands[1:] {
			if other.Slots[i].Option != v.Option {
				return v.Slot
			}
		}
	}
	return ""
}

func humanize(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
