package parser

import (
	"slices"

	"go.uber.org/zap"

	"hfparse/internal/config"
	"hfparse/internal/grammar"
)

// Scorer aligns utterances against every template of a grammar.
type Scorer struct {
	model  *grammar.Model
	costs  config.CostModel
	logger *zap.Logger
}

func NewScorer(model *grammar.Model, costs config.CostModel, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{model: model, costs: costs, logger: logger}
}

func (s *Scorer) Model() *grammar.Model {
	return s.model
}

func (s *Scorer) Costs() config.CostModel {
	return s.costs
}

// Score returns the cheapest readings of u for every eligible template, in
// template declaration order. Templates taking an object are skipped when
// ctx reports no visible objects.
func (s *Scorer) Score(u Utterance, ctx Context) []CommandParse {
	return s.score(u, ctx, s.model.Templates())
}

// ScoreTemplates is Score restricted to the named templates.
func (s *Scorer) ScoreTemplates(u Utterance, ctx Context, names []string) []CommandParse {
	templates := make([]*grammar.Template, 0, len(names))
	for _, t := range s.model.Templates() {
		if slices.Contains(names, t.Name) {
			templates = append(templates, t)
		}
	}
	return s.score(u, ctx, templates)
}

// Rank scores u and orders the result under the configured precedence policy.
func (s *Scorer) Rank(u Utterance, ctx Context) []CommandParse {
	ranked := Rank(s.Score(u, ctx), s.costs)
	if len(ranked) > 0 {
		s.logger.Debug("ranked utterance",
			zap.String("utterance", u.Raw),
			zap.Int("candidates", len(ranked)),
			zap.String("best", ranked[0].String()),
			zap.Float64("score", ranked[0].Score),
			zap.Float64("prior", ranked[0].Prior),
		)
	}
	return ranked
}

func (s *Scorer) score(u Utterance, ctx Context, templates []*grammar.Template) []CommandParse {
	if u.Empty() {
		return nil
	}
	objects := ctx == nil || ctx.ObjectsVisible()
	lat := buildLattice(s.model.Index(), u.Tokens, s.costs)

	var out []CommandParse
	for _, t := range templates {
		if t.HasObject() && !objects {
			continue
		}
		for _, p := range newAligner(s.model, t, u.Tokens, lat, s.costs, ctx).run() {
			if ctx != nil {
				p.Prior = ctx.Prior(&p)
			}
			out = append(out, p)
		}
	}
	return out
}
