// Package ground resolves referring phrases against the objects the robot
// can see. Weights are relative evidence, not probabilities: only their
// order and ties matter.
package ground

import (
	"slices"

	"hfparse/internal/config"
	"hfparse/internal/grammar"
	"hfparse/internal/state"
)

const (
	weightEpsilon = 1e-9
	fuzzyMinLen   = 4
)

type ObjectWeight struct {
	ID     string
	Weight float64
}

type Result struct {
	Phrase []string
	// Ranked lists every candidate object, heaviest first, world order on ties.
	Ranked []ObjectWeight
	// Matched lists the descriptor options found in the phrase.
	Matched []string
}

// Resolved returns the object with a strictly greater weight than all others.
func (r Result) Resolved() (string, bool) {
	top := r.Maximal()
	if len(top) != 1 {
		return "", false
	}
	return top[0], true
}

// Maximal lists the objects sharing the highest weight.
func (r Result) Maximal() []string {
	if len(r.Ranked) == 0 {
		return nil
	}
	best := r.Ranked[0].Weight
	var out []string
	for _, ow := range r.Ranked {
		if ow.Weight < best-weightEpsilon {
			break
		}
		out = append(out, ow.ID)
	}
	return out
}

func (r Result) Weight(id string) float64 {
	for _, ow := range r.Ranked {
		if ow.ID == id {
			return ow.Weight
		}
	}
	return 0
}

type Grounder struct {
	model   *grammar.Model
	weights config.Grounding
}

func New(model *grammar.Model, weights config.Grounding) *Grounder {
	return &Grounder{model: model, weights: weights}
}

// Ground weighs every object of world against the descriptor options named
// in tokens.
func (g *Grounder) Ground(tokens []string, world *state.WorldState) Result {
	res := Result{Phrase: slices.Clone(tokens)}
	if world.Len() == 0 {
		return res
	}

	opts := g.options(tokens)
	totals := make([]float64, len(world.Objects))
	for _, opt := range opts {
		res.Matched = append(res.Matched, opt.Name)
		if opt.Name == grammar.UnknownOption {
			continue
		}
		desc, ok := g.model.Descriptor(opt.Descriptor)
		if !ok {
			continue
		}
		w := g.weights.Noun
		if desc.Adjective {
			w = g.weights.Adjective
		}
		for i, obj := range world.Objects {
			switch match, known := Asserts(obj, desc, opt); {
			case match:
				totals[i] += w
			case known && g.categorical(obj, desc):
				totals[i] -= g.weights.Mismatch
			}
		}
	}

	for i, obj := range world.Objects {
		res.Ranked = append(res.Ranked, ObjectWeight{ID: obj.ID, Weight: max(totals[i], 0)})
	}
	slices.SortStableFunc(res.Ranked, func(a, b ObjectWeight) int {
		switch {
		case a.Weight > b.Weight+weightEpsilon:
			return -1
		case a.Weight < b.Weight-weightEpsilon:
			return 1
		default:
			return 0
		}
	})
	return res
}

// GroundAmong grounds tokens against the objects named in ids only.
func (g *Grounder) GroundAmong(tokens []string, world *state.WorldState, ids []string) Result {
	return g.Ground(tokens, world.Subset(ids))
}

// options maps tokens to descriptor options, longest phrase first. Words
// that name no descriptor are ignored.
func (g *Grounder) options(tokens []string) []*grammar.Option {
	idx := g.model.Index()
	var out []*grammar.Option
	seen := make(map[string]struct{})
	for i := 0; i < len(tokens); {
		matches := idx.MatchAt(tokens, i)
		if len(matches) == 0 && len(tokens[i]) >= fuzzyMinLen {
			matches = idx.FuzzyAt(tokens, i, 1)
		}
		step := 1
		for _, m := range matches {
			opt := descriptorOption(m.Bindings)
			if opt == nil {
				continue
			}
			step = m.Len
			if _, dup := seen[opt.Name]; !dup {
				seen[opt.Name] = struct{}{}
				out = append(out, opt)
			}
			break
		}
		i += step
	}
	return out
}

func descriptorOption(bindings []grammar.Binding) *grammar.Option {
	for _, b := range bindings {
		if b.Option.Descriptor != "" && b.Owner == b.Option.Descriptor {
			return b.Option
		}
	}
	return nil
}

func (g *Grounder) categorical(obj state.WorldObject, desc *grammar.Descriptor) bool {
	_, ok := obj.String(desc.Name)
	return ok
}

// Asserts reports whether obj has the property opt names. A categorical
// descriptor is a string property named after the descriptor; otherwise
// the option is a boolean flag. known is false when obj says nothing.
func Asserts(obj state.WorldObject, desc *grammar.Descriptor, opt *grammar.Option) (match bool, known bool) {
	if v, ok := obj.String(desc.Name); ok {
		return v == opt.Name, true
	}
	if flag, ok := obj.Flag(opt.FlagProperty()); ok {
		return flag, true
	}
	return false, false
}
