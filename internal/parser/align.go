package parser

import (
	"strconv"
	"strings"

	"hfparse/internal/config"
	"hfparse/internal/grammar"
)

// maxAlternatives bounds the co-optimal readings kept per search state.
const maxAlternatives = 8

// unit is a phrase that can be consumed at a token position.
type unit struct {
	grammar.PhraseMatch
	cost float64
}

// lattice holds, per token position, the phrases that start there. It is
// built once per utterance and shared by every template.
type lattice [][]unit

func buildLattice(idx *grammar.Index, tokens []string, costs config.CostModel) lattice {
	out := make(lattice, len(tokens))
	for i, token := range tokens {
		matches := idx.MatchAt(tokens, i)
		if len(matches) == 0 && costs.FuzzyMaxDistance > 0 && len(token) >= costs.FuzzyMinLength {
			matches = idx.FuzzyAt(tokens, i, fuzzyLimit(len(token), costs.FuzzyMaxDistance))
		}
		for _, m := range matches {
			out[i] = append(out[i], unit{PhraseMatch: m, cost: float64(m.Distance) * costs.FuzzyEdit})
		}
	}
	return out
}

func fuzzyLimit(n, limit int) int {
	if n < 6 {
		return min(1, limit)
	}
	return limit
}

type stepKind int

const (
	stepBind stepKind = iota
	stepDefault
	stepUnresolved
	stepObject
	stepSkip
)

type step struct {
	kind   stepKind
	slot   int
	option string
	start  int
	end    int
	text   string
	reason SkipReason
	cost   float64
	fuzzy  bool
	object bool
}

type completion struct {
	cost   float64
	steps  []step
	refLen int
	sig    string
}

// aligner runs a monotone alignment of one utterance against one template.
// Search states are (token, slot, options bound so far) and are memoized.
type aligner struct {
	model  *grammar.Model
	tmpl   *grammar.Template
	tokens []string
	lat    lattice
	costs  config.CostModel
	ctx    Context

	bound []string
	memo  map[string][]completion
}

func newAligner(model *grammar.Model, tmpl *grammar.Template, tokens []string, lat lattice, costs config.CostModel, ctx Context) *aligner {
	return &aligner{
		model:  model,
		tmpl:   tmpl,
		tokens: tokens,
		lat:    lat,
		costs:  costs,
		ctx:    ctx,
		bound:  make([]string, len(tmpl.Slots)),
		memo:   make(map[string][]completion),
	}
}

func (a *aligner) run() []CommandParse {
	completions := a.solve(0, 0)
	out := make([]CommandParse, 0, len(completions))
	for _, c := range completions {
		out = append(out, a.parse(c))
	}
	return out
}

func (a *aligner) solve(i, j int) []completion {
	n, m := len(a.tokens), len(a.tmpl.Slots)
	if i == n && j == m {
		return []completion{{}}
	}
	key := a.key(i, j)
	if cached, ok := a.memo[key]; ok {
		return cached
	}

	best := &frontier{eps: a.costs.TieEpsilon}

	if i < n {
		single := false
		for _, u := range a.lat[i] {
			if u.Len == 1 {
				single = true
			}
			cost, reason := a.skipCost(u, j)
			a.extend(best, step{kind: stepSkip, start: i, end: i + u.Len, text: u.Phrase.Text, reason: reason, cost: cost}, i+u.Len, j)
		}
		if !single {
			a.extend(best, step{kind: stepSkip, start: i, end: i + 1, text: a.tokens[i], reason: SkipGeneric, cost: a.costs.GenericSkip}, i+1, j)
		}
	}

	if j < m {
		slot := a.tmpl.Slots[j]
		miss := a.unresolved(j, slot)
		// A defaulted option counts as bound for the rest of the search.
		a.bound[j] = miss.option
		a.extend(best, miss, i, j+1)
		a.bound[j] = ""

		if i < n {
			if slot.Kind == grammar.SlotObject {
				for _, ref := range a.referringSpans(i) {
					a.extend(best, step{kind: stepObject, slot: j, start: i, end: ref.end, cost: ref.cost}, ref.end, j+1)
				}
			} else {
				for _, u := range a.lat[i] {
					for _, b := range u.Bindings {
						if b.Owner != slot.Param.Name {
							continue
						}
						a.bound[j] = b.Option.Name
						a.extend(best, step{
							kind:   stepBind,
							slot:   j,
							option: b.Option.Name,
							start:  i,
							end:    i + u.Len,
							text:   u.Phrase.Text,
							cost:   u.cost,
							fuzzy:  u.Distance > 0,
						}, i+u.Len, j+1)
						a.bound[j] = ""
					}
				}
			}
		}
	}

	a.memo[key] = best.items
	return best.items
}

func (a *aligner) extend(best *frontier, st step, ni, nj int) {
	for _, sub := range a.solve(ni, nj) {
		steps := make([]step, 0, len(sub.steps)+1)
		steps = append(steps, st)
		steps = append(steps, sub.steps...)

		refLen := sub.refLen
		if st.kind == stepObject {
			refLen += st.end - st.start
		}
		best.offer(completion{
			cost:   st.cost + sub.cost,
			steps:  steps,
			refLen: refLen,
			sig:    stepSig(st) + sub.sig,
		})
	}
}

// skipCost prices consuming u without binding it. A phrase that names a
// different option of a slot this template already bound is penalized
// above a plain skip.
func (a *aligner) skipCost(u unit, j int) (float64, SkipReason) {
	cost, reason := a.classifySkip(u, j)
	if u.Distance > 0 {
		return min(cost+u.cost, a.costs.GenericSkip), reason
	}
	return cost, reason
}

func (a *aligner) classifySkip(u unit, j int) (float64, SkipReason) {
	adjective := false
	for _, b := range u.Bindings {
		for s := 0; s < j; s++ {
			slot := a.tmpl.Slots[s]
			if slot.Kind == grammar.SlotObject || slot.Param.Name != b.Owner {
				continue
			}
			if a.bound[s] != "" && a.bound[s] != b.Option.Name {
				return a.costs.Ambiguity, SkipAmbiguous
			}
		}
		if a.adjective(b) {
			adjective = true
		}
	}
	if adjective {
		return a.costs.AdjectiveSkip, SkipAdjective
	}
	return a.costs.GenericSkip, SkipGeneric
}

func (a *aligner) adjective(b grammar.Binding) bool {
	if b.Option.Descriptor == "" || b.Owner != b.Option.Descriptor {
		return false
	}
	desc, ok := a.model.Descriptor(b.Option.Descriptor)
	return ok && desc.Adjective
}

func (a *aligner) unresolved(j int, slot grammar.Slot) step {
	st := step{kind: stepUnresolved, slot: j, object: slot.Kind == grammar.SlotObject}
	switch {
	case st.object:
	case slot.Verb():
		st.cost = a.costs.MissingVerb
	case slot.Kind == grammar.SlotParameter && a.ctx != nil:
		if opt, ok := a.ctx.Default(slot.Param); ok && slot.Param.Has(opt) {
			st.kind = stepDefault
			st.option = opt
			return st
		}
		st.cost = a.costs.Incomplete
	default:
		st.cost = a.costs.Incomplete
	}
	return st
}

type span struct {
	end  int
	cost float64
}

// referringSpans walks consecutive descriptor phrases from i and returns
// every prefix of that run as a candidate referring phrase.
func (a *aligner) referringSpans(i int) []span {
	var out []span
	pos, cost := i, 0.0
	for pos < len(a.tokens) {
		var pick *unit
		for k := range a.lat[pos] {
			u := &a.lat[pos][k]
			if !a.describes(u) {
				continue
			}
			if pick == nil || u.Len > pick.Len {
				pick = u
			}
		}
		if pick == nil {
			break
		}
		pos += pick.Len
		cost += pick.cost
		out = append(out, span{end: pos, cost: cost})
	}
	return out
}

func (a *aligner) describes(u *unit) bool {
	for _, b := range u.Bindings {
		if b.Option.Descriptor != "" && b.Owner == b.Option.Descriptor {
			return true
		}
	}
	return false
}

func (a *aligner) key(i, j int) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(i))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(j))
	for _, opt := range a.bound[:j] {
		b.WriteByte(',')
		b.WriteString(opt)
	}
	return b.String()
}

func (a *aligner) parse(c completion) CommandParse {
	p := CommandParse{
		Template: a.tmpl.Name,
		Score:    c.cost,
		Slots:    make([]SlotValue, len(a.tmpl.Slots)),
	}
	for k, slot := range a.tmpl.Slots {
		p.Slots[k] = SlotValue{Slot: slot.Name, Kind: slot.Kind}
	}
	for _, st := range c.steps {
		switch st.kind {
		case stepBind:
			v := &p.Slots[st.slot]
			v.Status = SlotBound
			v.Option = st.option
			v.Phrase = st.text
			v.Fuzzy = st.fuzzy
		case stepDefault:
			v := &p.Slots[st.slot]
			v.Status = SlotDefaulted
			v.Option = st.option
		case stepObject:
			v := &p.Slots[st.slot]
			v.Status = SlotBound
			v.Tokens = append([]string(nil), a.tokens[st.start:st.end]...)
			v.Phrase = strings.Join(v.Tokens, " ")
		case stepSkip:
			p.Skipped = append(p.Skipped, Skip{Index: st.start, Text: st.text, Reason: st.reason, Cost: st.cost})
		}
	}
	return p
}

func stepSig(st step) string {
	switch st.kind {
	case stepBind, stepDefault:
		return strconv.Itoa(st.slot) + "=" + st.option + ";"
	case stepUnresolved:
		if st.object {
			return ""
		}
		return strconv.Itoa(st.slot) + "=?;"
	default:
		return ""
	}
}

// frontier keeps the cheapest completions, one per distinct binding
// signature. Between equal signatures the longer referring phrase wins.
type frontier struct {
	eps   float64
	items []completion
}

func (f *frontier) offer(c completion) {
	if len(f.items) > 0 {
		best := f.items[0].cost
		switch {
		case c.cost < best-f.eps:
			f.items = f.items[:0]
		case c.cost > best+f.eps:
			return
		}
	}
	for k := range f.items {
		if f.items[k].sig == c.sig {
			if c.refLen > f.items[k].refLen {
				f.items[k] = c
			}
			return
		}
	}
	if len(f.items) < maxAlternatives {
		f.items = append(f.items, c)
	}
}
