package dialogue

import (
	"slices"

	"go.uber.org/zap"

	"hfparse/internal/grammar"
	"hfparse/internal/parser"
	"hfparse/internal/state"
)

var ordinals = map[string]int{
	"first": 1, "1st": 1, "1": 1,
	"second": 2, "2nd": 2, "2": 2, "two": 2,
	"third": 3, "3rd": 3, "3": 3, "three": 3,
	"fourth": 4, "4th": 4, "4": 4, "four": 4,
	"fifth": 5, "5th": 5, "5": 5, "five": 5,
}

// answer matches a reply against the frozen candidates of a pending
// clarification. Nothing outside the candidate set is considered.
func (e *Engine) answer(st State, u parser.Utterance, ctx *state.Context, log *zap.Logger) (Outcome, State) {
	if st.Pending == nil || len(st.Candidates) == 0 {
		st = st.Reset()
		return e.decide(st, e.scorer.Rank(u, ctx), ctx, log)
	}

	switch {
	case st.Phase == PhaseAwaitingCommand:
		return e.answerCommand(st, u, ctx, log)
	case isObjectSlot(st.Candidates[0], st.Pending.Slot):
		return e.answerObject(st, u, ctx, log)
	default:
		return e.answerOption(st, u, ctx, log)
	}
}

func (e *Engine) answerCommand(st State, u parser.Utterance, ctx *state.Context, log *zap.Logger) (Outcome, State) {
	req := st.Pending
	names := req.Values()

	chosen := ""
	var reply *parser.CommandParse
	if i, ok := ordinal(u.Tokens, len(req.Choices)); ok {
		chosen = names[i]
	} else if v := matchName(req.Choices, u); v != "" {
		chosen = v
	} else {
		ranked := parser.Rank(e.scorer.ScoreTemplates(u, ctx, names), e.costs)
		window := parser.Window(ranked, e.costs, e.cfg.ClarifyEpsilon)
		remaining := templateNames(window)
		switch {
		case len(remaining) == 1:
			chosen = remaining[0]
			reply = &window[0]
		case len(remaining) > 1 && len(remaining) < len(names):
			cands := filterTemplates(st.Candidates, remaining)
			narrowed := e.commandRequest(cands)
			log.Info("narrowed command choices", zap.Strings("templates", remaining))
			return Outcome{Kind: OutcomeClarify, Clarification: narrowed}, st.await(PhaseAwaitingCommand, narrowed, cands)
		}
	}
	if chosen == "" {
		return e.reask(st, log)
	}

	cands := filterTemplates(st.Candidates, []string{chosen})
	if reply != nil {
		for i := range cands {
			cands[i] = merge(cands[i], *reply)
		}
		cands = distinctParses(cands)
	}
	st.Attempts = 0
	return e.resolve(st, cands, ctx, nil, log)
}

func (e *Engine) answerOption(st State, u parser.Utterance, ctx *state.Context, log *zap.Logger) (Outcome, State) {
	req := st.Pending
	value := e.pickOption(req, u)
	if value == "" {
		return e.reask(st, log)
	}

	var cands []parser.CommandParse
	for _, p := range st.Candidates {
		if v, _ := p.Slot(req.Slot); v.Option == value {
			c := p.Clone()
			v.Status = parser.SlotBound
			c.SetSlot(v)
			cands = append(cands, c)
		}
	}
	if len(cands) == 0 {
		p := st.Candidates[0].Clone()
		v, _ := p.Slot(req.Slot)
		v.Status = parser.SlotBound
		v.Option = value
		v.Phrase = e.model.Label(value)
		p.SetSlot(v)
		cands = []parser.CommandParse{p}
	}
	st.Attempts = 0
	return e.resolve(st, cands, ctx, nil, log)
}

func (e *Engine) answerObject(st State, u parser.Utterance, ctx *state.Context, log *zap.Logger) (Outcome, State) {
	req := st.Pending
	id := e.pickObject(req, u, ctx.Snapshot().World)
	if id == "" {
		return e.reask(st, log)
	}

	p := st.Candidates[0].Clone()
	v, _ := p.Slot(req.Slot)
	v.Object = id
	p.SetSlot(v)
	st.Attempts = 0
	return e.resolve(st, []parser.CommandParse{p}, ctx, nil, log)
}

func (e *Engine) reask(st State, log *zap.Logger) (Outcome, State) {
	st.Attempts++
	if st.Attempts >= e.cfg.MaxAttempts {
		return e.notUnderstood(st, nil, ErrClarificationUnanswered, log)
	}
	again := *st.Pending
	again.Prompt = "Sorry, I did not get that. " + again.Prompt
	log.Info("clarification not resolved", zap.Int("attempt", st.Attempts))
	return Outcome{Kind: OutcomeClarify, Clarification: &again}, st
}

// pickOption resolves a reply to one of the offered options: by position,
// by name, by phrase and finally by shared words.
func (e *Engine) pickOption(req *ClarificationRequest, u parser.Utterance) string {
	values := req.Values()
	if i, ok := ordinal(u.Tokens, len(values)); ok {
		return values[i]
	}
	if v := matchName(req.Choices, u); v != "" {
		return v
	}

	idx := e.model.Index()
	var named []string
	for i := range u.Tokens {
		for _, m := range idx.MatchAt(u.Tokens, i) {
			for _, b := range m.Bindings {
				if slices.Contains(values, b.Option.Name) && !slices.Contains(named, b.Option.Name) {
					named = append(named, b.Option.Name)
				}
			}
		}
	}
	if len(named) == 1 {
		return named[0]
	}

	return bestOverlap(u.Tokens, len(values), func(i int) []string {
		opt, ok := e.model.Option(values[i])
		if !ok {
			return nil
		}
		var words []string
		for _, ph := range opt.Phrases {
			words = append(words, ph.Words...)
		}
		return words
	}, values)
}

func (e *Engine) pickObject(req *ClarificationRequest, u parser.Utterance, world *state.WorldState) string {
	ids := req.Values()
	if i, ok := ordinal(u.Tokens, len(ids)); ok {
		return ids[i]
	}
	if v := matchName(req.Choices, u); v != "" {
		return v
	}
	for _, tok := range u.Tokens {
		for _, id := range ids {
			if grammar.Normalize(id) == tok {
				return id
			}
		}
	}
	if id, ok := e.grounder.GroundAmong(u.Tokens, world, ids).Resolved(); ok && len(ids) > 1 {
		return id
	}
	return bestOverlap(u.Tokens, len(ids), func(i int) []string {
		return grammar.Words(req.Choices[i].Label)
	}, ids)
}

// bestOverlap picks the choice sharing the most words with tokens, if one
// choice shares strictly more than every other.
func bestOverlap(tokens []string, n int, words func(int) []string, values []string) string {
	best, bestScore, tie := -1, 0, false
	for i := 0; i < n; i++ {
		set := make(map[string]struct{})
		for _, w := range words(i) {
			set[w] = struct{}{}
		}
		score := 0
		for _, tok := range tokens {
			if _, ok := set[tok]; ok {
				score++
			}
		}
		switch {
		case score > bestScore:
			best, bestScore, tie = i, score, false
		case score == bestScore && score > 0:
			tie = true
		}
	}
	if best < 0 || tie {
		return ""
	}
	return values[best]
}

// ordinal finds a single position word such as "second" or "2".
func ordinal(tokens []string, n int) (int, bool) {
	found := 0
	for _, tok := range tokens {
		k, ok := ordinals[tok]
		if tok == "last" {
			k, ok = n, true
		}
		if !ok {
			continue
		}
		if found != 0 && found != k {
			return 0, false
		}
		found = k
	}
	if found < 1 || found > n {
		return 0, false
	}
	return found - 1, true
}

func matchName(choices []Choice, u parser.Utterance) string {
	text := grammar.Normalize(u.Raw)
	if text == "" {
		return ""
	}
	for _, c := range choices {
		if text == grammar.Normalize(c.Value) || text == grammar.Normalize(c.Label) {
			return c.Value
		}
	}
	return ""
}

func merge(cand, reply parser.CommandParse) parser.CommandParse {
	out := cand.Clone()
	for _, v := range reply.Slots {
		if v.Status != parser.SlotBound {
			continue
		}
		v.Object = ""
		out.SetSlot(v)
	}
	return out
}

func filterTemplates(parses []parser.CommandParse, names []string) []parser.CommandParse {
	var out []parser.CommandParse
	for _, p := range parses {
		if slices.Contains(names, p.Template) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func isObjectSlot(p parser.CommandParse, slot string) bool {
	v, ok := p.Slot(slot)
	return ok && v.Kind == grammar.SlotObject
}
