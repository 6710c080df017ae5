package dialogue

import (
	"fmt"
	"slices"
	"strings"

	"hfparse/internal/grammar"
	"hfparse/internal/parser"
	"hfparse/internal/state"
)

func (e *Engine) commandRequest(cands []parser.CommandParse) *ClarificationRequest {
	req := &ClarificationRequest{Kind: ClarifyCommand}
	for _, name := range templateNames(cands) {
		for _, p := range cands {
			if p.Template == name {
				req.Choices = append(req.Choices, Choice{Value: name, Label: e.render(p)})
				break
			}
		}
	}
	req.Prompt = "Which command did you mean: " + joinChoices(req.Choices) + "?"
	return req
}

func (e *Engine) slotRequest(slot string, cands []parser.CommandParse) *ClarificationRequest {
	var values []string
	for _, p := range cands {
		v, _ := p.Slot(slot)
		if v.Option != "" && !slices.Contains(values, v.Option) {
			values = append(values, v.Option)
		}
	}
	if len(values) < 2 {
		values = e.parameterOptions(cands[0].Template, slot)
	}
	return e.optionRequest(slot, values)
}

func (e *Engine) unresolvedRequest(template, slot string) *ClarificationRequest {
	return e.optionRequest(slot, e.parameterOptions(template, slot))
}

func (e *Engine) optionRequest(slot string, values []string) *ClarificationRequest {
	req := &ClarificationRequest{Kind: ClarifyArgument, Slot: slot}
	for _, v := range values {
		req.Choices = append(req.Choices, Choice{Value: v, Label: e.model.Label(v)})
	}
	req.Prompt = fmt.Sprintf("Which %s did you mean: %s?", humanize(slot), joinChoices(req.Choices))
	return req
}

func (e *Engine) objectRequest(slot string, ids []string, world *state.WorldState) *ClarificationRequest {
	req := &ClarificationRequest{Kind: ClarifyArgument, Slot: slot}
	tied := world.Subset(ids)
	for _, d := range e.describer.Describe(tied) {
		req.Choices = append(req.Choices, Choice{Value: d.ID, Label: d.Text})
	}
	req.Prompt = "Which object did you mean: " + joinChoices(req.Choices) + "?"
	return req
}

func (e *Engine) parameterOptions(template, slot string) []string {
	tmpl, ok := e.model.Template(template)
	if !ok {
		return nil
	}
	i := tmpl.SlotIndex(slot)
	if i < 0 || tmpl.Slots[i].Param == nil {
		return nil
	}
	var out []string
	for _, opt := range tmpl.Slots[i].Param.Options {
		out = append(out, opt.Name)
	}
	return out
}

// render reads a parse back as words, leaving out what it does not know.
func (e *Engine) render(p parser.CommandParse) string {
	var words []string
	for _, v := range p.Slots {
		switch {
		case v.Kind == grammar.SlotObject && v.Phrase != "":
			words = append(words, v.Phrase)
		case v.Option != "":
			words = append(words, e.model.Label(v.Option))
		}
	}
	return strings.Join(words, " ")
}

func joinChoices(choices []Choice) string {
	labels := make([]string, 0, len(choices))
	for _, c := range choices {
		labels = append(labels, c.Label)
	}
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	default:
		return strings.Join(labels[:len(labels)-1], ", ") + " or " + labels[len(labels)-1]
	}
}
