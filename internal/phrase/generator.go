// Package phrase enumerates every phrase sequence a grammar can realize.
// Command templates and object descriptions are enumerated separately so
// the two never multiply together.
package phrase

import (
	"iter"

	"hfparse/internal/grammar"
)

// ObjectPlaceholder stands in for a referring phrase inside command sequences.
const ObjectPlaceholder = "<obj>"

type Generator struct {
	model *grammar.Model
}

func New(model *grammar.Model) *Generator {
	return &Generator{model: model}
}

// Template yields every phrase sequence for t, one phrase per slot.
func (g *Generator) Template(t *grammar.Template) iter.Seq[[]string] {
	columns := make([][]string, len(t.Slots))
	for i, slot := range t.Slots {
		if slot.Kind == grammar.SlotObject {
			columns[i] = []string{ObjectPlaceholder}
			continue
		}
		columns[i] = phrases(grammar.Choices(slot.Param.Options))
	}
	return product(columns)
}

// Commands yields (template name, phrase sequence) for every template in
// declaration order.
func (g *Generator) Commands() iter.Seq2[string, []string] {
	return func(yield func(string, []string) bool) {
		for _, t := range g.model.Templates() {
			for seq := range g.Template(t) {
				if !yield(t.Name, seq) {
					return
				}
			}
		}
	}
}

// Descriptions yields every object description. Adjective descriptors may
// be left out; the others always contribute a phrase.
func (g *Generator) Descriptions() iter.Seq[[]string] {
	descriptors := g.model.Descriptors()
	columns := make([][]string, len(descriptors))
	for i, desc := range descriptors {
		choices := phrases(grammar.Choices(desc.Options))
		if desc.Adjective {
			choices = append([]string{""}, choices...)
		}
		columns[i] = choices
	}
	return func(yield func([]string) bool) {
		for seq := range product(columns) {
			out := make([]string, 0, len(seq))
			for _, p := range seq {
				if p != "" {
					out = append(out, p)
				}
			}
			if len(out) == 0 {
				continue
			}
			if !yield(out) {
				return
			}
		}
	}
}

// CountTemplate is the number of sequences Template(t) yields.
func (g *Generator) CountTemplate(t *grammar.Template) int {
	n := 1
	for _, slot := range t.Slots {
		if slot.Kind == grammar.SlotObject {
			continue
		}
		n *= len(grammar.Choices(slot.Param.Options))
	}
	return n
}

func (g *Generator) CountCommands() int {
	total := 0
	for _, t := range g.model.Templates() {
		total += g.CountTemplate(t)
	}
	return total
}

func phrases(choices []grammar.Choice) []string {
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		out = append(out, c.Phrase.Text)
	}
	return out
}

// product walks the cartesian product of columns like an odometer, last
// column fastest. Each call of the returned sequence starts over.
func product(columns [][]string) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for _, col := range columns {
			if len(col) == 0 {
				return
			}
		}
		pos := make([]int, len(columns))
		for {
			seq := make([]string, len(columns))
			for i, col := range columns {
				seq[i] = col[pos[i]]
			}
			if !yield(seq) {
				return
			}
			i := len(columns) - 1
			for ; i >= 0; i-- {
				pos[i]++
				if pos[i] < len(columns[i]) {
					break
				}
				pos[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}
