package ground

import (
	"strings"

	"hfparse/internal/grammar"
	"hfparse/internal/state"
)

const articleOption = "the"

type Description struct {
	ID   string
	Text string
}

// Describer builds the shortest description that singles out each object.
type Describer struct {
	model *grammar.Model
}

func NewDescriber(model *grammar.Model) *Describer {
	return &Describer{model: model}
}

type assertion struct {
	desc *grammar.Descriptor
	opt  *grammar.Option
}

// Describe returns one description per object in world order. Nouns are
// always included; adjectives are added in descriptor order until the
// description matches a single object, preferring one adjective that does
// it alone.
func (d *Describer) Describe(world *state.WorldState) []Description {
	if world.Len() == 0 {
		return nil
	}
	out := make([]Description, 0, len(world.Objects))
	for _, obj := range world.Objects {
		out = append(out, Description{ID: obj.ID, Text: d.describe(obj, world)})
	}
	return out
}

// DescribeOne describes the object named id.
func (d *Describer) DescribeOne(id string, world *state.WorldState) string {
	obj, ok := world.Object(id)
	if !ok {
		return id
	}
	return d.describe(obj, world)
}

func (d *Describer) describe(obj state.WorldObject, world *state.WorldState) string {
	var nouns, adjectives []assertion
	for _, desc := range d.model.Descriptors() {
		for _, opt := range desc.Options {
			if opt.Name == grammar.UnknownOption || opt.Name == articleOption {
				continue
			}
			if match, _ := Asserts(obj, desc, opt); !match {
				continue
			}
			if desc.Adjective {
				adjectives = append(adjectives, assertion{desc: desc, opt: opt})
			} else {
				nouns = append(nouns, assertion{desc: desc, opt: opt})
			}
		}
	}

	chosen := nouns
	if !d.unique(chosen, world) {
		picked := false
		for _, adj := range adjectives {
			if d.unique(append(nouns[:len(nouns):len(nouns)], adj), world) {
				chosen = append(nouns[:len(nouns):len(nouns)], adj)
				picked = true
				break
			}
		}
		if !picked {
			for _, adj := range adjectives {
				if d.unique(chosen, world) {
					break
				}
				if d.narrows(chosen, adj, world) {
					chosen = append(chosen[:len(chosen):len(chosen)], adj)
				}
			}
		}
	}
	return d.render(chosen)
}

func (d *Describer) render(chosen []assertion) string {
	var words []string
	if _, ok := d.model.Option(articleOption); ok {
		words = append(words, d.model.Label(articleOption))
	}
	var nouns []string
	for _, a := range chosen {
		if a.desc.Adjective {
			words = append(words, d.model.Label(a.opt.Name))
		} else {
			nouns = append(nouns, d.model.Label(a.opt.Name))
		}
	}
	if len(nouns) == 0 {
		nouns = append(nouns, d.model.Label(grammar.UnknownOption))
	}
	return strings.Join(append(words, nouns...), " ")
}

func (d *Describer) matching(chosen []assertion, world *state.WorldState) int {
	n := 0
	for _, other := range world.Objects {
		all := true
		for _, a := range chosen {
			if match, _ := Asserts(other, a.desc, a.opt); !match {
				all = false
				break
			}
		}
		if all {
			n++
		}
	}
	return n
}

func (d *Describer) unique(chosen []assertion, world *state.WorldState) bool {
	return d.matching(chosen, world) == 1
}

func (d *Describer) narrows(chosen []assertion, adj assertion, world *state.WorldState) bool {
	with := append(chosen[:len(chosen):len(chosen)], adj)
	return d.matching(with, world) < d.matching(chosen, world)
}
