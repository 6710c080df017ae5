// Package validate lints a compiled grammar, optionally against a world
// fixture. Compilation already rejects broken grammars; the checks here
// find grammars that load but parse badly.
package validate

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"hfparse/internal/config"
	"hfparse/internal/grammar"
	"hfparse/internal/ground"
	"hfparse/internal/parser"
	"hfparse/internal/phrase"
	"hfparse/internal/state"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codePhraseCollision      = "phrase_collision"
	codeIndistinguishable    = "indistinguishable_templates"
	codeMissingUnknown       = "missing_unknown_option"
	codeUnknownPropertyValue = "unknown_property_value"
	codeUnobservableOption   = "unobservable_option"
	codeCanonicalAmbiguous   = "canonical_ambiguous"
	codeCanonicalNotFirst    = "canonical_not_first"
)

type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	// Subject is the template, option, phrase or object concerned.
	Subject string `json:"subject,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

type Options struct {
	// World enables the checks that compare descriptors with real objects.
	World *state.WorldState
	// Canonical parses every canonical utterance and reports ties between
	// templates. It is the slowest check.
	Canonical bool
	Costs     config.CostModel
}

func Run(model *grammar.Model, opts Options) (*Report, error) {
	if model == nil {
		return nil, fmt.Errorf("grammar is required")
	}

	issues := make([]Issue, 0)
	issues = append(issues, phraseCollisions(model)...)
	issues = append(issues, indistinguishableTemplates(model)...)
	issues = append(issues, missingUnknown(model)...)
	if opts.World != nil {
		issues = append(issues, unknownPropertyValues(model, opts.World)...)
		issues = append(issues, unobservableOptions(model, opts.World)...)
	}
	if opts.Canonical {
		if err := opts.Costs.Validate(); err != nil {
			return nil, fmt.Errorf("canonical check: %w", err)
		}
		issues = append(issues, canonicalAmbiguities(model, opts.Costs)...)
	}
	return &Report{Issues: issues}, nil
}

// phraseCollisions finds phrases that name options of different parameters
// or descriptors. Verbs sharing a phrase are expected and left alone.
func phraseCollisions(model *grammar.Model) []Issue {
	idx := model.Index()
	seen := make(map[string]struct{})
	var issues []Issue
	for _, opt := range model.Options() {
		for _, ph := range opt.Phrases {
			if _, done := seen[ph.Text]; done {
				continue
			}
			seen[ph.Text] = struct{}{}

			var owners []string
			allVerbs := true
			for _, b := range idx.Lookup(ph.Text) {
				if b.Option.Strategy != grammar.StrategyVerb {
					allVerbs = false
				}
				if !slices.Contains(owners, b.Owner) {
					owners = append(owners, b.Owner)
				}
			}
			if len(owners) < 2 || allVerbs {
				continue
			}
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codePhraseCollision,
				Message:  fmt.Sprintf("phrase is shared by %s", strings.Join(owners, ", ")),
				Subject:  ph.Text,
			})
		}
	}
	return issues
}

// indistinguishableTemplates finds templates no utterance could tell apart.
func indistinguishableTemplates(model *grammar.Model) []Issue {
	bySignature := make(map[string][]string)
	var order []string
	for _, t := range model.Templates() {
		sig := templateSignature(t)
		if _, ok := bySignature[sig]; !ok {
			order = append(order, sig)
		}
		bySignature[sig] = append(bySignature[sig], t.Name)
	}

	var issues []Issue
	for _, sig := range order {
		names := bySignature[sig]
		if len(names) < 2 {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     codeIndistinguishable,
			Message:  "templates have the same phrases and slots",
			Subject:  strings.Join(names, ", "),
		})
	}
	return issues
}

func templateSignature(t *grammar.Template) string {
	parts := make([]string, 0, len(t.Slots))
	for _, slot := range t.Slots {
		switch slot.Kind {
		case grammar.SlotObject:
			parts = append(parts, "obj")
		case grammar.SlotLiteral:
			var texts []string
			for _, c := range grammar.Choices(slot.Param.Options) {
				texts = append(texts, c.Phrase.Text)
			}
			sort.Strings(texts)
			parts = append(parts, "["+strings.Join(texts, "|")+"]")
		default:
			parts = append(parts, slot.Name)
		}
	}
	return strings.Join(parts, " ")
}

func missingUnknown(model *grammar.Model) []Issue {
	if _, ok := model.Option(grammar.UnknownOption); ok {
		return nil
	}
	for _, t := range model.Templates() {
		if t.HasObject() {
			return []Issue{{
				Severity: SeverityWarn,
				Code:     codeMissingUnknown,
				Message:  fmt.Sprintf("templates take objects but no %q noun exists for vague references", grammar.UnknownOption),
			}}
		}
	}
	return nil
}

// unknownPropertyValues finds object properties named after a descriptor
// whose value the descriptor does not know.
func unknownPropertyValues(model *grammar.Model, world *state.WorldState) []Issue {
	var issues []Issue
	for _, obj := range world.Objects {
		for _, desc := range model.Descriptors() {
			value, ok := obj.String(desc.Name)
			if !ok {
				continue
			}
			known := slices.ContainsFunc(desc.Options, func(o *grammar.Option) bool { return o.Name == value })
			if known {
				continue
			}
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeUnknownPropertyValue,
				Message:  fmt.Sprintf("%s %q is not an option of descriptor %s", desc.Name, value, desc.Name),
				Subject:  obj.ID,
			})
		}
	}
	return issues
}

// unobservableOptions finds descriptor options that no object in world can
// be checked against. Descriptors with no observable option at all, such
// as articles, are skipped.
func unobservableOptions(model *grammar.Model, world *state.WorldState) []Issue {
	var issues []Issue
	for _, desc := range model.Descriptors() {
		var blind []string
		for _, opt := range desc.Options {
			if opt.Name == grammar.UnknownOption {
				continue
			}
			observed := false
			for _, obj := range world.Objects {
				if _, known := ground.Asserts(obj, desc, opt); known {
					observed = true
					break
				}
			}
			if !observed {
				blind = append(blind, opt.Name)
			}
		}
		if len(blind) == 0 || len(blind) == countKnown(desc) {
			continue
		}
		for _, name := range blind {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeUnobservableOption,
				Message:  fmt.Sprintf("no object in the world says whether it is %s", name),
				Subject:  name,
			})
		}
	}
	return issues
}

func countKnown(desc *grammar.Descriptor) int {
	n := 0
	for _, opt := range desc.Options {
		if opt.Name != grammar.UnknownOption {
			n++
		}
	}
	return n
}

// canonicalAmbiguities parses every canonical utterance without context and
// reports those whose own template loses or ties at the best cost.
func canonicalAmbiguities(model *grammar.Model, costs config.CostModel) []Issue {
	filler := ""
	if unknown, ok := model.Option(grammar.UnknownOption); ok {
		filler = model.Label(unknown.Name)
	}
	scorer := parser.NewScorer(model, costs, nil)
	gen := phrase.New(model)

	reported := make(map[string]struct{})
	var issues []Issue
	for name, seq := range gen.Commands() {
		text := strings.Join(seq, " ")
		if strings.Contains(text, phrase.ObjectPlaceholder) {
			if filler == "" {
				continue
			}
			text = strings.ReplaceAll(text, phrase.ObjectPlaceholder, filler)
		}

		ranked := scorer.Rank(parser.NewUtterance(text), nil)
		if len(ranked) == 0 {
			continue
		}
		best := parser.Cost(ranked[0], costs)
		var rivals []string
		own := false
		for _, p := range ranked {
			if parser.Cost(p, costs) > best+costs.TieEpsilon {
				break
			}
			if p.Template == name {
				own = true
			} else if !slices.Contains(rivals, p.Template) {
				rivals = append(rivals, p.Template)
			}
		}
		if !own {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeCanonicalNotFirst,
				Message:  fmt.Sprintf("%q reads better as %s", text, strings.Join(rivals, ", ")),
				Subject:  name,
			})
			continue
		}
		if len(rivals) == 0 {
			continue
		}
		key := name + ">" + strings.Join(rivals, ",")
		if _, done := reported[key]; done {
			continue
		}
		reported[key] = struct{}{}
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeCanonicalAmbiguous,
			Message:  fmt.Sprintf("%q also reads as %s", text, strings.Join(rivals, ", ")),
			Subject:  name,
		})
	}
	return issues
}
