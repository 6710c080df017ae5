package parser

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"hfparse/internal/grammar"
)

var ErrEmptyUtterance = errors.New("utterance has no tokens")

type Utterance struct {
	Raw    string
	Tokens []string
}

func NewUtterance(raw string) Utterance {
	return Utterance{Raw: raw, Tokens: grammar.Words(raw)}
}

// FromTokens builds an utterance from an already tokenized input. Tokens
// are normalized the same way raw text is.
func FromTokens(tokens []string) Utterance {
	raw := strings.Join(tokens, " ")
	return Utterance{Raw: raw, Tokens: grammar.Words(raw)}
}

func (u Utterance) Empty() bool {
	return len(u.Tokens) == 0
}

type SlotStatus int

const (
	SlotUnresolved SlotStatus = iota
	SlotBound
	SlotDefaulted
)

func (s SlotStatus) String() string {
	switch s {
	case SlotBound:
		return "bound"
	case SlotDefaulted:
		return "defaulted"
	default:
		return "unresolved"
	}
}

type SlotValue struct {
	Slot   string
	Kind   grammar.SlotKind
	Status SlotStatus
	Option string
	Phrase string
	// Tokens is the referring phrase of an object slot.
	Tokens []string
	// Object is the grounded object identifier of an object slot.
	Object string
	Fuzzy  bool
}

// Value is the option name, or the object identifier for object slots.
func (v SlotValue) Value() string {
	if v.Kind == grammar.SlotObject {
		return v.Object
	}
	return v.Option
}

func (v SlotValue) Resolved() bool {
	if v.Kind == grammar.SlotObject {
		return v.Object != ""
	}
	return v.Status != SlotUnresolved
}

type SkipReason string

const (
	SkipAdjective SkipReason = "adjective"
	SkipGeneric   SkipReason = "generic"
	SkipAmbiguous SkipReason = "ambiguous"
)

type Skip struct {
	Index  int
	Text   string
	Reason SkipReason
	Cost   float64
}

// CommandParse is one reading of an utterance against one template.
type CommandParse struct {
	Template string
	Slots    []SlotValue
	Skipped  []Skip
	// Score is the alignment cost; Prior is the contextual penalty.
	Score float64
	Prior float64
	Rank  int
}

func (p CommandParse) Total() float64 {
	return p.Score + p.Prior
}

func (p CommandParse) Slot(name string) (SlotValue, bool) {
	for _, v := range p.Slots {
		if v.Slot == name {
			return v, true
		}
	}
	return SlotValue{}, false
}

// SetSlot replaces the slot with the same name.
func (p *CommandParse) SetSlot(v SlotValue) {
	for i := range p.Slots {
		if p.Slots[i].Slot == v.Slot {
			p.Slots[i] = v
			return
		}
	}
}

// Unresolved lists non-object slots that have neither a binding nor a default.
func (p CommandParse) Unresolved() []string {
	var out []string
	for _, v := range p.Slots {
		if v.Kind != grammar.SlotObject && v.Status == SlotUnresolved {
			out = append(out, v.Slot)
		}
	}
	return out
}

// Args maps slot names to their resolved values, skipping unresolved slots.
func (p CommandParse) Args() map[string]string {
	out := make(map[string]string, len(p.Slots))
	for _, v := range p.Slots {
		if val := v.Value(); val != "" {
			out[v.Slot] = val
		}
	}
	return out
}

func (p CommandParse) Clone() CommandParse {
	out := p
	out.Slots = make([]SlotValue, len(p.Slots))
	for i, v := range p.Slots {
		v.Tokens = slices.Clone(v.Tokens)
		out.Slots[i] = v
	}
	out.Skipped = slices.Clone(p.Skipped)
	return out
}

// Signature identifies the template and non-object bindings of a parse.
func (p CommandParse) Signature() string {
	var b strings.Builder
	b.WriteString(p.Template)
	for _, v := range p.Slots {
		if v.Kind == grammar.SlotObject {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(v.Slot)
		b.WriteByte('=')
		if v.Option == "" {
			b.WriteByte('?')
		} else {
			b.WriteString(v.Option)
		}
	}
	return b.String()
}

func (p CommandParse) String() string {
	parts := make([]string, 0, len(p.Slots))
	for _, v := range p.Slots {
		switch {
		case v.Kind == grammar.SlotObject && v.Object != "":
			parts = append(parts, fmt.Sprintf("%s=%s", v.Slot, v.Object))
		case v.Kind == grammar.SlotObject && len(v.Tokens) > 0:
			parts = append(parts, fmt.Sprintf("%s=%q", v.Slot, strings.Join(v.Tokens, " ")))
		case v.Option != "":
			parts = append(parts, fmt.Sprintf("%s=%s", v.Slot, v.Option))
		default:
			parts = append(parts, v.Slot+"=?")
		}
	}
	return fmt.Sprintf("%s(%s)", p.Template, strings.Join(parts, ", "))
}
