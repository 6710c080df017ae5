package grammar

import "strings"

const (
	// ObjectSlot is the slot name filled by a referring phrase.
	ObjectSlot = "obj"
	// UnknownOption marks generic object words that carry no evidence.
	UnknownOption = "unknown"
)

type Strategy string

const (
	StrategyNone Strategy = ""
	StrategyVerb Strategy = "verb"
	StrategyNoun Strategy = "noun"
)

type SlotKind int

const (
	SlotLiteral SlotKind = iota
	SlotParameter
	SlotObject
)

func (k SlotKind) String() string {
	switch k {
	case SlotLiteral:
		return "literal"
	case SlotParameter:
		return "parameter"
	case SlotObject:
		return "object"
	default:
		return "unknown"
	}
}

type Phrase struct {
	Text  string
	Words []string
}

type Option struct {
	Name     string
	Phrases  []Phrase
	Strategy Strategy
	// Descriptor is the owning descriptor name, empty for non-descriptor options.
	Descriptor string
	// Property overrides the world property checked for flag descriptors.
	Property string
}

// FlagProperty is the boolean world-object property that asserts this
// option, e.g. left_most -> is_leftmost.
func (o *Option) FlagProperty() string {
	if o.Property != "" {
		return o.Property
	}
	return "is_" + strings.ReplaceAll(o.Name, "_", "")
}

type Parameter struct {
	Name    string
	Options []*Option
	// Default is the robot state key consulted when the slot is left unresolved.
	Default string
}

func (p *Parameter) Has(option string) bool {
	return p.Index(option) >= 0
}

func (p *Parameter) Index(option string) int {
	for i, opt := range p.Options {
		if opt.Name == option {
			return i
		}
	}
	return -1
}

type Descriptor struct {
	Name      string
	Options   []*Option
	Adjective bool
}

// Slot is one position of a template. Literal slots carry a single-option
// parameter named after the option so every non-object slot binds the same way.
type Slot struct {
	Name  string
	Kind  SlotKind
	Param *Parameter
}

func (s Slot) Verb() bool {
	return s.Kind == SlotLiteral && len(s.Param.Options) == 1 && s.Param.Options[0].Strategy == StrategyVerb
}

type Template struct {
	Name  string
	Slots []Slot
	// Order is the declaration position in the grammar document.
	Order int
}

func (t *Template) SlotIndex(name string) int {
	for i, slot := range t.Slots {
		if slot.Name == name {
			return i
		}
	}
	return -1
}

func (t *Template) HasObject() bool {
	return t.SlotIndex(ObjectSlot) >= 0
}

// Binding is one reading of a phrase: the option it names and the
// parameter, literal or descriptor that owns it.
type Binding struct {
	Option *Option
	Owner  string
}

// Choice pairs an option with one of its phrases.
type Choice struct {
	Option *Option
	Phrase Phrase
}

// Choices flattens the phrase choices of opts in declaration order. The
// phrase generator and the reverse index both walk the grammar through it.
func Choices(opts []*Option) []Choice {
	out := make([]Choice, 0, len(opts))
	for _, opt := range opts {
		for _, phrase := range opt.Phrases {
			out = append(out, Choice{Option: opt, Phrase: phrase})
		}
	}
	return out
}
