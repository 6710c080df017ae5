package grammar

import (
	"fmt"
	"strings"

	"hfparse/internal/config"
)

// Load reads a grammar document from path and compiles it.
func Load(path string) (*Model, error) {
	spec, err := config.LoadGrammarSpec(path)
	if err != nil {
		return nil, err
	}
	return Compile(spec)
}

// Parse compiles a grammar document held in memory.
func Parse(data []byte) (*Model, error) {
	spec, err := config.ParseGrammarSpec(data)
	if err != nil {
		return nil, fmt.Errorf("parsing grammar: %w", err)
	}
	return Compile(spec)
}

// Compile validates spec and builds the immutable grammar tables. Every
// problem is collected into a single *GrammarError.
func Compile(spec *config.GrammarSpec) (*Model, error) {
	if spec == nil {
		return nil, &GrammarError{Issues: []Issue{{Code: CodeNoCommands, Message: "grammar is empty"}}}
	}

	c := &compiler{
		model: &Model{
			options:     make(map[string]*Option),
			parameters:  make(map[string]*Parameter),
			descriptors: make(map[string]*Descriptor),
			templates:   make(map[string]*Template),
		},
	}
	c.compileOptions(spec.Options)
	c.compileDescriptors(spec.Descriptors)
	c.compileParameters(spec.Parameters)
	c.compileDefaults(spec.Defaults)
	c.compileCommands(spec.Commands)

	if len(c.issues) > 0 {
		return nil, &GrammarError{Issues: c.issues}
	}

	c.model.index = buildIndex(c.model)
	return c.model, nil
}

type compiler struct {
	model  *Model
	issues []Issue
}

func (c *compiler) add(code, subject, format string, args ...any) {
	c.issues = append(c.issues, Issue{Code: code, Subject: subject, Message: fmt.Sprintf(format, args...)})
}

func (c *compiler) compileOptions(specs []config.OptionSpec) {
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			c.add(CodeDuplicateName, "", "option with empty name")
			continue
		}
		if _, exists := c.model.options[name]; exists {
			c.add(CodeDuplicateName, name, "option declared twice")
			continue
		}

		opt := &Option{Name: name, Property: strings.TrimSpace(spec.Property)}
		switch Strategy(strings.ToLower(strings.TrimSpace(spec.Strategy))) {
		case StrategyNone:
		case StrategyVerb:
			opt.Strategy = StrategyVerb
		case StrategyNoun:
			opt.Strategy = StrategyNoun
		default:
			c.add(CodeInvalidStrategy, name, "unknown strategy %q", spec.Strategy)
		}

		seen := make(map[string]struct{})
		for _, raw := range spec.Phrases {
			words := Words(raw)
			if len(words) == 0 {
				c.add(CodeEmptyPhrase, name, "phrase %q is empty after normalization", raw)
				continue
			}
			text := strings.Join(words, " ")
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			opt.Phrases = append(opt.Phrases, Phrase{Text: text, Words: words})
		}
		if len(spec.Phrases) == 0 {
			c.add(CodeMissingPhrases, name, "option has no phrases")
		}

		c.model.options[name] = opt
		c.model.optionOrder = append(c.model.optionOrder, opt)
	}
}

func (c *compiler) compileDescriptors(specs []config.DescriptorSpec) {
	for _, spec := range specs {
		if _, exists := c.model.descriptors[spec.Name]; exists {
			c.add(CodeDuplicateName, spec.Name, "descriptor declared twice")
			continue
		}
		desc := &Descriptor{Name: spec.Name, Adjective: spec.Adjective}
		if len(spec.Options) == 0 {
			c.add(CodeEmptyGroup, spec.Name, "descriptor has no options")
		}
		for _, name := range spec.Options {
			opt, ok := c.model.options[name]
			if !ok {
				c.add(CodeUndefinedOption, spec.Name, "descriptor references undefined option %q", name)
				continue
			}
			if opt.Descriptor != "" && opt.Descriptor != spec.Name {
				c.add(CodeDescriptorOverlap, name, "option belongs to descriptors %q and %q", opt.Descriptor, spec.Name)
				continue
			}
			opt.Descriptor = spec.Name
			desc.Options = append(desc.Options, opt)
		}
		c.model.descriptors[spec.Name] = desc
		c.model.descriptorOrder = append(c.model.descriptorOrder, desc)
	}
}

func (c *compiler) compileParameters(specs []config.ParameterSpec) {
	for _, spec := range specs {
		if spec.Name == ObjectSlot {
			c.add(CodeDuplicateName, spec.Name, "parameter name is reserved for referring phrases")
			continue
		}
		if _, exists := c.model.parameters[spec.Name]; exists {
			c.add(CodeDuplicateName, spec.Name, "parameter declared twice")
			continue
		}
		param := &Parameter{Name: spec.Name}
		if len(spec.Options) == 0 {
			c.add(CodeEmptyGroup, spec.Name, "parameter has no options")
		}
		for _, name := range spec.Options {
			opt, ok := c.model.options[name]
			if !ok {
				c.add(CodeUndefinedOption, spec.Name, "parameter references undefined option %q", name)
				continue
			}
			param.Options = append(param.Options, opt)
		}
		c.model.parameters[spec.Name] = param
		c.model.parameterOrder = append(c.model.parameterOrder, param)
	}
}

func (c *compiler) compileDefaults(specs []config.DefaultSpec) {
	for _, spec := range specs {
		param, ok := c.model.parameters[spec.Parameter]
		if !ok {
			c.add(CodeUnknownDefault, spec.Parameter, "default names an undeclared parameter")
			continue
		}
		param.Default = strings.TrimSpace(spec.Source)
	}
}

func (c *compiler) compileCommands(specs []config.CommandSpec) {
	if len(specs) == 0 {
		c.add(CodeNoCommands, "", "at least one command is required")
		return
	}
	for order, spec := range specs {
		if _, exists := c.model.templates[spec.Name]; exists {
			c.add(CodeDuplicateName, spec.Name, "command declared twice")
			continue
		}
		if len(spec.Slots) == 0 {
			c.add(CodeEmptySlots, spec.Name, "command has no slots")
			continue
		}

		tmpl := &Template{Name: spec.Name, Order: order}
		seen := make(map[string]struct{})
		for _, name := range spec.Slots {
			if _, dup := seen[name]; dup {
				c.add(CodeDuplicateName, spec.Name, "slot %q repeated", name)
				continue
			}
			seen[name] = struct{}{}

			slot, ok := c.resolveSlot(spec.Name, name)
			if ok {
				tmpl.Slots = append(tmpl.Slots, slot)
			}
		}
		c.model.templates[spec.Name] = tmpl
		c.model.templateOrder = append(c.model.templateOrder, tmpl)
	}
}

func (c *compiler) resolveSlot(command, name string) (Slot, bool) {
	if param, ok := c.model.parameters[name]; ok {
		return Slot{Name: name, Kind: SlotParameter, Param: param}, true
	}
	if name == ObjectSlot {
		if len(c.model.descriptorOrder) == 0 {
			c.add(CodeMissingDescriptors, command, "object slot requires at least one descriptor")
			return Slot{}, false
		}
		return Slot{Name: name, Kind: SlotObject}, true
	}
	if opt, ok := c.model.options[name]; ok {
		literal := &Parameter{Name: name, Options: []*Option{opt}}
		return Slot{Name: name, Kind: SlotLiteral, Param: literal}, true
	}
	c.add(CodeUndeclaredParameter, command, "slot %q is neither a parameter nor an option", name)
	return Slot{}, false
}
