package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GrammarSpec is the declarative grammar document. Sections keep their
// document order.
type GrammarSpec struct {
	Commands    []CommandSpec
	Parameters  []ParameterSpec
	Descriptors []DescriptorSpec
	Options     []OptionSpec
	Defaults    []DefaultSpec
}

type CommandSpec struct {
	Name  string
	Slots []string
}

type ParameterSpec struct {
	Name    string
	Options []string
}

type DescriptorSpec struct {
	Name      string   `yaml:"-"`
	Options   []string `yaml:"options"`
	Adjective bool     `yaml:"adjective"`
}

type OptionSpec struct {
	Name     string   `yaml:"-"`
	Phrases  []string `yaml:"phrases"`
	Strategy string   `yaml:"strategy"`
	Property string   `yaml:"property"`
}

// DefaultSpec names the robot-state key a parameter falls back to when an
// utterance leaves it unresolved.
type DefaultSpec struct {
	Parameter string
	Source    string
}

func LoadGrammarSpec(path string) (*GrammarSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading grammar: %w", err)
	}
	spec, err := ParseGrammarSpec(data)
	if err != nil {
		return nil, fmt.Errorf("loading grammar: %w", err)
	}
	return spec, nil
}

func ParseGrammarSpec(data []byte) (*GrammarSpec, error) {
	var spec GrammarSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (g *GrammarSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: grammar must be a mapping", node.Line)
	}
	return eachPair(node, func(key string, value *yaml.Node) error {
		switch key {
		case "version":
			return nil
		case "commands":
			return eachPair(value, func(name string, v *yaml.Node) error {
				cmd := CommandSpec{Name: name}
				if err := v.Decode(&cmd.Slots); err != nil {
					return fmt.Errorf("command %s: %w", name, err)
				}
				g.Commands = append(g.Commands, cmd)
				return nil
			})
		case "parameters":
			return eachPair(value, func(name string, v *yaml.Node) error {
				param := ParameterSpec{Name: name}
				if err := v.Decode(&param.Options); err != nil {
					return fmt.Errorf("parameter %s: %w", name, err)
				}
				g.Parameters = append(g.Parameters, param)
				return nil
			})
		case "descriptors":
			return eachPair(value, func(name string, v *yaml.Node) error {
				var desc DescriptorSpec
				if err := v.Decode(&desc); err != nil {
					return fmt.Errorf("descriptor %s: %w", name, err)
				}
				desc.Name = name
				g.Descriptors = append(g.Descriptors, desc)
				return nil
			})
		case "options":
			return eachPair(value, func(name string, v *yaml.Node) error {
				var opt OptionSpec
				if err := v.Decode(&opt); err != nil {
					return fmt.Errorf("option %s: %w", name, err)
				}
				opt.Name = name
				g.Options = append(g.Options, opt)
				return nil
			})
		case "defaults":
			return eachPair(value, func(name string, v *yaml.Node) error {
				def := DefaultSpec{Parameter: name}
				if err := v.Decode(&def.Source); err != nil {
					return fmt.Errorf("default %s: %w", name, err)
				}
				g.Defaults = append(g.Defaults, def)
				return nil
			})
		default:
			return fmt.Errorf("line %d: unknown grammar section %q", value.Line, key)
		}
	})
}

func eachPair(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if err := fn(key.Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}
