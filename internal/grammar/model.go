package grammar

// Model is a compiled grammar. It is immutable once Compile returns and is
// safe to share between sessions.
type Model struct {
	options     map[string]*Option
	parameters  map[string]*Parameter
	descriptors map[string]*Descriptor
	templates   map[string]*Template

	optionOrder     []*Option
	parameterOrder  []*Parameter
	descriptorOrder []*Descriptor
	templateOrder   []*Template

	index *Index
}

// Templates returns the command templates in declaration order.
func (m *Model) Templates() []*Template {
	return m.templateOrder
}

func (m *Model) Template(name string) (*Template, bool) {
	t, ok := m.templates[name]
	return t, ok
}

func (m *Model) Options() []*Option {
	return m.optionOrder
}

func (m *Model) Option(name string) (*Option, bool) {
	opt, ok := m.options[name]
	return opt, ok
}

func (m *Model) Parameters() []*Parameter {
	return m.parameterOrder
}

func (m *Model) Parameter(name string) (*Parameter, bool) {
	p, ok := m.parameters[name]
	return p, ok
}

// Descriptors returns the descriptors in declaration order, which is also
// their priority when describing objects.
func (m *Model) Descriptors() []*Descriptor {
	return m.descriptorOrder
}

func (m *Model) Descriptor(name string) (*Descriptor, bool) {
	d, ok := m.descriptors[name]
	return d, ok
}

func (m *Model) Index() *Index {
	return m.index
}

// Label is the first phrase of an option, used when talking back to the operator.
func (m *Model) Label(option string) string {
	opt, ok := m.options[option]
	if !ok || len(opt.Phrases) == 0 {
		return option
	}
	return opt.Phrases[0].Text
}
