package batch

// Suite is a YAML file of scripted dialogues. Every case runs in its own
// session against its own copy of the world.
type Suite struct {
	Name  string `yaml:"name"`
	World string `yaml:"world"`
	Cases []Case `yaml:"cases"`

	dir string
}

type Case struct {
	Name  string `yaml:"name"`
	World string `yaml:"world"`
	Turns []Step `yaml:"turns"`
}

// Step is one utterance and what should come of it. Empty expectations are
// not checked; Expect defaults to committed.
type Step struct {
	Say      string            `yaml:"say"`
	Expect   string            `yaml:"expect"`
	Template string            `yaml:"template"`
	Args     map[string]string `yaml:"args"`
	Choices  []string          `yaml:"choices"`
	Slot     string            `yaml:"slot"`
}

type CaseResult struct {
	Name      string   `json:"name"`
	SessionID string   `json:"session_id"`
	Turns     int      `json:"turns"`
	Failures  []string `json:"failures,omitempty"`
}

func (r CaseResult) Passed() bool {
	return len(r.Failures) == 0
}

type Report struct {
	Suite string       `json:"suite"`
	Cases []CaseResult `json:"cases"`
}

func (r *Report) Failed() int {
	n := 0
	for _, c := range r.Cases {
		if !c.Passed() {
			n++
		}
	}
	return n
}
