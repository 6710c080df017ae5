package phrase

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"hfparse/internal/grammar"
)

const smallGrammar = `
commands:
  open: [open, side]
  look_at: [look_at, obj]
parameters:
  side: [right_hand, left_hand]
descriptors:
  color: {adjective: true, options: [red, blue]}
  type: {adjective: false, options: [box]}
options:
  open: {phrases: [open, release], strategy: verb}
  look_at: {phrases: [look at], strategy: verb}
  right_hand: {phrases: [right hand]}
  left_hand: {phrases: [left hand]}
  red: {phrases: [red]}
  blue: {phrases: [blue]}
  box: {phrases: [box, crate], strategy: noun}
`

func newGenerator(t *testing.T) (*Generator, *grammar.Model) {
	t.Helper()
	model, err := grammar.Parse([]byte(smallGrammar))
	if err != nil {
		t.Fatalf("compiling grammar: %v", err)
	}
	return New(model), model
}

func TestTemplateSequences(t *testing.T) {
	gen, model := newGenerator(t)
	open, _ := model.Template("open")

	var got []string
	for seq := range gen.Template(open) {
		got = append(got, strings.Join(seq, " | "))
	}
	want := []string{
		"open | right hand",
		"open | left hand",
		"release | right hand",
		"release | left hand",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sequences mismatch (-want +got):\n%s", diff)
	}
	if n := gen.CountTemplate(open); n != len(want) {
		t.Fatalf("CountTemplate = %d, want %d", n, len(want))
	}
}

func TestObjectSlotsUsePlaceholder(t *testing.T) {
	gen, model := newGenerator(t)
	look, _ := model.Template("look_at")
	for seq := range gen.Template(look) {
		if seq[len(seq)-1] != ObjectPlaceholder {
			t.Fatalf("expected placeholder, got %v", seq)
		}
	}
}

func TestCommandsRestartable(t *testing.T) {
	gen, _ := newGenerator(t)
	collect := func() []string {
		var out []string
		for name, seq := range gen.Commands() {
			out = append(out, name+": "+strings.Join(seq, " "))
		}
		return out
	}
	first := collect()
	second := collect()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second pass differs (-first +second):\n%s", diff)
	}
	if len(first) != gen.CountCommands() {
		t.Fatalf("got %d sequences, CountCommands = %d", len(first), gen.CountCommands())
	}
}

func TestCommandsStopEarly(t *testing.T) {
	gen, _ := newGenerator(t)
	n := 0
	for range gen.Commands() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("expected to stop after 2, got %d", n)
	}
}

func TestDescriptions(t *testing.T) {
	gen, _ := newGenerator(t)
	var got []string
	for seq := range gen.Descriptions() {
		got = append(got, strings.Join(seq, " "))
	}
	want := []string{"box", "crate", "red box", "red crate", "blue box", "blue crate"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("descriptions mismatch (-want +got):\n%s", diff)
	}
	if slices.Contains(got, "red") {
		t.Fatalf("non-adjective descriptor must always be present")
	}
}
