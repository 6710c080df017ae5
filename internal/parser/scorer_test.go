package parser

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"hfparse/internal/assets"
	"hfparse/internal/config"
	"hfparse/internal/grammar"
	"hfparse/internal/phrase"
)

type fakeContext struct {
	defaults map[string]string
	priors   map[string]float64
	hidden   bool
}

func (f *fakeContext) Default(param *grammar.Parameter) (string, bool) {
	v, ok := f.defaults[param.Name]
	return v, ok
}

func (f *fakeContext) Prior(p *CommandParse) float64 {
	return f.priors[p.Template]
}

func (f *fakeContext) ObjectsVisible() bool {
	return !f.hidden
}

func defaultScorer(t *testing.T) *Scorer {
	t.Helper()
	model, err := grammar.Parse(assets.Grammar)
	if err != nil {
		t.Fatalf("compiling grammar: %v", err)
	}
	return NewScorer(model, config.DefaultCostModel(), nil)
}

func slotOption(t *testing.T, p CommandParse, name string) string {
	t.Helper()
	v, ok := p.Slot(name)
	if !ok {
		t.Fatalf("%s has no slot %q", p.Template, name)
	}
	return v.Option
}

func TestRankLiteralBeatsContext(t *testing.T) {
	s := defaultScorer(t)
	ctx := &fakeContext{defaults: map[string]string{"side": "left_hand"}}

	ranked := s.Rank(FromTokens([]string{"move", "right", "hand", "up"}), ctx)
	if len(ranked) < 2 {
		t.Fatalf("expected several candidates, got %d", len(ranked))
	}
	top := ranked[0]
	if top.Template != "move_abs" {
		t.Fatalf("expected move_abs, got %s", top)
	}
	if top.Score != 0 {
		t.Fatalf("expected cost 0, got %v", top.Score)
	}
	if got := slotOption(t, top, "side"); got != "right_hand" {
		t.Fatalf("expected side=right_hand, got %q", got)
	}
	if got := slotOption(t, top, "abs_dir"); got != "up" {
		t.Fatalf("expected abs_dir=up, got %q", got)
	}
	if ranked[1].Rank == top.Rank {
		t.Fatalf("expected a unique top parse, %s ties", ranked[1])
	}
}

func TestCanonicalUtterancesRankFirst(t *testing.T) {
	s := defaultScorer(t)
	gen := phrase.New(s.Model())

	for _, tmpl := range s.Model().Templates() {
		t.Run(tmpl.Name, func(t *testing.T) {
			n := 0
			for seq := range gen.Template(tmpl) {
				n++
				text := strings.ReplaceAll(strings.Join(seq, " "), phrase.ObjectPlaceholder, "the red box")

				ranked := s.Rank(NewUtterance(text), nil)
				if len(ranked) == 0 {
					t.Errorf("no parses for %q", text)
					continue
				}
				if ranked[0].Template != tmpl.Name || ranked[0].Score != 0 {
					t.Errorf("%q: expected %s at cost 0, got %s at %v", text, tmpl.Name, ranked[0].Template, ranked[0].Score)
					continue
				}
				if len(ranked) > 1 && ranked[1].Rank == 1 {
					t.Errorf("%q: %s ties with %s", text, ranked[1], ranked[0])
				}
			}
			if n == 0 {
				t.Fatalf("no sequences generated for %s", tmpl.Name)
			}
		})
	}
}

func TestSkippedTokens(t *testing.T) {
	s := defaultScorer(t)

	t.Run("adjective skip is free", func(t *testing.T) {
		ranked := s.Rank(NewUtterance("move red right hand up"), nil)
		top := ranked[0]
		if top.Template != "move_abs" || top.Score != 0 {
			t.Fatalf("expected move_abs at 0, got %s at %v", top, top.Score)
		}
		if len(top.Skipped) != 1 || top.Skipped[0].Reason != SkipAdjective {
			t.Fatalf("expected one adjective skip, got %+v", top.Skipped)
		}
	})

	t.Run("other skips cost and keep the template on top", func(t *testing.T) {
		ranked := s.Rank(NewUtterance("move box right hand up"), nil)
		top := ranked[0]
		if top.Template != "move_abs" {
			t.Fatalf("expected move_abs, got %s", top)
		}
		if top.Score != s.Costs().GenericSkip {
			t.Fatalf("expected cost %v, got %v", s.Costs().GenericSkip, top.Score)
		}
		if ranked[1].Rank == 1 {
			t.Fatalf("expected unique top, %s ties", ranked[1])
		}
	})

	t.Run("unknown words cost a generic skip", func(t *testing.T) {
		ranked := s.Rank(NewUtterance("please open right hand"), nil)
		if ranked[0].Template != "open" || ranked[0].Score != s.Costs().GenericSkip {
			t.Fatalf("expected open at %v, got %s at %v", s.Costs().GenericSkip, ranked[0], ranked[0].Score)
		}
	})
}

func TestAmbiguitySkipCost(t *testing.T) {
	s := defaultScorer(t)
	tmpl, _ := s.Model().Template("move_abs")
	tokens := grammar.Words("move right hand up down")
	lat := buildLattice(s.Model().Index(), tokens, s.Costs())
	a := newAligner(s.Model(), tmpl, tokens, lat, s.Costs(), nil)

	var down unit
	for _, u := range lat[4] {
		if u.Phrase.Text == "down" {
			down = u
		}
	}

	cost, reason := a.skipCost(down, 3)
	if reason != SkipGeneric || cost != s.Costs().GenericSkip {
		t.Fatalf("unbound slot: got %v %s", cost, reason)
	}

	a.bound[2] = "up"
	cost, reason = a.skipCost(down, 3)
	if reason != SkipAmbiguous || cost != s.Costs().Ambiguity {
		t.Fatalf("bound slot: got %v %s", cost, reason)
	}
	if cost <= s.Costs().GenericSkip {
		t.Fatalf("ambiguity must cost more than a plain skip")
	}
}

func TestAmbiguityAfterDefault(t *testing.T) {
	s := defaultScorer(t)
	ctx := &fakeContext{defaults: map[string]string{"side": "left_hand"}}

	// The side is defaulted before "up" binds, so "right hand" names a
	// second side and is charged as ambiguous.
	ranked := s.Rank(NewUtterance("move up right hand"), ctx)
	var got *CommandParse
	for k := range ranked {
		if ranked[k].Template == "move_abs" {
			got = &ranked[k]
			break
		}
	}
	if got == nil {
		t.Fatal("no move_abs reading")
	}
	side, _ := got.Slot("side")
	if side.Status != SlotDefaulted || side.Option != "left_hand" {
		t.Fatalf("side = %q (%s), want defaulted left_hand", side.Option, side.Status)
	}
	if got.Score != s.Costs().Ambiguity {
		t.Errorf("score = %v, want %v", got.Score, s.Costs().Ambiguity)
	}
	want := []SkipReason{SkipAmbiguous}
	var reasons []SkipReason
	for _, sk := range got.Skipped {
		reasons = append(reasons, sk.Reason)
	}
	if diff := cmp.Diff(want, reasons); diff != "" {
		t.Errorf("skip reasons mismatch (-want +got):\n%s", diff)
	}
}

func TestUnresolvedSlots(t *testing.T) {
	s := defaultScorer(t)

	t.Run("default fills the slot", func(t *testing.T) {
		ctx := &fakeContext{defaults: map[string]string{"side": "left_hand"}}
		top := s.Rank(NewUtterance("move up"), ctx)[0]
		v, _ := top.Slot("side")
		if top.Template != "move_abs" || top.Score != 0 {
			t.Fatalf("expected move_abs at 0, got %s at %v", top, top.Score)
		}
		if v.Status != SlotDefaulted || v.Option != "left_hand" {
			t.Fatalf("expected defaulted left_hand, got %+v", v)
		}
	})

	t.Run("no default costs incomplete", func(t *testing.T) {
		top := s.Rank(NewUtterance("move up"), nil)[0]
		if top.Template != "move_abs" || top.Score != s.Costs().Incomplete {
			t.Fatalf("expected move_abs at %v, got %s at %v", s.Costs().Incomplete, top, top.Score)
		}
		if diff := cmp.Diff([]string{"side"}, top.Unresolved()); diff != "" {
			t.Fatalf("unresolved mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("object slots are free", func(t *testing.T) {
		top := s.Rank(NewUtterance("look at"), nil)[0]
		if top.Template != "look_at" || top.Score != 0 {
			t.Fatalf("expected look_at at 0, got %s at %v", top, top.Score)
		}
		if len(top.Unresolved()) != 0 {
			t.Fatalf("object slots are not reported unresolved: %v", top.Unresolved())
		}
	})
}

func TestReferringPhrase(t *testing.T) {
	s := defaultScorer(t)
	top := s.Rank(NewUtterance("pick up the red box with your right hand"), nil)[0]
	if top.Template != "pick_up" || top.Score != 0 {
		t.Fatalf("expected pick_up at 0, got %s at %v", top, top.Score)
	}
	obj, _ := top.Slot(grammar.ObjectSlot)
	if diff := cmp.Diff([]string{"the", "red", "box"}, obj.Tokens); diff != "" {
		t.Fatalf("referring tokens mismatch (-want +got):\n%s", diff)
	}
	if got := slotOption(t, top, "side"); got != "right_hand" {
		t.Fatalf("expected right_hand, got %q", got)
	}
}

func TestObjectTemplatesNeedObjects(t *testing.T) {
	s := defaultScorer(t)
	ctx := &fakeContext{hidden: true}
	for _, p := range s.Score(NewUtterance("look at the red box"), ctx) {
		tmpl, _ := s.Model().Template(p.Template)
		if tmpl.HasObject() {
			t.Fatalf("template %s should be excluded without objects", p.Template)
		}
	}
}

func TestFuzzyBinding(t *testing.T) {
	s := defaultScorer(t)
	top := s.Rank(NewUtterance("oppen right hand"), nil)[0]
	if top.Template != "open" {
		t.Fatalf("expected open, got %s", top)
	}
	if top.Score <= 0 || top.Score >= s.Costs().GenericSkip {
		t.Fatalf("expected a fuzzy cost below a skip, got %v", top.Score)
	}
	verb, _ := top.Slot("open")
	if !verb.Fuzzy {
		t.Fatalf("expected the verb to be a fuzzy binding")
	}
}

func TestTiesArePreserved(t *testing.T) {
	model, err := grammar.Load(filepath.Join("testdata", "ambiguous.yml"))
	if err != nil {
		t.Fatalf("loading grammar: %v", err)
	}
	s := NewScorer(model, config.DefaultCostModel(), nil)

	ranked := s.Rank(FromTokens([]string{"move", "hand", "up"}), nil)
	if len(ranked) < 2 {
		t.Fatalf("expected two candidates, got %d", len(ranked))
	}
	if ranked[0].Template != "move_abs" || ranked[1].Template != "move_rel" {
		t.Fatalf("expected move_abs then move_rel, got %s, %s", ranked[0], ranked[1])
	}
	if ranked[0].Rank != 1 || ranked[1].Rank != 1 {
		t.Fatalf("expected a shared first rank, got %d and %d", ranked[0].Rank, ranked[1].Rank)
	}
	if ranked[0].Score != ranked[1].Score {
		t.Fatalf("expected equal scores, got %v and %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestEmptyUtterance(t *testing.T) {
	s := defaultScorer(t)
	if got := s.Rank(NewUtterance("  ...  "), nil); len(got) != 0 {
		t.Fatalf("expected no parses, got %d", len(got))
	}
}
