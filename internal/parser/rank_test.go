package parser

import (
	"testing"

	"hfparse/internal/config"
)

func parsesFor(specs ...CommandParse) []CommandParse {
	return specs
}

func TestRankPrecedence(t *testing.T) {
	literalEvidence := CommandParse{Template: "move_abs", Score: 0, Prior: 5}
	contextual := CommandParse{Template: "move_rel", Score: 1, Prior: 0}

	t.Run("literal policy trusts the words", func(t *testing.T) {
		costs := config.DefaultCostModel()
		ranked := Rank(parsesFor(contextual, literalEvidence), costs)
		if ranked[0].Template != "move_abs" {
			t.Fatalf("expected move_abs first, got %s", ranked[0].Template)
		}
	})

	t.Run("blended policy adds priors", func(t *testing.T) {
		costs := config.DefaultCostModel()
		costs.Precedence = config.PrecedenceBlended
		ranked := Rank(parsesFor(literalEvidence, contextual), costs)
		if ranked[0].Template != "move_rel" {
			t.Fatalf("expected move_rel first, got %s", ranked[0].Template)
		}
	})

	t.Run("priors separate equal scores under literal policy", func(t *testing.T) {
		costs := config.DefaultCostModel()
		a := CommandParse{Template: "stop", Score: 0, Prior: 10}
		b := CommandParse{Template: "execute", Score: 0, Prior: 0}
		ranked := Rank(parsesFor(a, b), costs)
		if ranked[0].Template != "execute" || ranked[1].Rank != 2 {
			t.Fatalf("expected execute alone on top, got %+v", ranked)
		}
	})
}

func TestRankDenseTies(t *testing.T) {
	costs := config.DefaultCostModel()
	ranked := Rank(parsesFor(
		CommandParse{Template: "c", Score: 2},
		CommandParse{Template: "a", Score: 1},
		CommandParse{Template: "b", Score: 1},
	), costs)

	want := []struct {
		name string
		rank int
	}{{"a", 1}, {"b", 1}, {"c", 2}}
	for i, w := range want {
		if ranked[i].Template != w.name || ranked[i].Rank != w.rank {
			t.Fatalf("position %d: got %s rank %d, want %s rank %d", i, ranked[i].Template, ranked[i].Rank, w.name, w.rank)
		}
	}
}

func TestWindow(t *testing.T) {
	costs := config.DefaultCostModel()
	ranked := Rank(parsesFor(
		CommandParse{Template: "a", Score: 1},
		CommandParse{Template: "b", Score: 1.2},
		CommandParse{Template: "c", Score: 1.2, Prior: 3},
		CommandParse{Template: "d", Score: 2},
	), costs)

	got := Window(ranked, costs, 0.25)
	if len(got) != 2 || got[0].Template != "a" || got[1].Template != "b" {
		t.Fatalf("unexpected window: %+v", got)
	}

	if got := Window(ranked, costs, 0); len(got) != 1 {
		t.Fatalf("expected only the best with zero epsilon, got %d", len(got))
	}
	if got := Window(nil, costs, 1); got != nil {
		t.Fatalf("expected nil window for no parses")
	}
}
