package grammar

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIndexMatchAt(t *testing.T) {
	model := loadDefault(t)
	idx := model.Index()

	tokens := Words("pick up the red box with your right hand")

	t.Run("multi word phrase at start", func(t *testing.T) {
		matches := idx.MatchAt(tokens, 0)
		if len(matches) != 1 || matches[0].Phrase.Text != "pick up" || matches[0].Len != 2 {
			t.Fatalf("unexpected matches: %+v", matches)
		}
	})

	t.Run("longest phrase first", func(t *testing.T) {
		matches := idx.MatchAt(tokens, 5)
		if len(matches) == 0 || matches[0].Phrase.Text != "with your right hand" {
			t.Fatalf("unexpected matches: %+v", matches)
		}
	})

	t.Run("bindings carry owners", func(t *testing.T) {
		matches := idx.MatchAt(tokens, 7)
		var owners []string
		for _, m := range matches {
			for _, b := range m.Bindings {
				owners = append(owners, b.Owner+"/"+b.Option.Name)
			}
		}
		want := []string{"side/right_hand", "abs_dir/to_right"}
		if diff := cmp.Diff(want, owners); diff != "" {
			t.Fatalf("owners mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no match", func(t *testing.T) {
		if matches := idx.MatchAt(tokens, 6); len(matches) != 0 {
			t.Fatalf("expected no match for %q, got %+v", tokens[6], matches)
		}
	})
}

func TestIndexLookupSharedPhrase(t *testing.T) {
	model := loadDefault(t)
	var got []string
	for _, b := range model.Index().Lookup("move") {
		got = append(got, b.Option.Name)
	}
	want := []string{"move_abs_pos", "move_abs", "move_rel", "move_rel_dir"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("bindings mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexFuzzyAt(t *testing.T) {
	model := loadDefault(t)
	idx := model.Index()

	t.Run("closest word within distance", func(t *testing.T) {
		matches := idx.FuzzyAt([]string{"grean"}, 0, 1)
		if len(matches) != 1 || matches[0].Phrase.Text != "green" || matches[0].Distance != 1 {
			t.Fatalf("unexpected fuzzy matches: %+v", matches)
		}
	})

	t.Run("exact words are not fuzzy", func(t *testing.T) {
		if matches := idx.FuzzyAt([]string{"green"}, 0, 2); len(matches) != 0 {
			t.Fatalf("expected no fuzzy matches, got %+v", matches)
		}
	})

	t.Run("too far", func(t *testing.T) {
		if matches := idx.FuzzyAt([]string{"zzzzzz"}, 0, 2); len(matches) != 0 {
			t.Fatalf("expected no fuzzy matches, got %+v", matches)
		}
	})
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Pick-up the Red box, please!": "pick up the red box please",
		"  move_abs   up ":             "move abs up",
		"":                             "",
		"?!":                           "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
