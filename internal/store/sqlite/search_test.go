package sqlite

import (
	"testing"
)

func TestToFTSQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple term", input: "box", expected: "box"},
		{name: "multiple terms", input: "red box", expected: "red AND box"},
		{name: "explicit OR", input: "cup OR bottle", expected: "cup OR bottle"},
		{name: "negation", input: "pick -left", expected: "pick NOT left"},
		{name: "leading negation dropped", input: "-left box", expected: "box"},
		{name: "phrase", input: `"pick up"`, expected: `"pick up"`},
		{name: "phrase with other term", input: `"pick up" box`, expected: `"pick up" AND box`},
		{name: "prefix search", input: "bott*", expected: "bott*"},
		{name: "NOT operator", input: "move NOT up", expected: "move NOT up"},
		{name: "punctuation is quoted", input: "obj0's box", expected: `"obj0's" AND box`},
		{name: "unterminated quote", input: `box "left hand`, expected: `box AND "left hand"`},
		{name: "bare star", input: "* box", expected: "box"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := toFTSQuery(tt.input)
			if result != tt.expected {
				t.Errorf("toFTSQuery(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
