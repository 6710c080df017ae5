package grammar

import (
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
)

// PhraseMatch is a grammar phrase found in a token sequence.
type PhraseMatch struct {
	Phrase   Phrase
	Start    int
	Len      int
	Bindings []Binding
	// Distance is the edit distance of a fuzzy match, zero when exact.
	Distance int
}

// Index maps phrases back to the options they can name.
type Index struct {
	byText     map[string][]Binding
	byFirst    map[string][]Phrase
	vocabulary []string
}

func buildIndex(m *Model) *Index {
	idx := &Index{
		byText:  make(map[string][]Binding),
		byFirst: make(map[string][]Phrase),
	}

	for _, param := range m.parameterOrder {
		idx.addAll(param.Name, Choices(param.Options))
	}
	for _, tmpl := range m.templateOrder {
		for _, slot := range tmpl.Slots {
			if slot.Kind == SlotLiteral {
				idx.addAll(slot.Param.Name, Choices(slot.Param.Options))
			}
		}
	}
	for _, desc := range m.descriptorOrder {
		idx.addAll(desc.Name, Choices(desc.Options))
	}

	for first := range idx.byFirst {
		slices.SortStableFunc(idx.byFirst[first], func(a, b Phrase) int {
			return len(b.Words) - len(a.Words)
		})
	}
	for text := range idx.byText {
		if !strings.Contains(text, " ") {
			idx.vocabulary = append(idx.vocabulary, text)
		}
	}
	slices.Sort(idx.vocabulary)
	return idx
}

func (idx *Index) addAll(owner string, choices []Choice) {
	for _, choice := range choices {
		idx.add(owner, choice)
	}
}

func (idx *Index) add(owner string, choice Choice) {
	text := choice.Phrase.Text
	existing, known := idx.byText[text]
	for _, b := range existing {
		if b.Option == choice.Option && b.Owner == owner {
			return
		}
	}
	idx.byText[text] = append(existing, Binding{Option: choice.Option, Owner: owner})
	if !known {
		first := choice.Phrase.Words[0]
		idx.byFirst[first] = append(idx.byFirst[first], choice.Phrase)
	}
}

// Lookup returns every reading of a normalized phrase.
func (idx *Index) Lookup(text string) []Binding {
	return idx.byText[text]
}

// MatchAt returns the exact phrase matches starting at tokens[i], longest first.
func (idx *Index) MatchAt(tokens []string, i int) []PhraseMatch {
	if i < 0 || i >= len(tokens) {
		return nil
	}
	var out []PhraseMatch
	for _, phrase := range idx.byFirst[tokens[i]] {
		if !hasPrefixWords(tokens[i:], phrase.Words) {
			continue
		}
		out = append(out, PhraseMatch{
			Phrase:   phrase,
			Start:    i,
			Len:      len(phrase.Words),
			Bindings: idx.byText[phrase.Text],
		})
	}
	return out
}

// FuzzyAt matches tokens[i] against single-word phrases within maxDist edits.
// Only the closest candidates are returned.
func (idx *Index) FuzzyAt(tokens []string, i, maxDist int) []PhraseMatch {
	if i < 0 || i >= len(tokens) || maxDist <= 0 {
		return nil
	}
	token := tokens[i]
	if _, exact := idx.byText[token]; exact {
		return nil
	}
	best := maxDist + 1
	var out []PhraseMatch
	for _, word := range idx.vocabulary {
		if absInt(len(word)-len(token)) > maxDist {
			continue
		}
		dist := levenshtein.ComputeDistance(token, word)
		if dist > maxDist || dist > best {
			continue
		}
		if dist < best {
			best = dist
			out = out[:0]
		}
		out = append(out, PhraseMatch{
			Phrase:   Phrase{Text: word, Words: []string{word}},
			Start:    i,
			Len:      1,
			Bindings: idx.byText[word],
			Distance: dist,
		})
	}
	return out
}

// Vocabulary lists the single-word phrases of the grammar, sorted.
func (idx *Index) Vocabulary() []string {
	return idx.vocabulary
}

func hasPrefixWords(tokens, words []string) bool {
	if len(words) > len(tokens) {
		return false
	}
	for i, w := range words {
		if tokens[i] != w {
			return false
		}
	}
	return true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
