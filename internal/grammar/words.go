package grammar

import "strings"

// Normalize lower-cases text, turns separators into single spaces and drops
// any other punctuation. Grammar phrases and utterances go through the same
// routine so they meet on equal terms.
func Normalize(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}
	var b strings.Builder
	lastSpace := false
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		switch r {
		case ' ', '\t', '\n', '\r', '-', '_', '/', '\'':
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Words normalizes raw and splits it on whitespace.
func Words(raw string) []string {
	normalized := Normalize(raw)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}
