package sqlite

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"hfparse/internal/store"
)

// SearchTurns runs a web-search style query over utterances and prompts.
func (c *Client) SearchTurns(ctx context.Context, query, outcome string) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	ftsQuery := toFTSQuery(query)

	sqlQuery := `
	SELECT ` + prefixed("t", turnColumns) + `,
		   bm25(turns_fts, 4.0, 1.0) AS score,
		   snippet(turns_fts, 0, '**', '**', '...', 20) AS snippet
	FROM turns_fts
	JOIN turns t ON turns_fts.rowid = t.rowid
	WHERE turns_fts MATCH ?
	  AND (? = '' OR t.outcome = ?)
	ORDER BY score ASC, t.created_at DESC
	LIMIT 50
	`

	rows, err := c.db.QueryContext(ctx, sqlQuery, ftsQuery, outcome, outcome)
	if err != nil {
		return nil, fmt.Errorf("searching turns: %w", err)
	}
	defer rows.Close()

	results := []store.SearchResult{}
	for rows.Next() {
		var r store.SearchResult
		r.Turn, err = scanTurn(rows, &r.Score, &r.Snippet)
		if err != nil {
			return nil, err
		}
		// bm25 ranks better matches lower
		r.Score = -r.Score
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

type ftsTerm struct {
	text   string
	quoted bool
}

func splitTerms(query string) []ftsTerm {
	var terms []ftsTerm
	for {
		query = strings.TrimLeft(query, " \t")
		if query == "" {
			return terms
		}
		if rest, ok := strings.CutPrefix(query, `"`); ok {
			phrase, after, _ := strings.Cut(rest, `"`)
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				terms = append(terms, ftsTerm{text: phrase, quoted: true})
			}
			query = after
			continue
		}
		end := strings.IndexAny(query, " \t\"")
		if end < 0 {
			end = len(query)
		}
		terms = append(terms, ftsTerm{text: query[:end]})
		query = query[end:]
	}
}

// toFTSQuery turns a web-search style query into FTS5 syntax. Terms are
// ANDed; "quoted phrases" stay whole; -term excludes; AND, OR and NOT pass
// through; a trailing * searches by prefix.
func toFTSQuery(query string) string {
	var b strings.Builder
	op := ""
	for _, t := range splitTerms(query) {
		word := t.text
		if t.quoted {
			word = quoteFTS(word)
		} else {
			switch up := strings.ToUpper(word); up {
			case "AND", "OR", "NOT":
				if b.Len() > 0 {
					op = up
				}
				continue
			}
			if neg, ok := strings.CutPrefix(word, "-"); ok && neg != "" {
				// FTS5 NOT is binary, so a leading exclusion has nothing to exclude from.
				if b.Len() == 0 {
					continue
				}
				op, word = "NOT", neg
			}
			word = bareTerm(word)
			if word == "" {
				continue
			}
		}
		if b.Len() > 0 {
			if op == "" {
				op = "AND"
			}
			b.WriteString(" " + op + " ")
		}
		b.WriteString(word)
		op = ""
	}
	return b.String()
}

// bareTerm quotes a term FTS5 would read as syntax, keeping a trailing *.
func bareTerm(word string) string {
	stem, prefix := strings.CutSuffix(word, "*")
	if stem == "" {
		return ""
	}
	plain := strings.IndexFunc(stem, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) < 0
	if plain {
		return word
	}
	if prefix {
		return quoteFTS(stem) + "*"
	}
	return quoteFTS(stem)
}

func quoteFTS(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
