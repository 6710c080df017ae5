package parser

import (
	"slices"

	"hfparse/internal/config"
)

// Compare orders two parses under the precedence policy of costs. The
// literal policy ranks by alignment score and lets priors separate equal
// scores only; the blended policy ranks by score plus prior.
func Compare(a, b CommandParse, costs config.CostModel) int {
	eps := costs.TieEpsilon
	if costs.Precedence == config.PrecedenceBlended {
		return compareCost(a.Total(), b.Total(), eps)
	}
	if c := compareCost(a.Score, b.Score, eps); c != 0 {
		return c
	}
	return compareCost(a.Prior, b.Prior, eps)
}

// Cost is the primary ranking key of p under the precedence policy.
func Cost(p CommandParse, costs config.CostModel) float64 {
	if costs.Precedence == config.PrecedenceBlended {
		return p.Total()
	}
	return p.Score
}

// Rank sorts parses best first and assigns dense ranks. Ties share a rank
// and keep their input order.
func Rank(parses []CommandParse, costs config.CostModel) []CommandParse {
	out := slices.Clone(parses)
	slices.SortStableFunc(out, func(a, b CommandParse) int {
		return Compare(a, b, costs)
	})
	for i := range out {
		switch {
		case i == 0:
			out[i].Rank = 1
		case Compare(out[i-1], out[i], costs) == 0:
			out[i].Rank = out[i-1].Rank
		default:
			out[i].Rank = out[i-1].Rank + 1
		}
	}
	return out
}

// Window returns the leading parses of ranked that are within eps of the best.
func Window(ranked []CommandParse, costs config.CostModel, eps float64) []CommandParse {
	if len(ranked) == 0 {
		return nil
	}
	best := ranked[0]
	if costs.Precedence == config.PrecedenceBlended {
		var out []CommandParse
		for _, p := range ranked {
			if p.Total() <= best.Total()+eps {
				out = append(out, p)
			}
		}
		return out
	}

	var out []CommandParse
	for _, p := range ranked {
		if p.Score <= best.Score+eps && p.Prior <= best.Prior+eps {
			out = append(out, p)
		}
	}
	return out
}

func compareCost(a, b, eps float64) int {
	switch {
	case a < b-eps:
		return -1
	case a > b+eps:
		return 1
	default:
		return 0
	}
}
