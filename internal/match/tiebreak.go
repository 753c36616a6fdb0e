package match

import (
	"cmp"
	"math"
	"slices"
)

// Rank sorts candidates by ascending distance, keeping first-seen order among
// equal distances, then resolves ties with the configured strategy.
func Rank(cands []ScoredCandidate, cfg *PenaltyConfig) {
	slices.SortStableFunc(cands, func(a, b ScoredCandidate) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	ResolveTies(cands, cfg.TieBreak(), cfg.TieEpsilon())
}

// ResolveTies reorders groups of tied candidates in place. cands must already
// be sorted by ascending distance. A group starts at its first member and
// takes every following candidate whose distance differs from it by less
// than epsilon. Equal distances always tie.
func ResolveTies(cands []ScoredCandidate, strategy TieBreak, epsilon float64) {
	for start := 0; start < len(cands); {
		end := start + 1
		for end < len(cands) && tied(cands[start].Distance, cands[end].Distance, epsilon) {
			end++
		}
		if end-start > 1 {
			group := cands[start:end]
			switch strategy {
			case TieBreakPopularity:
				slices.SortStableFunc(group, byPopularity)
			case TieBreakFirstSeen:
				slices.SortStableFunc(group, func(a, b ScoredCandidate) int {
					return cmp.Compare(a.Seq, b.Seq)
				})
			}
		}
		start = end
	}
}

func tied(a, b, epsilon float64) bool {
	d := math.Abs(a - b)
	return d == 0 || d < epsilon
}

// byPopularity orders by descending popularity hint, candidates without one last.
func byPopularity(a, b ScoredCandidate) int {
	pa, pb := a.Candidate.Popularity, b.Candidate.Popularity
	switch {
	case pa == nil && pb == nil:
		return 0
	case pa == nil:
		return 1
	case pb == nil:
		return -1
	default:
		return cmp.Compare(*pb, *pa)
	}
}
