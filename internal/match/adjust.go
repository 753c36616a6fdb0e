package match

import "slices"

// Adjust applies source trust weighting and the source mismatch penalty to a
// scored candidate. The weight is applied first, so a source with weight 0
// always ends at 1.0 regardless of any later penalty.
func Adjust(sc ScoredCandidate, cfg *PenaltyConfig) ScoredCandidate {
	sc.Penalties = slices.Clone(sc.Penalties)
	src := sc.Candidate.Source
	d := sc.BaseDistance

	if w := cfg.SourceWeight(src); w != 1 {
		adjusted := clamp(1 - (1-d)*w)
		sc.Penalties = append(sc.Penalties, Penalty{Name: PenaltySourceWeight, Value: adjusted - d})
		d = adjusted
	}

	if expected := cfg.ExpectedSource(); expected != "" && src != expected {
		if p := cfg.MismatchPenalty(src); p > 0 {
			adjusted := clamp(d + p)
			sc.Penalties = append(sc.Penalties, Penalty{Name: PenaltySourceMismatch, Value: adjusted - d})
			d = adjusted
		}
	}

	sc.Distance = clamp(d)
	return sc
}
