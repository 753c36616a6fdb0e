package match

// Classify sets AutoAcceptable and Recommendation on r from its ordered
// candidates. A lone candidate always satisfies the separation requirement.
func Classify(r *RankedResult, cfg *PenaltyConfig) {
	r.AutoAcceptable = false
	if len(r.Candidates) == 0 {
		r.Recommendation = RecommendationNone
		return
	}

	top := r.Candidates[0].Distance
	separated := true
	if len(r.Candidates) > 1 {
		separated = r.Candidates[1].Distance-top >= cfg.MinSeparation()
	}

	switch {
	case top <= cfg.StrictThreshold() && separated:
		r.AutoAcceptable = true
		r.Recommendation = RecommendationStrong
	case top <= cfg.MediumThreshold():
		r.Recommendation = RecommendationMedium
	default:
		r.Recommendation = RecommendationLow
	}
}
