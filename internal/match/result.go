package match

import (
	"github.com/sydlexius/autotagger/internal/provider"
)

// Contribution is one field's share of a candidate's base distance.
type Contribution struct {
	Field      Field   `json:"field"`
	Distance   float64 `json:"distance"`
	Weight     float64 `json:"weight"`
	Comparable bool    `json:"comparable"`
}

// Penalty is a named adjustment applied after scoring.
type Penalty struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Penalty names recorded by Adjust and Score.
const (
	PenaltySourceWeight       = "source_weight"
	PenaltySourceMismatch     = "source_mismatch"
	PenaltyNoComparableFields = "no_comparable_fields"
)

// ScoredCandidate is a candidate with its distance and breakdown.
type ScoredCandidate struct {
	Candidate    provider.RawCandidate `json:"candidate"`
	Seq          int                   `json:"seq"`
	BaseDistance float64               `json:"base_distance"`
	Distance     float64               `json:"distance"`
	Breakdown    []Contribution        `json:"breakdown"`
	Penalties    []Penalty             `json:"penalties,omitempty"`
}

// HasPenalty reports whether a penalty named name was applied.
func (s *ScoredCandidate) HasPenalty(name string) bool {
	for _, p := range s.Penalties {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Status describes how a run ended.
type Status string

// Run outcomes.
const (
	StatusRanked         Status = "ranked"
	StatusNoCandidates   Status = "no_candidates"
	StatusUnidentifiable Status = "unidentifiable"
)

// Recommendation grades confidence in the top candidate.
type Recommendation string

// Recommendation levels, weakest first.
const (
	RecommendationNone   Recommendation = "none"
	RecommendationLow    Recommendation = "low"
	RecommendationMedium Recommendation = "medium"
	RecommendationStrong Recommendation = "strong"
)

// DiagnosticKind classifies a recorded problem.
type DiagnosticKind string

// Diagnostic kinds.
const (
	DiagUnavailable        DiagnosticKind = "unavailable"
	DiagAuthRequired       DiagnosticKind = "auth_required"
	DiagTimeout            DiagnosticKind = "timeout"
	DiagError              DiagnosticKind = "error"
	DiagMalformed          DiagnosticKind = "malformed"
	DiagNoComparableFields DiagnosticKind = "no_comparable_fields"
)

// Diagnostic is a non-fatal problem encountered during a run.
type Diagnostic struct {
	Phase   string              `json:"phase"`
	Source  provider.SourceName `json:"source,omitempty"`
	Kind    DiagnosticKind      `json:"kind"`
	Message string              `json:"message"`
}

// RankedResult is the outcome of one matching run. The caller owns it.
type RankedResult struct {
	RunID          string            `json:"run_id"`
	Status         Status            `json:"status"`
	Candidates     []ScoredCandidate `json:"candidates"`
	AutoAcceptable bool              `json:"auto_acceptable"`
	Recommendation Recommendation    `json:"recommendation"`
	Diagnostics    []Diagnostic      `json:"diagnostics,omitempty"`
}

// Best returns the top candidate, or nil when there is none.
func (r *RankedResult) Best() *ScoredCandidate {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}
