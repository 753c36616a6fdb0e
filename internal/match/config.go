package match

import (
	"fmt"
	"math"
	"slices"
	"time"

	"golang.org/x/text/language"

	"github.com/sydlexius/autotagger/internal/provider"
)

// TieBreak selects how candidates with indistinguishable distances are ordered.
type TieBreak string

// Tie-break strategies.
const (
	TieBreakPopularity TieBreak = "popularity"
	TieBreakFirstSeen  TieBreak = "first_seen"
)

// Tolerances configures the numeric comparators.
type Tolerances struct {
	YearGrace      float64       `yaml:"year_grace" json:"year_grace"`
	YearCutoff     float64       `yaml:"year_cutoff" json:"year_cutoff"`
	DurationGrace  time.Duration `yaml:"duration_grace" json:"duration_grace"`
	DurationCutoff time.Duration `yaml:"duration_cutoff" json:"duration_cutoff"`
}

// Settings is the loosely typed matching configuration as read from YAML.
// Map keys are overrides on top of the defaults; everything else must be
// complete, so start from DefaultSettings.
type Settings struct {
	FieldWeights      map[string]float64 `yaml:"field_weights" json:"field_weights"`
	SourceWeights     map[string]float64 `yaml:"source_weights" json:"source_weights"`
	MismatchPenalties map[string]float64 `yaml:"mismatch_penalties" json:"mismatch_penalties"`
	ExpectedSource    string             `yaml:"expected_source" json:"expected_source"`
	TieBreak          string             `yaml:"tie_break" json:"tie_break"`
	TieEpsilon        float64            `yaml:"tie_epsilon" json:"tie_epsilon"`
	DesiredScripts    []string           `yaml:"desired_scripts" json:"desired_scripts"`
	StrictThreshold   float64            `yaml:"strict_threshold" json:"strict_threshold"`
	MinSeparation     float64            `yaml:"min_separation" json:"min_separation"`
	MediumThreshold   float64            `yaml:"medium_threshold" json:"medium_threshold"`
	AlbumWeight       float64            `yaml:"album_weight" json:"album_weight"`
	Tolerances        Tolerances         `yaml:"tolerances" json:"tolerances"`
}

// Default field weights.
var defaultFieldWeights = map[Field]float64{
	FieldTitle:      3,
	FieldArtist:     3,
	FieldAlbum:      3,
	FieldTrackIndex: 1,
	FieldYear:       1,
	FieldDuration:   2,
	FieldTrackCount: 2,
}

// Default mismatch penalties, applied when a candidate's source differs from
// the expected source.
var defaultMismatchPenalties = map[provider.SourceName]float64{
	provider.SourceMusicBrainz:       0,
	provider.SourceMusicBrainzPseudo: 0.05,
	provider.SourceDiscogs:           0.1,
	provider.SourceSpotify:           0.1,
	provider.SourceDeezer:            0.1,
	provider.SourceBeatport:          0.1,
}

// DefaultAlbumWeight is the share of an album's distance taken by release-level
// fields; the remainder comes from the mean per-track distance.
const DefaultAlbumWeight = 0.5

// DefaultSettings returns the built-in matching configuration.
func DefaultSettings() Settings {
	return Settings{
		FieldWeights:      map[string]float64{},
		SourceWeights:     map[string]float64{},
		MismatchPenalties: map[string]float64{},
		ExpectedSource:    string(provider.SourceMusicBrainz),
		TieBreak:          string(TieBreakPopularity),
		TieEpsilon:        1e-9,
		StrictThreshold:   0.04,
		MinSeparation:     0.02,
		MediumThreshold:   0.25,
		AlbumWeight:       DefaultAlbumWeight,
		Tolerances: Tolerances{
			YearGrace:      0,
			YearCutoff:     10,
			DurationGrace:  10 * time.Second,
			DurationCutoff: 30 * time.Second,
		},
	}
}

// ConfigError reports an invalid matching setting.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("matching config %s: %s", e.Key, e.Reason)
}

// PenaltyConfig is the validated, read-only matching configuration. It is
// built once and may be shared by concurrent runs.
type PenaltyConfig struct {
	fieldWeights      map[Field]float64
	sourceWeights     map[provider.SourceName]float64
	mismatchPenalties map[provider.SourceName]float64
	expectedSource    provider.SourceName
	tieBreak          TieBreak
	tieEpsilon        float64
	desiredScripts    []string
	strictThreshold   float64
	minSeparation     float64
	mediumThreshold   float64
	albumWeight       float64
	tolerances        Tolerances
}

// DefaultPenaltyConfig returns the configuration built from DefaultSettings.
func DefaultPenaltyConfig() *PenaltyConfig {
	cfg, err := NewPenaltyConfig(DefaultSettings())
	if err != nil {
		panic("match: invalid default settings: " + err.Error())
	}
	return cfg
}

// NewPenaltyConfig validates s and returns an immutable configuration.
// Unknown keys and out-of-range values are rejected with *ConfigError.
func NewPenaltyConfig(s Settings) (*PenaltyConfig, error) {
	cfg := &PenaltyConfig{
		fieldWeights:      make(map[Field]float64, len(defaultFieldWeights)),
		sourceWeights:     make(map[provider.SourceName]float64),
		mismatchPenalties: make(map[provider.SourceName]float64, len(defaultMismatchPenalties)),
	}
	for f, w := range defaultFieldWeights {
		cfg.fieldWeights[f] = w
	}
	for src, p := range defaultMismatchPenalties {
		cfg.mismatchPenalties[src] = p
	}

	for key, w := range s.FieldWeights {
		f := Field(key)
		if !knownField(f) {
			return nil, &ConfigError{Key: "field_weights." + key, Reason: "unknown field"}
		}
		if !finite(w) || w < 0 {
			return nil, &ConfigError{Key: "field_weights." + key, Reason: "weight must be a non-negative number"}
		}
		cfg.fieldWeights[f] = w
	}

	for key, w := range s.SourceWeights {
		src, ok := provider.ParseSourceName(key)
		if !ok {
			return nil, &ConfigError{Key: "source_weights." + key, Reason: "unknown source"}
		}
		if !inUnit(w) {
			return nil, &ConfigError{Key: "source_weights." + key, Reason: "must be between 0 and 1"}
		}
		cfg.sourceWeights[src] = w
	}

	for key, p := range s.MismatchPenalties {
		src, ok := provider.ParseSourceName(key)
		if !ok {
			return nil, &ConfigError{Key: "mismatch_penalties." + key, Reason: "unknown source"}
		}
		if !inUnit(p) {
			return nil, &ConfigError{Key: "mismatch_penalties." + key, Reason: "must be between 0 and 1"}
		}
		cfg.mismatchPenalties[src] = p
	}

	if s.ExpectedSource != "" {
		src, ok := provider.ParseSourceName(s.ExpectedSource)
		if !ok {
			return nil, &ConfigError{Key: "expected_source", Reason: "unknown source " + s.ExpectedSource}
		}
		cfg.expectedSource = src
	}

	switch TieBreak(s.TieBreak) {
	case TieBreakPopularity, TieBreakFirstSeen:
		cfg.tieBreak = TieBreak(s.TieBreak)
	default:
		return nil, &ConfigError{Key: "tie_break", Reason: fmt.Sprintf("unknown strategy %q (want %s or %s)", s.TieBreak, TieBreakPopularity, TieBreakFirstSeen)}
	}

	if !finite(s.TieEpsilon) || s.TieEpsilon < 0 || s.TieEpsilon >= 1 {
		return nil, &ConfigError{Key: "tie_epsilon", Reason: "must be in [0, 1)"}
	}
	cfg.tieEpsilon = s.TieEpsilon

	for _, code := range s.DesiredScripts {
		sc, err := language.ParseScript(code)
		if err != nil {
			return nil, &ConfigError{Key: "desired_scripts", Reason: fmt.Sprintf("invalid script code %q", code)}
		}
		if !slices.Contains(cfg.desiredScripts, sc.String()) {
			cfg.desiredScripts = append(cfg.desiredScripts, sc.String())
		}
	}

	for _, bound := range []struct {
		key string
		v   float64
	}{
		{"strict_threshold", s.StrictThreshold},
		{"min_separation", s.MinSeparation},
		{"medium_threshold", s.MediumThreshold},
		{"album_weight", s.AlbumWeight},
	} {
		if !inUnit(bound.v) {
			return nil, &ConfigError{Key: bound.key, Reason: "must be between 0 and 1"}
		}
	}
	if s.MediumThreshold < s.StrictThreshold {
		return nil, &ConfigError{Key: "medium_threshold", Reason: "must not be below strict_threshold"}
	}
	cfg.strictThreshold = s.StrictThreshold
	cfg.minSeparation = s.MinSeparation
	cfg.mediumThreshold = s.MediumThreshold
	cfg.albumWeight = s.AlbumWeight

	t := s.Tolerances
	if !finite(t.YearGrace) || t.YearGrace < 0 || !finite(t.YearCutoff) || t.YearCutoff <= t.YearGrace {
		return nil, &ConfigError{Key: "tolerances.year", Reason: "need 0 <= grace < cutoff"}
	}
	if t.DurationGrace < 0 || t.DurationCutoff <= t.DurationGrace {
		return nil, &ConfigError{Key: "tolerances.duration", Reason: "need 0 <= grace < cutoff"}
	}
	cfg.tolerances = t

	return cfg, nil
}

// FieldWeight returns the weight of f; unknown fields weigh zero.
func (c *PenaltyConfig) FieldWeight(f Field) float64 { return c.fieldWeights[f] }

// SourceWeight returns the trust multiplier for src, 1.0 unless configured.
func (c *PenaltyConfig) SourceWeight(src provider.SourceName) float64 {
	if w, ok := c.sourceWeights[src]; ok {
		return w
	}
	return 1.0
}

// MismatchPenalty returns the additive penalty for candidates from src when
// src is not the expected source.
func (c *PenaltyConfig) MismatchPenalty(src provider.SourceName) float64 {
	return c.mismatchPenalties[src]
}

// ExpectedSource returns the primary source; empty disables mismatch penalties.
func (c *PenaltyConfig) ExpectedSource() provider.SourceName { return c.expectedSource }

// TieBreak returns the configured tie-break strategy.
func (c *PenaltyConfig) TieBreak() TieBreak { return c.tieBreak }

// TieEpsilon returns the distance below which two candidates are tied.
func (c *PenaltyConfig) TieEpsilon() float64 { return c.tieEpsilon }

// DesiredScripts returns the canonical ISO 15924 codes in preference order.
func (c *PenaltyConfig) DesiredScripts() []string { return slices.Clone(c.desiredScripts) }

// WantsScript reports whether code is one of the desired scripts.
func (c *PenaltyConfig) WantsScript(code string) bool {
	sc, err := language.ParseScript(code)
	if err != nil {
		return false
	}
	return slices.Contains(c.desiredScripts, sc.String())
}

// StrictThreshold is the maximum top distance for auto-acceptance.
func (c *PenaltyConfig) StrictThreshold() float64 { return c.strictThreshold }

// MinSeparation is the minimum gap between the two best distances for auto-acceptance.
func (c *PenaltyConfig) MinSeparation() float64 { return c.minSeparation }

// MediumThreshold is the maximum top distance for a medium recommendation.
func (c *PenaltyConfig) MediumThreshold() float64 { return c.mediumThreshold }

// AlbumWeight is the release-level share of an album distance.
func (c *PenaltyConfig) AlbumWeight() float64 { return c.albumWeight }

// Tolerances returns the numeric comparator tolerances.
func (c *PenaltyConfig) Tolerances() Tolerances { return c.tolerances }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func inUnit(f float64) bool { return finite(f) && f >= 0 && f <= 1 }
