package match

import (
	"fmt"

	"github.com/sydlexius/autotagger/internal/provider"
)

// Scorer computes base distances. It is safe for concurrent use.
type Scorer struct {
	cfg *PenaltyConfig
	cmp Comparators
}

// NewScorer returns a Scorer using the default comparators for cfg's tolerances.
func NewScorer(cfg *PenaltyConfig) *Scorer {
	return &Scorer{cfg: cfg, cmp: DefaultComparators(cfg.Tolerances())}
}

// NewScorerWith returns a Scorer with custom comparators. Every field must
// have one, otherwise ErrNoComparator is returned.
func NewScorerWith(cfg *PenaltyConfig, cmp Comparators) (*Scorer, error) {
	if err := cmp.Check(AllFields()...); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg, cmp: cmp}, nil
}

// Config returns the configuration the scorer was built with.
func (s *Scorer) Config() *PenaltyConfig { return s.cfg }

// Score returns the unadjusted score of c against local. Distance and
// BaseDistance are equal until Adjust is applied.
func (s *Scorer) Score(local *provider.LocalEntity, c provider.RawCandidate) ScoredCandidate {
	var (
		d         float64
		ok        bool
		breakdown []Contribution
	)
	if local.IsAlbum() {
		d, ok, breakdown = s.scoreAlbum(local, &c)
	} else {
		d, ok, breakdown = s.weigh(itemFields, itemValues(local, &c))
	}

	sc := ScoredCandidate{Candidate: c, Breakdown: breakdown}
	if !ok {
		sc.BaseDistance = 1
		sc.Distance = 1
		sc.Penalties = append(sc.Penalties, Penalty{Name: PenaltyNoComparableFields, Value: 1})
		return sc
	}
	sc.BaseDistance = clamp(d)
	sc.Distance = sc.BaseDistance
	return sc
}

type valuePair struct {
	local, candidate Value
}

// weigh returns the weighted mean distance over comparable fields with
// positive weight. ok is false when there are none.
func (s *Scorer) weigh(fields []Field, values map[Field]valuePair) (float64, bool, []Contribution) {
	var sum, total float64
	breakdown := make([]Contribution, 0, len(fields))
	for _, f := range fields {
		v := values[f]
		w := s.cfg.FieldWeight(f)
		d, comparable, err := s.cmp.Compare(f, v.local, v.candidate)
		if err != nil {
			// Comparators are checked at construction.
			panic(fmt.Sprintf("match: %v", err))
		}
		breakdown = append(breakdown, Contribution{Field: f, Distance: d, Weight: w, Comparable: comparable})
		if !comparable || w <= 0 {
			continue
		}
		sum += w * d
		total += w
	}
	if total == 0 {
		return 1, false, breakdown
	}
	return sum / total, true, breakdown
}

func (s *Scorer) scoreAlbum(local *provider.LocalEntity, c *provider.RawCandidate) (float64, bool, []Contribution) {
	albumD, albumOK, breakdown := s.weigh(albumFields, map[Field]valuePair{
		FieldTitle:      {TextOf(local.Title), TextOf(c.Title)},
		FieldArtist:     {TextOf(local.Artist), TextOf(c.Artist)},
		FieldYear:       {IntOf(local.Year), IntOf(c.Year)},
		FieldTrackCount: {CountOf(len(local.Tracks)), CountOf(len(c.Tracks))},
	})

	trackD, trackOK := s.scoreTracks(local, c)
	trackShare := 1 - s.cfg.AlbumWeight()
	breakdown = append(breakdown, Contribution{Field: fieldTracks, Distance: trackD, Weight: trackShare, Comparable: trackOK})

	switch {
	case albumOK && trackOK:
		return s.cfg.AlbumWeight()*albumD + trackShare*trackD, true, breakdown
	case albumOK:
		return albumD, true, breakdown
	case trackOK:
		return trackD, true, breakdown
	default:
		return 1, false, breakdown
	}
}

// scoreTracks returns the mean distance over local tracks. Tracks pair by
// index when both sides know it and by position otherwise; a local track
// without a partner counts as 1.0. ok is false when the candidate has no
// tracks or no pair had a comparable field.
func (s *Scorer) scoreTracks(local *provider.LocalEntity, c *provider.RawCandidate) (float64, bool) {
	if len(c.Tracks) == 0 {
		return 1, false
	}

	byIndex := make(map[int]int, len(c.Tracks))
	for i, t := range c.Tracks {
		if t.Index == nil {
			continue
		}
		if _, dup := byIndex[*t.Index]; !dup {
			byIndex[*t.Index] = i
		}
	}
	used := make([]bool, len(c.Tracks))

	var sum float64
	var n int
	comparable := false
	for pos, lt := range local.Tracks {
		partner := -1
		if lt.Index != nil {
			if i, ok := byIndex[*lt.Index]; ok && !used[i] {
				partner = i
			}
		}
		if partner < 0 && pos < len(c.Tracks) && !used[pos] {
			partner = pos
		}
		if partner < 0 {
			sum++
			n++
			continue
		}
		used[partner] = true

		ct := c.Tracks[partner]
		d, ok, _ := s.weigh(trackFields, map[Field]valuePair{
			FieldTitle:      {TextOf(lt.Title), TextOf(ct.Title)},
			FieldArtist:     {TextOf(firstKnown(lt.Artist, local.Artist)), TextOf(firstKnown(ct.Artist, c.Artist))},
			FieldTrackIndex: {IntOf(lt.Index), IntOf(ct.Index)},
			FieldDuration:   {DurationOf(lt.Duration), DurationOf(ct.Duration)},
		})
		if !ok {
			continue
		}
		comparable = true
		sum += d
		n++
	}
	if !comparable || n == 0 {
		return 1, false
	}
	return sum / float64(n), true
}

func itemValues(local *provider.LocalEntity, c *provider.RawCandidate) map[Field]valuePair {
	return map[Field]valuePair{
		FieldTitle:      {TextOf(local.Title), TextOf(c.Title)},
		FieldArtist:     {TextOf(local.Artist), TextOf(c.Artist)},
		FieldAlbum:      {TextOf(local.Album), TextOf(c.Album)},
		FieldTrackIndex: {IntOf(local.TrackIndex), IntOf(c.TrackIndex)},
		FieldYear:       {IntOf(local.Year), IntOf(c.Year)},
		FieldDuration:   {DurationOf(local.Duration), DurationOf(c.Duration)},
	}
}

func firstKnown(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
