package match

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hbollon/go-edlib"
)

// ErrNoComparator is returned when a field has no registered comparator.
// It is a configuration error, never a per-candidate one.
var ErrNoComparator = errors.New("no comparator registered for field")

// Value is one side of a field comparison. Known is false when the source
// did not supply the field.
type Value struct {
	Text   string
	Number float64
	Known  bool
}

// TextOf wraps an optional string.
func TextOf(s *string) Value {
	if s == nil {
		return Value{}
	}
	return Value{Text: *s, Known: true}
}

// IntOf wraps an optional integer.
func IntOf(n *int) Value {
	if n == nil {
		return Value{}
	}
	return Value{Number: float64(*n), Known: true}
}

// DurationOf wraps an optional duration, expressed in seconds.
func DurationOf(d *time.Duration) Value {
	if d == nil {
		return Value{}
	}
	return Value{Number: d.Seconds(), Known: true}
}

// CountOf wraps a count that is unknown when zero.
func CountOf(n int) Value {
	if n <= 0 {
		return Value{}
	}
	return Value{Number: float64(n), Known: true}
}

// Comparator returns the distance between two known values, in [0, 1].
type Comparator interface {
	Distance(local, candidate Value) float64
}

// presence is implemented by comparators for which a supplied value can
// still carry no information.
type presence interface {
	Present(v Value) bool
}

// TextComparator compares normalized strings by Levenshtein similarity.
type TextComparator struct{}

// Present reports whether v keeps any letters or digits after normalization.
func (TextComparator) Present(v Value) bool {
	return Normalize(v.Text) != ""
}

// Distance implements Comparator.
func (TextComparator) Distance(local, candidate Value) float64 {
	a, b := Normalize(local.Text), Normalize(candidate.Text)
	if a == b {
		return 0
	}
	if a == "" || b == "" {
		return 1
	}
	sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 1
	}
	return clamp(1 - float64(sim))
}

// Tolerance compares numbers: no distance within Grace, rising linearly to
// 1.0 at Cutoff. Grace absorbs fixed offsets such as encoder padding.
type Tolerance struct {
	Grace  float64
	Cutoff float64
}

// Distance implements Comparator.
func (t Tolerance) Distance(local, candidate Value) float64 {
	diff := math.Abs(local.Number - candidate.Number)
	if diff <= t.Grace {
		return 0
	}
	if t.Cutoff <= t.Grace {
		return 1
	}
	return clamp((diff - t.Grace) / (t.Cutoff - t.Grace))
}

// RatioComparator scores the relative difference of two counts.
type RatioComparator struct{}

// Distance implements Comparator.
func (RatioComparator) Distance(local, candidate Value) float64 {
	hi := math.Max(math.Abs(local.Number), math.Abs(candidate.Number))
	if hi == 0 {
		return 0
	}
	return clamp(math.Abs(local.Number-candidate.Number) / hi)
}

// Comparators maps each field to its comparator.
type Comparators map[Field]Comparator

// DefaultComparators returns the standard comparator set for the given tolerances.
func DefaultComparators(tol Tolerances) Comparators {
	return Comparators{
		FieldTitle:      TextComparator{},
		FieldArtist:     TextComparator{},
		FieldAlbum:      TextComparator{},
		FieldTrackIndex: Tolerance{Grace: 0, Cutoff: 1},
		FieldYear:       Tolerance{Grace: tol.YearGrace, Cutoff: tol.YearCutoff},
		FieldDuration:   Tolerance{Grace: tol.DurationGrace.Seconds(), Cutoff: tol.DurationCutoff.Seconds()},
		FieldTrackCount: RatioComparator{},
	}
}

// Compare returns the distance for one field. comparable is false when either
// side is unknown or carries nothing to compare, such as a punctuation-only
// title; such a field must be left out of aggregation entirely.
func (cs Comparators) Compare(f Field, local, candidate Value) (distance float64, comparable bool, err error) {
	cmp, ok := cs[f]
	if !ok || cmp == nil {
		return 0, false, fmt.Errorf("%w: %s", ErrNoComparator, f)
	}
	if !local.Known || !candidate.Known {
		return 0, false, nil
	}
	if p, ok := cmp.(presence); ok && (!p.Present(local) || !p.Present(candidate)) {
		return 0, false, nil
	}
	return clamp(cmp.Distance(local, candidate)), true, nil
}

// Check verifies that every field has a comparator.
func (cs Comparators) Check(fields ...Field) error {
	for _, f := range fields {
		if c, ok := cs[f]; !ok || c == nil {
			return fmt.Errorf("%w: %s", ErrNoComparator, f)
		}
	}
	return nil
}

func clamp(d float64) float64 {
	switch {
	case math.IsNaN(d):
		return 1
	case d < 0:
		return 0
	case d > 1:
		return 1
	default:
		return d
	}
}
