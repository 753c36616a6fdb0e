package provider

import (
	"strings"
	"time"
)

// LocalEntity is the track or album being matched. A nil field is unknown.
// For albums (len(Tracks) > 0) Title holds the release title and Album is unused.
type LocalEntity struct {
	Title      *string        `json:"title,omitempty"`
	Artist     *string        `json:"artist,omitempty"`
	Album      *string        `json:"album,omitempty"`
	TrackIndex *int           `json:"track_index,omitempty"`
	Year       *int           `json:"year,omitempty"`
	Duration   *time.Duration `json:"duration,omitempty"`
	Script     string         `json:"script,omitempty"` // ISO 15924 hint
	Tracks     []LocalTrack   `json:"tracks,omitempty"`
}

// LocalTrack is one track of a local album.
type LocalTrack struct {
	Title    *string        `json:"title,omitempty"`
	Artist   *string        `json:"artist,omitempty"`
	Index    *int           `json:"index,omitempty"`
	Duration *time.Duration `json:"duration,omitempty"`
}

// IsAlbum reports whether the entity describes an album.
func (l *LocalEntity) IsAlbum() bool { return len(l.Tracks) > 0 }

// Identifiable reports whether the entity carries a title or an artist
// anywhere, which is the minimum needed to query a catalogue.
func (l *LocalEntity) Identifiable() bool {
	if l == nil {
		return false
	}
	if l.Title != nil || l.Artist != nil {
		return true
	}
	for _, t := range l.Tracks {
		if t.Title != nil || t.Artist != nil {
			return true
		}
	}
	return false
}

// SearchTitle returns the release title for albums and the track title for
// single tracks. When an album has no title the first track title is used.
func (l *LocalEntity) SearchTitle() string {
	if l.Title != nil {
		return *l.Title
	}
	for _, t := range l.Tracks {
		if t.Title != nil {
			return *t.Title
		}
	}
	return ""
}

// SearchArtist returns the entity artist, falling back to the first track artist.
func (l *LocalEntity) SearchArtist() string {
	if l.Artist != nil {
		return *l.Artist
	}
	for _, t := range l.Tracks {
		if t.Artist != nil {
			return *t.Artist
		}
	}
	return ""
}

// RawCandidate is a record returned by one provider.
type RawCandidate struct {
	Source     SourceName       `json:"source"`
	ID         string           `json:"id"`
	Title      *string          `json:"title,omitempty"`
	Artist     *string          `json:"artist,omitempty"`
	Album      *string          `json:"album,omitempty"`
	TrackIndex *int             `json:"track_index,omitempty"`
	Year       *int             `json:"year,omitempty"`
	Duration   *time.Duration   `json:"duration,omitempty"`
	Script     string           `json:"script,omitempty"`
	Tracks     []CandidateTrack `json:"tracks,omitempty"`
	RelatedIDs []string         `json:"related_ids,omitempty"`
	Popularity *int             `json:"popularity,omitempty"`
	URL        string           `json:"url,omitempty"`
}

// CandidateTrack is one track of a candidate release.
type CandidateTrack struct {
	Title    *string        `json:"title,omitempty"`
	Artist   *string        `json:"artist,omitempty"`
	Index    *int           `json:"index,omitempty"`
	Duration *time.Duration `json:"duration,omitempty"`
}

// Validate checks that the candidate carries a source and an external id.
func (c *RawCandidate) Validate() error {
	if strings.TrimSpace(string(c.Source)) == "" {
		return &ErrMalformedCandidate{Source: c.Source, ID: c.ID, Reason: "missing source"}
	}
	if strings.TrimSpace(c.ID) == "" {
		return &ErrMalformedCandidate{Source: c.Source, ID: c.ID, Reason: "missing external id"}
	}
	return nil
}

// Text returns a pointer to s, or nil when s is blank so that absent
// provider fields stay unknown instead of becoming empty strings.
func Text(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Number returns a pointer to n, or nil when n is not positive.
func Number(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

// Seconds converts a length in seconds to a duration pointer, nil when not positive.
func Seconds(s float64) *time.Duration {
	if s <= 0 {
		return nil
	}
	d := time.Duration(s * float64(time.Second))
	return &d
}

// Millis converts a length in milliseconds to a duration pointer, nil when not positive.
func Millis(ms int) *time.Duration {
	if ms <= 0 {
		return nil
	}
	d := time.Duration(ms) * time.Millisecond
	return &d
}

// YearOf extracts the leading four-digit year from a date such as
// "1969-09-26" or "1969". Returns nil when no year is present.
func YearOf(date string) *int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return nil
	}
	y := 0
	for _, r := range date[:4] {
		if r < '0' || r > '9' {
			return nil
		}
		y = y*10 + int(r-'0')
	}
	return Number(y)
}

// Deref returns the string value or "" when unknown.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
