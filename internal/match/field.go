// Package match scores catalogue candidates against a local track or album.
//
// Everything here is pure computation over already-fetched data: field
// comparison, weighted aggregation, source adjustment, tie-breaking and
// classification. Network access lives in the provider adapters and the
// autotag pipeline.
package match

// Field names one comparable attribute.
type Field string

// Known fields. Track-level comparisons reuse title, artist, track_index and
// duration; track_count only applies to albums.
const (
	FieldTitle      Field = "title"
	FieldArtist     Field = "artist"
	FieldAlbum      Field = "album"
	FieldTrackIndex Field = "track_index"
	FieldYear       Field = "year"
	FieldDuration   Field = "duration"
	FieldTrackCount Field = "track_count"
)

// fieldTracks is the breakdown label for the aggregated per-track distance.
const fieldTracks Field = "tracks"

// AllFields returns every weightable field in display order.
func AllFields() []Field {
	return []Field{
		FieldTitle,
		FieldArtist,
		FieldAlbum,
		FieldTrackIndex,
		FieldYear,
		FieldDuration,
		FieldTrackCount,
	}
}

// itemFields are compared for single-track entities.
var itemFields = []Field{FieldTitle, FieldArtist, FieldAlbum, FieldTrackIndex, FieldYear, FieldDuration}

// albumFields are compared at release level for albums.
var albumFields = []Field{FieldTitle, FieldArtist, FieldYear, FieldTrackCount}

// trackFields are compared for each paired track of an album.
var trackFields = []Field{FieldTitle, FieldArtist, FieldTrackIndex, FieldDuration}

func knownField(f Field) bool {
	for _, k := range AllFields() {
		if k == f {
			return true
		}
	}
	return false
}
