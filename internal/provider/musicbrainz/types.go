package musicbrainz

// MusicBrainz API response types.

// ReleaseSearchResponse is the top-level response from the release search endpoint.
type ReleaseSearchResponse struct {
	Count    int         `json:"count"`
	Offset   int         `json:"offset"`
	Releases []MBRelease `json:"releases"`
}

// RecordingSearchResponse is the top-level response from the recording search endpoint.
type RecordingSearchResponse struct {
	Count      int           `json:"count"`
	Offset     int           `json:"offset"`
	Recordings []MBRecording `json:"recordings"`
}

// MBRelease is a release as returned by search and lookup. Media tracks and
// relations are only present on lookups with the matching inc parameters.
type MBRelease struct {
	ID                 string           `json:"id"`
	Score              int              `json:"score"`
	Title              string           `json:"title"`
	Status             string           `json:"status"`
	Date               string           `json:"date"`
	Country            string           `json:"country"`
	TrackCount         int              `json:"track-count"`
	ArtistCredit       []MBArtistCredit `json:"artist-credit"`
	TextRepresentation struct {
		Language string `json:"language"`
		Script   string `json:"script"`
	} `json:"text-representation"`
	Media     []MBMedium   `json:"media"`
	Relations []MBRelation `json:"relations"`
}

// MBArtistCredit is one entry of an artist credit list.
type MBArtistCredit struct {
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
	Artist     struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
}

// MBMedium is one disc or side of a release.
type MBMedium struct {
	Position   int       `json:"position"`
	Format     string    `json:"format"`
	TrackCount int       `json:"track-count"`
	Tracks     []MBTrack `json:"tracks"`
	// Search results use "track" for the matched track only.
	Track []MBTrack `json:"track"`
}

// MBTrack is a track on a medium.
type MBTrack struct {
	ID           string           `json:"id"`
	Number       string           `json:"number"`
	Position     int              `json:"position"`
	Title        string           `json:"title"`
	Length       int              `json:"length"`
	ArtistCredit []MBArtistCredit `json:"artist-credit"`
	Recording    *struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Length int    `json:"length"`
	} `json:"recording"`
}

// MBRelation is a release-to-release relationship.
type MBRelation struct {
	Type      string     `json:"type"`
	Direction string     `json:"direction"`
	Release   *MBRelease `json:"release"`
}

// MBRecording is a recording search result.
type MBRecording struct {
	ID               string           `json:"id"`
	Score            int              `json:"score"`
	Title            string           `json:"title"`
	Length           int              `json:"length"`
	FirstReleaseDate string           `json:"first-release-date"`
	ArtistCredit     []MBArtistCredit `json:"artist-credit"`
	Releases         []MBRelease      `json:"releases"`
}
