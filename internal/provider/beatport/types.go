package beatport

// Beatport v4 catalog response types.

type artistRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type releaseRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type release struct {
	ID             int         `json:"id"`
	Name           string      `json:"name"`
	Slug           string      `json:"slug"`
	Artists        []artistRef `json:"artists"`
	NewReleaseDate string      `json:"new_release_date"`
	PublishDate    string      `json:"publish_date"`
	TrackCount     int         `json:"track_count"`
	Label          *struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"label,omitempty"`
}

type track struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	MixName     string      `json:"mix_name"`
	Slug        string      `json:"slug"`
	Number      int         `json:"number"`
	LengthMS    int         `json:"length_ms"`
	PublishDate string      `json:"publish_date"`
	Artists     []artistRef `json:"artists"`
	Release     *releaseRef `json:"release,omitempty"`
}

type searchResponse struct {
	Releases []release `json:"releases"`
	Tracks   []track   `json:"tracks"`
}

type tracksResponse struct {
	Count   int     `json:"count"`
	Results []track `json:"results"`
}
