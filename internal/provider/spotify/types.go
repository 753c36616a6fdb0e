package spotify

// Spotify Web API response types.

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type album struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	AlbumType    string       `json:"album_type"`
	Artists      []artist     `json:"artists"`
	ReleaseDate  string       `json:"release_date"`
	TotalTracks  int          `json:"total_tracks"`
	Popularity   int          `json:"popularity"`
	ExternalURLs externalURLs `json:"external_urls"`
	Tracks       *struct {
		Items []track `json:"items"`
		Total int     `json:"total"`
	} `json:"tracks,omitempty"`
}

type track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Artists      []artist     `json:"artists"`
	Album        *album       `json:"album,omitempty"`
	DiscNumber   int          `json:"disc_number"`
	TrackNumber  int          `json:"track_number"`
	DurationMS   int          `json:"duration_ms"`
	Popularity   int          `json:"popularity"`
	ExternalURLs externalURLs `json:"external_urls"`
}

type searchResponse struct {
	Albums *struct {
		Items []album `json:"items"`
	} `json:"albums,omitempty"`
	Tracks *struct {
		Items []track `json:"items"`
	} `json:"tracks,omitempty"`
}

type albumsResponse struct {
	Albums []*album `json:"albums"`
}
