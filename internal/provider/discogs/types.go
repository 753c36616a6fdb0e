package discogs

// Discogs API response types.

// SearchResponse is the top-level response from the database search endpoint.
type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	Pagination Pagination     `json:"pagination"`
}

// SearchResult is a single release hit. Title is "Artist - Release".
type SearchResult struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Year        string    `json:"year"`
	Country     string    `json:"country"`
	Format      []string  `json:"format"`
	URI         string    `json:"uri"`
	ResourceURL string    `json:"resource_url"`
	Community   Community `json:"community"`
}

// Community holds collection statistics.
type Community struct {
	Have int `json:"have"`
	Want int `json:"want"`
}

// Pagination holds pagination info.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// ReleaseDetail is the full release response.
type ReleaseDetail struct {
	ID        int         `json:"id"`
	Title     string      `json:"title"`
	Year      int         `json:"year"`
	Released  string      `json:"released"`
	Country   string      `json:"country"`
	URI       string      `json:"uri"`
	Artists   []ArtistRef `json:"artists"`
	Tracklist []Track     `json:"tracklist"`
	Community Community   `json:"community"`
}

// ArtistRef is an artist credit entry.
type ArtistRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	ANV  string `json:"anv"`
	Join string `json:"join"`
}

// Track is one tracklist row; Type is "track", "heading" or "index".
type Track struct {
	Position string      `json:"position"`
	Type     string      `json:"type_"`
	Title    string      `json:"title"`
	Duration string      `json:"duration"`
	Artists  []ArtistRef `json:"artists"`
}
