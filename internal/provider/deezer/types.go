package deezer

// Deezer API response types.

// apiError is returned inside a 200 response when a request fails.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// envelope is decoded first to detect an embedded error.
type envelope struct {
	Error *apiError `json:"error"`
}

type artistRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type albumRef struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type albumSearchResponse struct {
	Data  []albumSummary `json:"data"`
	Total int            `json:"total"`
}

type albumSummary struct {
	ID         int       `json:"id"`
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	NbTracks   int       `json:"nb_tracks"`
	RecordType string    `json:"record_type"`
	Artist     artistRef `json:"artist"`
}

type albumDetail struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	ReleaseDate string    `json:"release_date"`
	Fans        int       `json:"fans"`
	NbTracks    int       `json:"nb_tracks"`
	Duration    int       `json:"duration"`
	Artist      artistRef `json:"artist"`
	Tracks      struct {
		Data []trackResult `json:"data"`
	} `json:"tracks"`
}

type trackSearchResponse struct {
	Data  []trackResult `json:"data"`
	Total int           `json:"total"`
}

type trackResult struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Link          string    `json:"link"`
	Duration      int       `json:"duration"`
	Rank          int       `json:"rank"`
	TrackPosition int       `json:"track_position"`
	Artist        artistRef `json:"artist"`
	Album         albumRef  `json:"album"`
}
