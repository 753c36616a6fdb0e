package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/autotagger/internal/provider"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

const (
	searchLimit        = 5
	defaultDetailLimit = 3
	// relPseudoRelease links an official release to its transliterated
	// or translated tracklist.
	relPseudoRelease = "transl-tracklisting"
	statusPseudo     = "Pseudo-Release"
)

// Adapter implements provider.Provider and provider.ReleaseFetcher for MusicBrainz.
type Adapter struct {
	client      *http.Client
	limiter     *provider.RateLimiterMap
	logger      *slog.Logger
	baseURL     string
	detailLimit int
}

// New creates a MusicBrainz adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:     limiter,
		logger:      logger.With(slog.String("provider", "musicbrainz")),
		baseURL:     strings.TrimRight(baseURL, "/"),
		detailLimit: defaultDetailLimit,
	}
}

// SetDetailLimit sets how many search hits are looked up in full to obtain
// tracklists and pseudo-release relations. Zero disables lookups.
func (a *Adapter) SetDetailLimit(n int) {
	if n >= 0 {
		a.detailLimit = n
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.SourceName { return provider.SourceMusicBrainz }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return false }

// SearchCandidates searches releases for albums and recordings for single tracks.
func (a *Adapter) SearchCandidates(ctx context.Context, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	if local.IsAlbum() {
		return a.searchReleases(ctx, local)
	}
	return a.searchRecordings(ctx, local)
}

// FetchRelease looks up one release with its tracklist and relations.
// Pseudo-releases are reported under provider.SourceMusicBrainzPseudo.
func (a *Adapter) FetchRelease(ctx context.Context, id string) (*provider.RawCandidate, error) {
	params := url.Values{
		"inc": {"recordings+artist-credits+release-rels"},
		"fmt": {"json"},
	}
	reqURL := a.baseURL + "/release/" + url.PathEscape(id) + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, id)
	if err != nil {
		return nil, err
	}

	var rel MBRelease
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("parsing release response: %w", err)
	}
	c := mapRelease(&rel)
	return &c, nil
}

// TestConnection verifies connectivity to the MusicBrainz API.
func (a *Adapter) TestConnection(ctx context.Context) error {
	params := url.Values{
		"query": {"release:test"},
		"fmt":   {"json"},
		"limit": {"1"},
	}
	_, err := a.doRequest(ctx, a.baseURL+"/release?"+params.Encode(), "")
	return err
}

func (a *Adapter) searchReleases(ctx context.Context, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	params := url.Values{
		"query": {buildQuery("release", local.SearchTitle(), local.SearchArtist())},
		"fmt":   {"json"},
		"limit": {strconv.Itoa(searchLimit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/release?"+params.Encode(), "")
	if err != nil {
		return nil, err
	}

	var resp ReleaseSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing release search response: %w", err)
	}

	cands := make([]provider.RawCandidate, 0, len(resp.Releases))
	for i, r := range resp.Releases {
		if i < a.detailLimit {
			full, err := a.FetchRelease(ctx, r.ID)
			if err == nil {
				cands = append(cands, *full)
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Debug("release lookup failed, using search summary",
				slog.String("id", r.ID), slog.String("error", err.Error()))
		}
		cands = append(cands, mapRelease(&r))
	}
	return cands, nil
}

func (a *Adapter) searchRecordings(ctx context.Context, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	params := url.Values{
		"query": {buildQuery("recording", local.SearchTitle(), local.SearchArtist())},
		"fmt":   {"json"},
		"limit": {strconv.Itoa(searchLimit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/recording?"+params.Encode(), "")
	if err != nil {
		return nil, err
	}

	var resp RecordingSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing recording search response: %w", err)
	}

	cands := make([]provider.RawCandidate, 0, len(resp.Recordings))
	for _, r := range resp.Recordings {
		cands = append(cands, mapRecording(&r))
	}
	return cands, nil
}

// doRequest executes an HTTP GET with rate limiting and standard headers.
func (a *Adapter) doRequest(ctx context.Context, reqURL, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	a.logger.Debug("requesting", slog.String("url", reqURL))
	return provider.Do(a.client, a.limiter, provider.SourceMusicBrainz, req, id)
}

func mapRelease(r *MBRelease) provider.RawCandidate {
	c := provider.RawCandidate{
		Source: provider.SourceMusicBrainz,
		ID:     r.ID,
		Title:  provider.Text(r.Title),
		Artist: provider.Text(creditName(r.ArtistCredit)),
		Year:   provider.YearOf(r.Date),
		Script: r.TextRepresentation.Script,
		URL:    "https://musicbrainz.org/release/" + r.ID,
	}
	if r.Status == statusPseudo {
		c.Source = provider.SourceMusicBrainzPseudo
	}

	index := 0
	for _, m := range r.Media {
		for _, t := range m.Tracks {
			index++
			ct := provider.CandidateTrack{
				Title:    provider.Text(t.Title),
				Artist:   provider.Text(creditName(t.ArtistCredit)),
				Index:    provider.Number(index),
				Duration: provider.Millis(t.Length),
			}
			if t.Recording != nil {
				if ct.Title == nil {
					ct.Title = provider.Text(t.Recording.Title)
				}
				if ct.Duration == nil {
					ct.Duration = provider.Millis(t.Recording.Length)
				}
			}
			c.Tracks = append(c.Tracks, ct)
		}
	}

	for _, rel := range r.Relations {
		if rel.Type == relPseudoRelease && rel.Direction == "forward" && rel.Release != nil && rel.Release.ID != "" {
			c.RelatedIDs = append(c.RelatedIDs, rel.Release.ID)
		}
	}
	return c
}

func mapRecording(r *MBRecording) provider.RawCandidate {
	c := provider.RawCandidate{
		Source:   provider.SourceMusicBrainz,
		ID:       r.ID,
		Title:    provider.Text(r.Title),
		Artist:   provider.Text(creditName(r.ArtistCredit)),
		Year:     provider.YearOf(r.FirstReleaseDate),
		Duration: provider.Millis(r.Length),
		URL:      "https://musicbrainz.org/recording/" + r.ID,
	}
	if len(r.Releases) > 0 {
		rel := r.Releases[0]
		c.Album = provider.Text(rel.Title)
		if c.Year == nil {
			c.Year = provider.YearOf(rel.Date)
		}
		if len(rel.Media) > 0 && len(rel.Media[0].Track) > 0 {
			if n, err := strconv.Atoi(rel.Media[0].Track[0].Number); err == nil {
				c.TrackIndex = provider.Number(n)
			}
		}
	}
	return c
}

// creditName joins an artist credit the way MusicBrainz displays it.
func creditName(credits []MBArtistCredit) string {
	var b strings.Builder
	for _, ac := range credits {
		name := ac.Name
		if name == "" {
			name = ac.Artist.Name
		}
		b.WriteString(name)
		b.WriteString(ac.JoinPhrase)
	}
	return b.String()
}

// buildQuery builds a Lucene query for the given entity field and artist.
func buildQuery(field, title, artist string) string {
	var parts []string
	if title != "" {
		parts = append(parts, field+":"+quote(title))
	}
	if artist != "" {
		parts = append(parts, "artist:"+quote(artist))
	}
	return strings.Join(parts, " AND ")
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
