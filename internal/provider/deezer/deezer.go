package deezer

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
	"unicode"

	"github.com/sydlexius/autotagger/internal/provider"
)

const defaultBaseURL = "https://api.deezer.com"

const (
	searchLimit        = 5
	defaultDetailLimit = 3

	// Embedded error codes.
	codeQuota  = 4
	codeNoData = 800
)

// Adapter implements provider.Provider for Deezer's public API.
// No authentication is required. Album popularity is the fan count and
// track popularity is Deezer's rank.
type Adapter struct {
	client      *http.Client
	limiter     *provider.RateLimiterMap
	logger      *slog.Logger
	baseURL     string
	detailLimit int
}

// New creates a Deezer adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Deezer adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:      &http.Client{Timeout: 10 * time.Second},
		limiter:     limiter,
		logger:      logger.With(slog.String("provider", "deezer")),
		baseURL:     strings.TrimRight(baseURL, "/"),
		detailLimit: defaultDetailLimit,
	}
}

// SetDetailLimit sets how many album hits are fetched in full.
func (a *Adapter) SetDetailLimit(n int) {
	if n >= 0 {
		a.detailLimit = n
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() provider.SourceName { return provider.SourceDeezer }

// RequiresAuth returns false since Deezer's public API needs no API key.
func (a *Adapter) RequiresAuth() bool { return false }

// SearchCandidates searches albums for albums and tracks for single tracks.
func (a *Adapter) SearchCandidates(ctx context.Context, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	if local.IsAlbum() {
		return a.searchAlbums(ctx, local)
	}
	return a.searchTracks(ctx, local)
}

// TestConnection verifies connectivity to the Deezer API.
func (a *Adapter) TestConnection(ctx context.Context) error {
	_, err := a.doRequest(ctx, a.baseURL+"/search/album?q=test&limit=1", "")
	return err
}

func (a *Adapter) searchAlbums(ctx context.Context, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	params := url.Values{
		"q":     {buildQuery("album", local.SearchTitle(), local.SearchArtist())},
		"limit": {strconv.Itoa(searchLimit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/search/album?"+params.Encode(), "")
	if err != nil {
		return nil, err
	}

	var resp albumSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing album search response: %w", err)
	}

	cands := make([]provider.RawCandidate, 0, len(resp.Data))
	for i, r := range resp.Data {
		if i < a.detailLimit {
			c, err := a.fetchAlbum(ctx, strconv.Itoa(r.ID))
			if err == nil {
				cands = append(cands, *c)
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Debug("album lookup failed, using search summary",
				slog.Int("id", r.ID), slog.String("error", err.Error()))
		}
		cands = append(cands, provider.RawCandidate{
			Source: provider.SourceDeezer,
			ID:     strconv.Itoa(r.ID),
			Title:  provider.Text(r.Title),
			Artist: provider.Text(r.Artist.Name),
			URL:    r.Link,
		})
	}

	a.logger.Debug("album search completed",
		slog.String("title", local.SearchTitle()),
		slog.Int("results", len(cands)))
	return cands, nil
}

func (a *Adapter) fetchAlbum(ctx context.Context, id string) (*provider.RawCandidate, error) {
	if !isDeezerID(id) {
		return nil, &provider.ErrNotFound{Provider: provider.SourceDeezer, ID: id}
	}
	body, err := a.doRequest(ctx, a.baseURL+"/album/"+url.PathEscape(id), id)
	if err != nil {
		return nil, err
	}
	var d albumDetail
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("parsing album response: %w", err)
	}

	c := provider.RawCandidate{
		Source:     provider.SourceDeezer,
		ID:         strconv.Itoa(d.ID),
		Title:      provider.Text(d.Title),
		Artist:     provider.Text(d.Artist.Name),
		Year:       provider.YearOf(d.ReleaseDate),
		Popularity: provider.Number(d.Fans),
		URL:        d.Link,
	}
	for i, t := range d.Tracks.Data {
		index := t.TrackPosition
		if index <= 0 {
			index = i + 1
		}
		c.Tracks = append(c.Tracks, provider.CandidateTrack{
			Title:    provider.Text(t.Title),
			Artist:   provider.Text(t.Artist.Name),
			Index:    provider.Number(index),
			Duration: provider.Seconds(float64(t.Duration)),
		})
	}
	return &c, nil
}

func (a *Adapter) searchTracks(ctx context.Context, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	params := url.Values{
		"q":     {buildQuery("track", local.SearchTitle(), local.SearchArtist())},
		"limit": {strconv.Itoa(searchLimit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/search/track?"+params.Encode(), "")
	if err != nil {
		return nil, err
	}

	var resp trackSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing track search response: %w", err)
	}

	cands := make([]provider.RawCandidate, 0, len(resp.Data))
	for _, t := range resp.Data {
		cands = append(cands, provider.RawCandidate{
			Source:     provider.SourceDeezer,
			ID:         strconv.Itoa(t.ID),
			Title:      provider.Text(t.Title),
			Artist:     provider.Text(t.Artist.Name),
			Album:      provider.Text(t.Album.Title),
			TrackIndex: provider.Number(t.TrackPosition),
			Duration:   provider.Seconds(float64(t.Duration)),
			Popularity: provider.Number(t.Rank),
			URL:        t.Link,
		})
	}
	return cands, nil
}

// doRequest executes a GET request and maps Deezer's embedded errors.
func (a *Adapter) doRequest(ctx context.Context, reqURL, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	body, err := provider.Do(a.client, a.limiter, provider.SourceDeezer, req, id)
	if err != nil {
		return nil, err
	}

	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		switch env.Error.Code {
		case codeNoData:
			return nil, &provider.ErrNotFound{Provider: provider.SourceDeezer, ID: id}
		case codeQuota:
			return nil, &provider.ErrProviderUnavailable{
				Provider:   provider.SourceDeezer,
				Cause:      fmt.Errorf("quota exceeded: %s", env.Error.Message),
				RetryAfter: 5 * time.Second,
			}
		default:
			return nil, &provider.ErrProviderUnavailable{
				Provider: provider.SourceDeezer,
				Cause:    fmt.Errorf("%s: %s", env.Error.Type, env.Error.Message),
			}
		}
	}
	return body, nil
}

// buildQuery builds Deezer's advanced search syntax, e.g. album:"x" artist:"y".
func buildQuery(field, title, artist string) string {
	var parts []string
	if title != "" {
		parts = append(parts, field+":"+strconv.Quote(title))
	}
	if artist != "" {
		parts = append(parts, "artist:"+strconv.Quote(artist))
	}
	return strings.Join(parts, " ")
}

// isDeezerID reports whether id is a valid Deezer ID (all digits).
func isDeezerID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
