package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/autotagger/internal/provider"
)

const defaultBaseURL = "https://api.discogs.com"

const (
	searchLimit        = 5
	defaultDetailLimit = 3
)

// Discogs disambiguates artist names with a numeric suffix, e.g. "Nirvana (2)".
var disambiguation = regexp.MustCompile(`\s+\(\d+\)$`)

// Adapter implements provider.Provider for Discogs releases.
type Adapter struct {
	client      *http.Client
	limiter     *provider.RateLimiterMap
	settings    *provider.SettingsService
	logger      *slog.Logger
	baseURL     string
	detailLimit int
}

// New creates a Discogs adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, settings *provider.SettingsService, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, settings, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Discogs adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, settings *provider.SettingsService, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:      &http.Client{Timeout: 10 * time.Second},
		limiter:     limiter,
		settings:    settings,
		logger:      logger.With(slog.String("provider", "discogs")),
		baseURL:     strings.TrimRight(baseURL, "/"),
		detailLimit: defaultDetailLimit,
	}
}

// SetDetailLimit sets how many search hits are fetched in full for their tracklist.
func (a *Adapter) SetDetailLimit(n int) {
	if n >= 0 {
		a.detailLimit = n
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.SourceName { return provider.SourceDiscogs }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return true }

// SearchCandidates searches Discogs releases. Discogs has no track-level
// search, so single tracks yield no candidates.
func (a *Adapter) SearchCandidates(ctx context.Context, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	if !local.IsAlbum() && local.Album == nil {
		return nil, nil
	}
	token, err := a.getToken(ctx)
	if err != nil {
		return nil, err
	}

	title := local.SearchTitle()
	if !local.IsAlbum() {
		title = provider.Deref(local.Album)
	}
	params := url.Values{
		"type":          {"release"},
		"release_title": {title},
		"per_page":      {strconv.Itoa(searchLimit)},
	}
	if artist := local.SearchArtist(); artist != "" {
		params.Set("artist", artist)
	}
	body, err := a.doRequest(ctx, a.baseURL+"/database/search?"+params.Encode(), token, "")
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	cands := make([]provider.RawCandidate, 0, len(resp.Results))
	for i, r := range resp.Results {
		if i < a.detailLimit {
			c, err := a.fetchRelease(ctx, token, strconv.Itoa(r.ID))
			if err == nil {
				cands = append(cands, *c)
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Debug("release lookup failed, using search summary",
				slog.Int("id", r.ID), slog.String("error", err.Error()))
		}
		cands = append(cands, mapSearchResult(&r))
	}
	if !local.IsAlbum() {
		for i := range cands {
			narrowToTrack(&cands[i], local)
		}
	}
	return cands, nil
}

// TestConnection verifies the personal access token is valid.
func (a *Adapter) TestConnection(ctx context.Context) error {
	token, err := a.getToken(ctx)
	if err != nil {
		return err
	}
	_, err = a.doRequest(ctx, a.baseURL+"/database/search?q=test&type=release&per_page=1", token, "")
	return err
}

func (a *Adapter) fetchRelease(ctx context.Context, token, id string) (*provider.RawCandidate, error) {
	body, err := a.doRequest(ctx, a.baseURL+"/releases/"+url.PathEscape(id), token, id)
	if err != nil {
		return nil, err
	}
	var detail ReleaseDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("parsing release response: %w", err)
	}
	c := mapRelease(&detail)
	return &c, nil
}

func (a *Adapter) getToken(ctx context.Context) (string, error) {
	token, err := a.settings.GetAPIKey(ctx, provider.SourceDiscogs)
	if err != nil {
		return "", fmt.Errorf("getting API token: %w", err)
	}
	if token == "" {
		return "", &provider.ErrAuthRequired{Provider: provider.SourceDiscogs}
	}
	return token, nil
}

func (a *Adapter) doRequest(ctx context.Context, reqURL, token, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Discogs token="+token)

	a.logger.Debug("requesting", slog.String("url", reqURL))
	return provider.Do(a.client, a.limiter, provider.SourceDiscogs, req, id)
}

func mapSearchResult(r *SearchResult) provider.RawCandidate {
	artist, title := splitTitle(r.Title)
	year, _ := strconv.Atoi(r.Year)
	return provider.RawCandidate{
		Source:     provider.SourceDiscogs,
		ID:         strconv.Itoa(r.ID),
		Title:      provider.Text(title),
		Artist:     provider.Text(artist),
		Year:       provider.Number(year),
		Popularity: provider.Number(r.Community.Have),
		URL:        "https://www.discogs.com" + r.URI,
	}
}

func mapRelease(d *ReleaseDetail) provider.RawCandidate {
	c := provider.RawCandidate{
		Source:     provider.SourceDiscogs,
		ID:         strconv.Itoa(d.ID),
		Title:      provider.Text(d.Title),
		Artist:     provider.Text(creditName(d.Artists)),
		Year:       provider.Number(d.Year),
		Popularity: provider.Number(d.Community.Have),
		URL:        d.URI,
	}
	if c.Year == nil {
		c.Year = provider.YearOf(d.Released)
	}
	index := 0
	for _, t := range d.Tracklist {
		if t.Type != "" && t.Type != "track" {
			continue
		}
		index++
		c.Tracks = append(c.Tracks, provider.CandidateTrack{
			Title:    provider.Text(t.Title),
			Artist:   provider.Text(creditName(t.Artists)),
			Index:    provider.Number(index),
			Duration: parseDuration(t.Duration),
		})
	}
	return c
}

// narrowToTrack turns a release candidate into a track candidate by picking
// the tracklist row whose title matches the local track.
func narrowToTrack(c *provider.RawCandidate, local *provider.LocalEntity) {
	c.Album = c.Title
	c.Title = nil
	want := strings.ToLower(local.SearchTitle())
	for _, t := range c.Tracks {
		if t.Title != nil && strings.ToLower(*t.Title) == want {
			c.Title = t.Title
			c.TrackIndex = t.Index
			c.Duration = t.Duration
			if t.Artist != nil {
				c.Artist = t.Artist
			}
			break
		}
	}
	c.Tracks = nil
}

// splitTitle splits a search hit title "Artist - Release".
func splitTitle(s string) (artist, title string) {
	if a, t, ok := strings.Cut(s, " - "); ok {
		return disambiguation.ReplaceAllString(strings.TrimSpace(a), ""), strings.TrimSpace(t)
	}
	return "", s
}

func creditName(artists []ArtistRef) string {
	var b strings.Builder
	for i, ar := range artists {
		name := ar.ANV
		if name == "" {
			name = ar.Name
		}
		b.WriteString(disambiguation.ReplaceAllString(name, ""))
		if i < len(artists)-1 {
			join := strings.TrimSpace(ar.Join)
			switch join {
			case "", ",":
				b.WriteString(join + " ")
			default:
				b.WriteString(" " + join + " ")
			}
		}
	}
	return b.String()
}

// parseDuration parses "m:ss" or "h:mm:ss". Empty or malformed input is unknown.
func parseDuration(s string) *time.Duration {
	if s == "" {
		return nil
	}
	var total int
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil
		}
		total = total*60 + n
	}
	return provider.Seconds(float64(total))
}
