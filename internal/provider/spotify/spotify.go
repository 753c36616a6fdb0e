// Package spotify searches the Spotify Web API catalogue.
package spotify

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

const (
	defaultBaseURL  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	searchLimit     = 5
)

// Adapter implements provider.Provider for Spotify. Credentials are stored
// as "client_id:client_secret" and exchanged for app tokens.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	tokens  *provider.TokenCache
	logger  *slog.Logger
	baseURL string
}

// New creates a Spotify adapter with the default endpoints.
func New(limiter *provider.RateLimiterMap, settings *provider.SettingsService, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, settings, logger, defaultBaseURL, defaultTokenURL)
}

// NewWithBaseURL creates a Spotify adapter with custom endpoints (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, settings *provider.SettingsService, logger *slog.Logger, baseURL, tokenURL string) *Adapter {
	client := &http.Client{Timeout: 10 * time.Second}
	return &Adapter{
		client:  client,
		limiter: limiter,
		tokens:  provider.NewTokenCache(provider.SourceSpotify, tokenURL, client, settings),
		logger:  logger.With(slog.String("provider", "spotify")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.SourceName { return provider.SourceSpotify }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return true }

// SearchCandidates searches albums for albums and tracks for single tracks.
// Album hits are expanded in one batch request to get tracklists and popularity.
func (a *Adapter) SearchCandidates(ctx context.Context, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if local.IsAlbum() {
		return a.searchAlbums(ctx, token, local)
	}
	return a.searchTracks(ctx, token, local)
}

// TestConnection verifies the client credentials can obtain a token and search.
func (a *Adapter) TestConnection(ctx context.Context) error {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return err
	}
	_, err = a.doRequest(ctx, token, a.baseURL+"/search?q=test&type=album&limit=1", "")
	return err
}

func (a *Adapter) searchAlbums(ctx context.Context, token string, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	resp, err := a.search(ctx, token, "album", local)
	if err != nil {
		return nil, err
	}
	if resp.Albums == nil || len(resp.Albums.Items) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(resp.Albums.Items))
	for _, al := range resp.Albums.Items {
		ids = append(ids, al.ID)
	}
	full := a.fetchAlbums(ctx, token, ids)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cands := make([]provider.RawCandidate, 0, len(resp.Albums.Items))
	for i := range resp.Albums.Items {
		al := &resp.Albums.Items[i]
		if f, ok := full[al.ID]; ok {
			al = f
		}
		cands = append(cands, mapAlbum(al))
	}
	return cands, nil
}

// fetchAlbums looks up albums in one batch. Failures fall back to search
// summaries, so they are logged rather than returned.
func (a *Adapter) fetchAlbums(ctx context.Context, token string, ids []string) map[string]*album {
	params := url.Values{"ids": {strings.Join(ids, ",")}}
	body, err := a.doRequest(ctx, token, a.baseURL+"/albums?"+params.Encode(), "")
	if err != nil {
		a.logger.Debug("album lookup failed, using search summaries", slog.String("error", err.Error()))
		return nil
	}
	var resp albumsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		a.logger.Debug("parsing albums response", slog.String("error", err.Error()))
		return nil
	}
	out := make(map[string]*album, len(resp.Albums))
	for _, al := range resp.Albums {
		// Unknown ids come back as null entries.
		if al != nil {
			out[al.ID] = al
		}
	}
	return out
}

func (a *Adapter) searchTracks(ctx context.Context, token string, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	resp, err := a.search(ctx, token, "track", local)
	if err != nil {
		return nil, err
	}
	if resp.Tracks == nil {
		return nil, nil
	}
	cands := make([]provider.RawCandidate, 0, len(resp.Tracks.Items))
	for _, t := range resp.Tracks.Items {
		c := provider.RawCandidate{
			Source:     provider.SourceSpotify,
			ID:         t.ID,
			Title:      provider.Text(t.Name),
			Artist:     provider.Text(joinArtists(t.Artists)),
			TrackIndex: provider.Number(t.TrackNumber),
			Duration:   provider.Millis(t.DurationMS),
			Popularity: provider.Number(t.Popularity),
			URL:        t.ExternalURLs.Spotify,
		}
		if t.Album != nil {
			c.Album = provider.Text(t.Album.Name)
			c.Year = provider.YearOf(t.Album.ReleaseDate)
		}
		cands = append(cands, c)
	}
	return cands, nil
}

func (a *Adapter) search(ctx context.Context, token, kind string, local *provider.LocalEntity) (*searchResponse, error) {
	params := url.Values{
		"q":     {buildQuery(kind, local.SearchTitle(), local.SearchArtist())},
		"type":  {kind},
		"limit": {strconv.Itoa(searchLimit)},
	}
	body, err := a.doRequest(ctx, token, a.baseURL+"/search?"+params.Encode(), "")
	if err != nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return &resp, nil
}

func (a *Adapter) doRequest(ctx context.Context, token, reqURL, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	a.logger.Debug("requesting", slog.String("url", reqURL))
	return provider.Do(a.client, a.limiter, provider.SourceSpotify, req, id)
}

func mapAlbum(al *album) provider.RawCandidate {
	c := provider.RawCandidate{
		Source:     provider.SourceSpotify,
		ID:         al.ID,
		Title:      provider.Text(al.Name),
		Artist:     provider.Text(joinArtists(al.Artists)),
		Year:       provider.YearOf(al.ReleaseDate),
		Popularity: provider.Number(al.Popularity),
		URL:        al.ExternalURLs.Spotify,
	}
	if al.Tracks != nil {
		for i, t := range al.Tracks.Items {
			c.Tracks = append(c.Tracks, provider.CandidateTrack{
				Title:    provider.Text(t.Name),
				Artist:   provider.Text(joinArtists(t.Artists)),
				Index:    provider.Number(i + 1),
				Duration: provider.Millis(t.DurationMS),
			})
		}
	}
	return c
}

func joinArtists(artists []artist) string {
	names := make([]string, 0, len(artists))
	for _, ar := range artists {
		names = append(names, ar.Name)
	}
	return strings.Join(names, ", ")
}

// buildQuery builds a field-filtered search query, e.g. album:"x" artist:"y".
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
