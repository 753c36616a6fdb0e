// Package beatport searches the Beatport v4 catalog.
package beatport

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
	defaultBaseURL     = "https://api.beatport.com/v4"
	tokenPath          = "/auth/o/token/"
	searchLimit        = 5
	defaultDetailLimit = 3
	// originalMix is Beatport's name for the unremixed version.
	originalMix = "Original Mix"
)

// Adapter implements provider.Provider for Beatport. Beatport exposes no
// popularity figure, so candidates never carry one.
type Adapter struct {
	client      *http.Client
	limiter     *provider.RateLimiterMap
	tokens      *provider.TokenCache
	logger      *slog.Logger
	baseURL     string
	detailLimit int
}

// New creates a Beatport adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, settings *provider.SettingsService, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, settings, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Beatport adapter with a custom base URL (for testing).
// The token endpoint lives under the same base URL.
func NewWithBaseURL(limiter *provider.RateLimiterMap, settings *provider.SettingsService, logger *slog.Logger, baseURL string) *Adapter {
	baseURL = strings.TrimRight(baseURL, "/")
	client := &http.Client{Timeout: 10 * time.Second}
	return &Adapter{
		client:      client,
		limiter:     limiter,
		tokens:      provider.NewTokenCache(provider.SourceBeatport, baseURL+tokenPath, client, settings),
		logger:      logger.With(slog.String("provider", "beatport")),
		baseURL:     baseURL,
		detailLimit: defaultDetailLimit,
	}
}

// SetDetailLimit sets how many release hits get their tracklist fetched.
func (a *Adapter) SetDetailLimit(n int) {
	if n >= 0 {
		a.detailLimit = n
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.SourceName { return provider.SourceBeatport }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return true }

// SearchCandidates searches releases for albums and tracks for single tracks.
func (a *Adapter) SearchCandidates(ctx context.Context, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if local.IsAlbum() {
		return a.searchReleases(ctx, token, local)
	}
	return a.searchTracks(ctx, token, local)
}

// TestConnection verifies the client credentials can obtain a token and search.
func (a *Adapter) TestConnection(ctx context.Context) error {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return err
	}
	_, err = a.doRequest(ctx, token, a.baseURL+"/catalog/search/?q=test&type=releases&per_page=1", "")
	return err
}

func (a *Adapter) searchReleases(ctx context.Context, token string, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	resp, err := a.search(ctx, token, "releases", local)
	if err != nil {
		return nil, err
	}

	cands := make([]provider.RawCandidate, 0, len(resp.Releases))
	for i, r := range resp.Releases {
		c := mapRelease(&r)
		if i < a.detailLimit {
			tracks, err := a.releaseTracks(ctx, token, r.ID)
			switch {
			case err == nil:
				c.Tracks = tracks
			case ctx.Err() != nil:
				return nil, ctx.Err()
			default:
				a.logger.Debug("tracklist lookup failed, using search summary",
					slog.Int("id", r.ID), slog.String("error", err.Error()))
			}
		}
		cands = append(cands, c)
	}
	return cands, nil
}

func (a *Adapter) releaseTracks(ctx context.Context, token string, id int) ([]provider.CandidateTrack, error) {
	sid := strconv.Itoa(id)
	body, err := a.doRequest(ctx, token, a.baseURL+"/catalog/releases/"+sid+"/tracks/?per_page=100", sid)
	if err != nil {
		return nil, err
	}
	var resp tracksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing tracks response: %w", err)
	}
	tracks := make([]provider.CandidateTrack, 0, len(resp.Results))
	for i, t := range resp.Results {
		index := t.Number
		if index <= 0 {
			index = i + 1
		}
		tracks = append(tracks, provider.CandidateTrack{
			Title:    provider.Text(trackTitle(t.Name, t.MixName)),
			Artist:   provider.Text(joinArtists(t.Artists)),
			Index:    provider.Number(index),
			Duration: provider.Millis(t.LengthMS),
		})
	}
	return tracks, nil
}

func (a *Adapter) searchTracks(ctx context.Context, token string, local *provider.LocalEntity) ([]provider.RawCandidate, error) {
	resp, err := a.search(ctx, token, "tracks", local)
	if err != nil {
		return nil, err
	}
	cands := make([]provider.RawCandidate, 0, len(resp.Tracks))
	for _, t := range resp.Tracks {
		c := provider.RawCandidate{
			Source:     provider.SourceBeatport,
			ID:         strconv.Itoa(t.ID),
			Title:      provider.Text(trackTitle(t.Name, t.MixName)),
			Artist:     provider.Text(joinArtists(t.Artists)),
			TrackIndex: provider.Number(t.Number),
			Year:       provider.YearOf(t.PublishDate),
			Duration:   provider.Millis(t.LengthMS),
			URL:        fmt.Sprintf("https://www.beatport.com/track/%s/%d", t.Slug, t.ID),
		}
		if t.Release != nil {
			c.Album = provider.Text(t.Release.Name)
		}
		cands = append(cands, c)
	}
	return cands, nil
}

func (a *Adapter) search(ctx context.Context, token, kind string, local *provider.LocalEntity) (*searchResponse, error) {
	q := strings.TrimSpace(local.SearchArtist() + " " + local.SearchTitle())
	params := url.Values{
		"q":        {q},
		"type":     {kind},
		"per_page": {strconv.Itoa(searchLimit)},
	}
	body, err := a.doRequest(ctx, token, a.baseURL+"/catalog/search/?"+params.Encode(), "")
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
	return provider.Do(a.client, a.limiter, provider.SourceBeatport, req, id)
}

func mapRelease(r *release) provider.RawCandidate {
	date := r.NewReleaseDate
	if date == "" {
		date = r.PublishDate
	}
	return provider.RawCandidate{
		Source: provider.SourceBeatport,
		ID:     strconv.Itoa(r.ID),
		Title:  provider.Text(r.Name),
		Artist: provider.Text(joinArtists(r.Artists)),
		Year:   provider.YearOf(date),
		URL:    fmt.Sprintf("https://www.beatport.com/release/%s/%d", r.Slug, r.ID),
	}
}

// trackTitle appends the mix name unless it is the original mix.
func trackTitle(name, mix string) string {
	mix = strings.TrimSpace(mix)
	if mix == "" || strings.EqualFold(mix, originalMix) {
		return name
	}
	return name + " (" + mix + ")"
}

func joinArtists(artists []artistRef) string {
	names := make([]string, 0, len(artists))
	for _, ar := range artists {
		names = append(names, ar.Name)
	}
	return strings.Join(names, ", ")
}
