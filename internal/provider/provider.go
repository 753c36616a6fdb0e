package provider

import (
	"context"
	"fmt"
	"time"
)

// AccessTier classifies a provider's access model.
type AccessTier string

// Access tier constants for classifying a provider's access model.
const (
	TierFree    AccessTier = "free"     // No key, no limit known
	TierFreeKey AccessTier = "free_key" // Free account/sign-up required
	TierPaid    AccessTier = "paid"     // Paid access only
)

// RateLimitInfo documents the known rate limits for a provider.
type RateLimitInfo struct {
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
	RequestsPerDay    int     `json:"requests_per_day,omitempty"` // 0 = unknown/unlimited
}

// ProviderCapability describes a provider's access model and documented rate limits.
type ProviderCapability struct {
	Tier      AccessTier     `json:"tier"`
	HelpURL   string         `json:"help_url,omitempty"`
	RateLimit *RateLimitInfo `json:"rate_limit,omitempty"`
}

// ProviderCapabilities returns the known capability metadata for each source.
func ProviderCapabilities() map[SourceName]ProviderCapability {
	return map[SourceName]ProviderCapability{
		SourceMusicBrainz: {
			Tier:      TierFree,
			RateLimit: &RateLimitInfo{RequestsPerSecond: 1},
		},
		SourceDiscogs: {
			Tier:      TierFreeKey,
			HelpURL:   "https://www.discogs.com/settings/developers",
			RateLimit: &RateLimitInfo{RequestsPerSecond: 1, RequestsPerDay: 1000},
		},
		SourceSpotify: {
			Tier:      TierFreeKey,
			HelpURL:   "https://developer.spotify.com/dashboard",
			RateLimit: &RateLimitInfo{RequestsPerSecond: 5},
		},
		SourceDeezer: {
			Tier:      TierFree,
			RateLimit: &RateLimitInfo{RequestsPerSecond: 5},
		},
		SourceBeatport: {
			Tier:      TierPaid,
			HelpURL:   "https://api.beatport.com/v4/docs/",
			RateLimit: &RateLimitInfo{RequestsPerSecond: 2},
		},
	}
}

// SourceName uniquely identifies the catalogue a candidate came from.
type SourceName string

// Known sources. SourceMusicBrainzPseudo marks alternate-script pseudo-releases
// that stand in for a MusicBrainz release.
const (
	SourceMusicBrainz       SourceName = "musicbrainz"
	SourceMusicBrainzPseudo SourceName = "musicbrainz_pseudo"
	SourceDiscogs           SourceName = "discogs"
	SourceSpotify           SourceName = "spotify"
	SourceDeezer            SourceName = "deezer"
	SourceBeatport          SourceName = "beatport"
)

// AllSourceNames returns every known source in display order.
func AllSourceNames() []SourceName {
	return []SourceName{
		SourceMusicBrainz,
		SourceMusicBrainzPseudo,
		SourceDiscogs,
		SourceSpotify,
		SourceDeezer,
		SourceBeatport,
	}
}

// AllProviderNames returns the sources that are backed by a queryable
// provider adapter, in the order they are queried and reported.
func AllProviderNames() []SourceName {
	return []SourceName{
		SourceMusicBrainz,
		SourceDiscogs,
		SourceSpotify,
		SourceDeezer,
		SourceBeatport,
	}
}

// ParseSourceName returns the SourceName for s, or false if s is not a known source.
func ParseSourceName(s string) (SourceName, bool) {
	for _, n := range AllSourceNames() {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

// DisplayName returns a human-readable name for the source.
func (n SourceName) DisplayName() string {
	switch n {
	case SourceMusicBrainz:
		return "MusicBrainz"
	case SourceMusicBrainzPseudo:
		return "MusicBrainz (pseudo-release)"
	case SourceDiscogs:
		return "Discogs"
	case SourceSpotify:
		return "Spotify"
	case SourceDeezer:
		return "Deezer"
	case SourceBeatport:
		return "Beatport"
	default:
		return string(n)
	}
}

// Provider is the interface all catalogue adapters must implement.
type Provider interface {
	// Name returns the unique source identifier.
	Name() SourceName

	// RequiresAuth returns true if this provider needs stored credentials to function.
	RequiresAuth() bool

	// SearchCandidates returns catalogue entries that may describe the local
	// track or album. No results is an empty slice and a nil error.
	SearchCandidates(ctx context.Context, local *LocalEntity) ([]RawCandidate, error)
}

// ReleaseFetcher is implemented by providers that can resolve a related
// release id (for example a pseudo-release) into a full candidate.
type ReleaseFetcher interface {
	FetchRelease(ctx context.Context, id string) (*RawCandidate, error)
}

// TestableProvider is an optional interface providers can implement
// for connection checks from the CLI and the HTTP API.
type TestableProvider interface {
	Provider
	TestConnection(ctx context.Context) error
}

// ErrProviderUnavailable indicates a transient failure (rate-limited, timeout, server error).
type ErrProviderUnavailable struct {
	Provider   SourceName
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the provider has no data for the requested ID.
type ErrNotFound struct {
	Provider SourceName
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("provider %s: release %s not found", e.Provider, e.ID)
}

// ErrAuthRequired indicates the provider needs credentials but none are configured
// or the configured ones were rejected.
type ErrAuthRequired struct {
	Provider SourceName
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("provider %s: credentials not configured or rejected", e.Provider)
}

// ErrMalformedCandidate indicates a provider record lacks a required identifier.
type ErrMalformedCandidate struct {
	Source SourceName
	ID     string
	Reason string
}

func (e *ErrMalformedCandidate) Error() string {
	return fmt.Sprintf("malformed candidate from %q (id %q): %s", e.Source, e.ID, e.Reason)
}
