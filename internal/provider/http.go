package provider

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sydlexius/autotagger/internal/version"
)

// maxResponseBytes bounds how much of a catalogue response is read.
const maxResponseBytes = 2 << 20

// defaultRetryAfter is used when a throttled response carries no Retry-After.
const defaultRetryAfter = 2 * time.Second

// UserAgent identifies the application to catalogue APIs. MusicBrainz and
// Discogs reject anonymous clients.
func UserAgent() string {
	return fmt.Sprintf("autotagger/%s (https://github.com/sydlexius/autotagger)", version.Version)
}

// Do waits for the provider's rate limiter, executes req and returns the
// body of a 200 response. Failures are mapped to the provider error types:
// 404 to ErrNotFound (with id), 401/403 to ErrAuthRequired, anything else to
// ErrProviderUnavailable.
func Do(client *http.Client, limiter *RateLimiterMap, name SourceName, req *http.Request, id string) ([]byte, error) {
	if err := limiter.Wait(req.Context(), name); err != nil {
		return nil, &ErrProviderUnavailable{Provider: name, Cause: fmt.Errorf("rate limiter: %w", err)}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent())
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := client.Do(req) //nolint:gosec // URL built from a configured base URL
	if err != nil {
		return nil, &ErrProviderUnavailable{Provider: name, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrNotFound{Provider: name, ID: id}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrAuthRequired{Provider: name}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrProviderUnavailable{
			Provider:   name,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrProviderUnavailable{Provider: name, Cause: fmt.Errorf("unexpected HTTP %d", resp.StatusCode)}
	}
}

func retryAfter(h string) time.Duration {
	if secs, err := strconv.Atoi(h); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultRetryAfter
}
