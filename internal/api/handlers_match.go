package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/sydlexius/autotagger/internal/provider"
)

// matchRequest is the wire form of a local track or album. Lengths are in
// seconds; unknown fields are omitted.
type matchRequest struct {
	Title           string              `json:"title"`
	Artist          string              `json:"artist"`
	Album           string              `json:"album"`
	TrackIndex      int                 `json:"track_index"`
	Year            int                 `json:"year"`
	DurationSeconds float64             `json:"duration_seconds"`
	Script          string              `json:"script"`
	Tracks          []matchTrackRequest `json:"tracks"`
}

type matchTrackRequest struct {
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	Index           int     `json:"index"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (m *matchRequest) toLocal() *provider.LocalEntity {
	local := &provider.LocalEntity{
		Title:      provider.Text(m.Title),
		Artist:     provider.Text(m.Artist),
		Album:      provider.Text(m.Album),
		TrackIndex: provider.Number(m.TrackIndex),
		Year:       provider.Number(m.Year),
		Duration:   provider.Seconds(m.DurationSeconds),
		Script:     m.Script,
	}
	for _, t := range m.Tracks {
		local.Tracks = append(local.Tracks, provider.LocalTrack{
			Title:    provider.Text(t.Title),
			Artist:   provider.Text(t.Artist),
			Index:    provider.Number(t.Index),
			Duration: provider.Seconds(t.DurationSeconds),
		})
	}
	return local
}

// handleMatch ranks candidates for the posted entity. The optional limit
// query parameter truncates the candidate list after ranking.
func (r *Router) handleMatch(w http.ResponseWriter, req *http.Request) {
	if r.matcher == nil {
		writeError(w, http.StatusServiceUnavailable, "matching is not available")
		return
	}
	var body matchRequest
	if err := decodeJSON(w, req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	limit := 0
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	result, err := r.matcher.Run(req.Context(), body.toLocal())
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "matching timed out")
		case errors.Is(err, context.Canceled):
			// Client went away; nothing useful to send.
			r.logger.Debug("match request cancelled")
		default:
			r.logger.Error("running match", "error", err)
			writeError(w, http.StatusInternalServerError, "matching failed")
		}
		return
	}
	if limit > 0 && len(result.Candidates) > limit {
		result.Candidates = result.Candidates[:limit]
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleMatchSettings(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.matchSettings)
}
