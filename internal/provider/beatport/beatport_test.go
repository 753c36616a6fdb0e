package beatport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sydlexius/autotagger/internal/provider"
	"github.com/sydlexius/autotagger/internal/provider/providertest"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/o/token/", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("client_id") != "bp-client" || r.PostForm.Get("client_secret") != "bp-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Write([]byte(`{"access_token":"bp-token","token_type":"Bearer","expires_in":36000}`))
	})
	mux.HandleFunc("GET /catalog/search/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer bp-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("type") {
		case "releases":
			w.Write(providertest.Fixture(t, "search_releases.json"))
		case "tracks":
			w.Write(providertest.Fixture(t, "search_tracks.json"))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("GET /catalog/releases/{id}/tracks/", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1735891" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(providertest.Fixture(t, "release_tracks.json"))
	})
	return httptest.NewServer(mux)
}

func newTestAdapter(t *testing.T, baseURL, creds string) *Adapter {
	t.Helper()
	stored := map[provider.SourceName]string{}
	if creds != "" {
		stored[provider.SourceBeatport] = creds
	}
	return NewWithBaseURL(provider.Unlimited(), providertest.Settings(t, stored), providertest.Logger(), baseURL)
}

func TestSearchCandidatesRelease(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "bp-client:bp-secret")

	cands, err := a.SearchCandidates(context.Background(), &provider.LocalEntity{
		Title:  provider.Text("For Lack Of A Better Name"),
		Artist: provider.Text("deadmau5"),
		Tracks: []provider.LocalTrack{{Title: provider.Text("FML")}},
	})
	if err != nil {
		t.Fatalf("SearchCandidates: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	c := cands[0]
	if c.Popularity != nil {
		t.Error("Beatport has no popularity hint")
	}
	if c.Year == nil || *c.Year != 2009 {
		t.Errorf("year = %v", c.Year)
	}
	if len(c.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(c.Tracks))
	}
	if got := provider.Deref(c.Tracks[0].Title); got != "FML" {
		t.Errorf("original mix should not be appended, got %q", got)
	}
	if got := provider.Deref(c.Tracks[1].Title); got != "Strobe (Radio Edit)" {
		t.Errorf("title = %q", got)
	}
	if *c.Tracks[1].Duration != 213*time.Second {
		t.Errorf("duration = %v", *c.Tracks[1].Duration)
	}
	if c.URL != "https://www.beatport.com/release/for-lack-of-a-better-name/1735891" {
		t.Errorf("url = %s", c.URL)
	}
}

func TestSearchCandidatesTrack(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "bp-client:bp-secret")

	cands, err := a.SearchCandidates(context.Background(), &provider.LocalEntity{
		Title:  provider.Text("Strobe"),
		Artist: provider.Text("deadmau5"),
	})
	if err != nil {
		t.Fatalf("SearchCandidates: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	c := cands[0]
	if provider.Deref(c.Title) != "Strobe" || provider.Deref(c.Album) != "For Lack Of A Better Name" {
		t.Errorf("title/album = %q/%q", provider.Deref(c.Title), provider.Deref(c.Album))
	}
	if c.TrackIndex == nil || *c.TrackIndex != 9 {
		t.Errorf("track index = %v", c.TrackIndex)
	}
	if *c.Duration != 637*time.Second {
		t.Errorf("duration = %v", *c.Duration)
	}
}

func TestSearchCandidatesRejectedCredentials(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "bp-client:nope")

	_, err := a.SearchCandidates(context.Background(), &provider.LocalEntity{Title: provider.Text("Strobe")})
	var authErr *provider.ErrAuthRequired
	if !errors.As(err, &authErr) {
		t.Errorf("expected ErrAuthRequired, got %v", err)
	}
}

func TestTestConnection(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	if err := newTestAdapter(t, srv.URL, "bp-client:bp-secret").TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection: %v", err)
	}
}

func TestTrackTitle(t *testing.T) {
	tests := []struct {
		name, mix, want string
	}{
		{"Strobe", "Original Mix", "Strobe"},
		{"Strobe", "original mix", "Strobe"},
		{"Strobe", "", "Strobe"},
		{"Strobe", "Extended Mix", "Strobe (Extended Mix)"},
	}
	for _, tt := range tests {
		if got := trackTitle(tt.name, tt.mix); got != tt.want {
			t.Errorf("trackTitle(%q, %q) = %q, want %q", tt.name, tt.mix, got, tt.want)
		}
	}
}
