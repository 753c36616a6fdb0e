package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sydlexius/autotagger/internal/provider"
	"github.com/sydlexius/autotagger/internal/provider/providertest"
)

type fakeAPI struct {
	tokens     atomic.Int32
	lookups    atomic.Int32
	failAlbums bool
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("grant_type") != "client_credentials" || r.PostForm.Get("client_secret") != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		f.tokens.Add(1)
		w.Write([]byte(`{"access_token":"app-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /v1/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer app-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("type") {
		case "album":
			w.Write(providertest.Fixture(t, "search_albums.json"))
		case "track":
			w.Write(providertest.Fixture(t, "search_tracks.json"))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("GET /v1/albums", func(w http.ResponseWriter, r *http.Request) {
		f.lookups.Add(1)
		if f.failAlbums {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.URL.Query().Get("ids") != "0ETFjACtuP2ADo6LFhL6HN,missingDetail" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(providertest.Fixture(t, "albums.json"))
	})
	return mux
}

func newTestAdapter(t *testing.T, srv *httptest.Server, creds string) *Adapter {
	t.Helper()
	stored := map[provider.SourceName]string{}
	if creds != "" {
		stored[provider.SourceSpotify] = creds
	}
	settings := providertest.Settings(t, stored)
	return NewWithBaseURL(provider.Unlimited(), settings, providertest.Logger(), srv.URL+"/v1", srv.URL+"/api/token")
}

func albumEntity() *provider.LocalEntity {
	return &provider.LocalEntity{
		Title:  provider.Text("Abbey Road"),
		Artist: provider.Text("The Beatles"),
		Tracks: []provider.LocalTrack{{Title: provider.Text("Come Together")}},
	}
}

func TestSearchCandidatesAlbum(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	a := newTestAdapter(t, srv, "client:secret")

	cands, err := a.SearchCandidates(context.Background(), albumEntity())
	if err != nil {
		t.Fatalf("SearchCandidates: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if api.lookups.Load() != 1 {
		t.Errorf("expected one batch lookup, got %d", api.lookups.Load())
	}

	full := cands[0]
	if full.Popularity == nil || *full.Popularity != 83 {
		t.Errorf("popularity = %v, want 83", full.Popularity)
	}
	if len(full.Tracks) != 2 || *full.Tracks[1].Duration != 182293*time.Millisecond {
		t.Errorf("unexpected tracks %+v", full.Tracks)
	}
	if full.Year == nil || *full.Year != 1969 {
		t.Errorf("year = %v", full.Year)
	}

	summary := cands[1]
	if summary.ID != "missingDetail" || len(summary.Tracks) != 0 {
		t.Errorf("null lookup entry should keep the search summary, got %+v", summary)
	}
	if summary.Year == nil || *summary.Year != 2019 {
		t.Errorf("year-only release date should parse, got %v", summary.Year)
	}
}

func TestSearchCandidatesLookupFailure(t *testing.T) {
	api := &fakeAPI{failAlbums: true}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	a := newTestAdapter(t, srv, "client:secret")

	cands, err := a.SearchCandidates(context.Background(), albumEntity())
	if err != nil {
		t.Fatalf("lookup failure should not fail the search: %v", err)
	}
	if len(cands) != 2 || cands[0].Popularity != nil {
		t.Errorf("expected summaries only, got %+v", cands)
	}
}

func TestSearchCandidatesTrack(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	a := newTestAdapter(t, srv, "client:secret")

	cands, err := a.SearchCandidates(context.Background(), &provider.LocalEntity{
		Title:  provider.Text("Come Together"),
		Artist: provider.Text("The Beatles"),
	})
	if err != nil {
		t.Fatalf("SearchCandidates: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	c := cands[0]
	if provider.Deref(c.Album) != "Abbey Road (Remastered)" || c.Popularity == nil || *c.Popularity != 78 {
		t.Errorf("unexpected candidate %+v", c)
	}
	if c.TrackIndex == nil || *c.TrackIndex != 1 {
		t.Errorf("track index = %v", c.TrackIndex)
	}
}

func TestTokenReused(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	a := newTestAdapter(t, srv, "client:secret")

	for range 2 {
		if err := a.TestConnection(context.Background()); err != nil {
			t.Fatalf("TestConnection: %v", err)
		}
	}
	if api.tokens.Load() != 1 {
		t.Errorf("expected 1 token request, got %d", api.tokens.Load())
	}
}

func TestAuthErrors(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	tests := []struct {
		name  string
		creds string
	}{
		{"missing", ""},
		{"rejected", "client:wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, srv, tt.creds)
			_, err := a.SearchCandidates(context.Background(), albumEntity())
			var authErr *provider.ErrAuthRequired
			if !errors.As(err, &authErr) {
				t.Errorf("expected ErrAuthRequired, got %v", err)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	if got := buildQuery("album", "Abbey Road", "The Beatles"); got != `album:"Abbey Road" artist:"The Beatles"` {
		t.Errorf("buildQuery = %s", got)
	}
}
