package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTokenServer(t *testing.T, issued *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok {
			_ = r.ParseForm()
			id, secret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
		}
		w.Header().Set("Content-Type", "application/json")
		if id != "client" || secret != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		issued.Add(1)
		_, _ = w.Write([]byte(`{"access_token":"access-1","token_type":"bearer","expires_in":3600}`))
	}))
}

func TestTokenCacheReusesToken(t *testing.T) {
	var issued atomic.Int32
	srv := newTokenServer(t, &issued)
	defer srv.Close()

	svc := NewSettingsService(setupTestDB(t), setupTestSealer(t))
	ctx := context.Background()
	if err := svc.SetAPIKey(ctx, SourceSpotify, "client:secret"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	cache := NewTokenCache(SourceSpotify, srv.URL, srv.Client(), svc)

	for range 3 {
		tok, err := cache.Token(ctx)
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if tok != "access-1" {
			t.Errorf("token = %q", tok)
		}
	}
	if issued.Load() != 1 {
		t.Errorf("expected 1 token request, got %d", issued.Load())
	}
}

func TestTokenCacheRejectedCredentials(t *testing.T) {
	var issued atomic.Int32
	srv := newTokenServer(t, &issued)
	defer srv.Close()

	svc := NewSettingsService(setupTestDB(t), setupTestSealer(t))
	cache := NewTokenCache(SourceSpotify, srv.URL, srv.Client(), svc)

	ctx := WithAPIKeyOverride(context.Background(), SourceSpotify, "client:wrong")
	_, err := cache.Token(ctx)
	var authErr *ErrAuthRequired
	if !errors.As(err, &authErr) {
		t.Errorf("expected ErrAuthRequired, got %v", err)
	}
}

func TestTokenCacheMissingCredentials(t *testing.T) {
	svc := NewSettingsService(setupTestDB(t), setupTestSealer(t))
	cache := NewTokenCache(SourceBeatport, "http://127.0.0.1:1", http.DefaultClient, svc)

	_, err := cache.Token(context.Background())
	var authErr *ErrAuthRequired
	if !errors.As(err, &authErr) {
		t.Errorf("expected ErrAuthRequired, got %v", err)
	}
}

func TestTokenCacheUnreachable(t *testing.T) {
	svc := NewSettingsService(setupTestDB(t), setupTestSealer(t))
	cache := NewTokenCache(SourceBeatport, "http://127.0.0.1:1/token", http.DefaultClient, svc)

	ctx := WithAPIKeyOverride(context.Background(), SourceBeatport, "client:secret")
	_, err := cache.Token(ctx)
	var un *ErrProviderUnavailable
	if !errors.As(err, &un) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}
