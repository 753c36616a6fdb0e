package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDoStatusMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if !strings.HasPrefix(r.Header.Get("User-Agent"), "autotagger/") {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/denied":
			w.WriteHeader(http.StatusUnauthorized)
		case "/slow-down":
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	do := func(path string) ([]byte, error) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+path, nil)
		if err != nil {
			t.Fatal(err)
		}
		return Do(srv.Client(), Unlimited(), SourceDeezer, req, "id-1")
	}

	body, err := do("/ok")
	if err != nil || string(body) != `{"ok":true}` {
		t.Fatalf("ok: body=%q err=%v", body, err)
	}

	_, err = do("/missing")
	var nf *ErrNotFound
	if !errors.As(err, &nf) || nf.ID != "id-1" {
		t.Errorf("missing: got %v", err)
	}

	_, err = do("/denied")
	var auth *ErrAuthRequired
	if !errors.As(err, &auth) {
		t.Errorf("denied: got %v", err)
	}

	_, err = do("/slow-down")
	var un *ErrProviderUnavailable
	if !errors.As(err, &un) || un.RetryAfter != 7*time.Second {
		t.Errorf("throttled: got %v", err)
	}

	_, err = do("/teapot")
	if !errors.As(err, &un) {
		t.Errorf("unexpected status: got %v", err)
	}
}

func TestDoHonoursDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Do(srv.Client(), Unlimited(), SourceDeezer, req, "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error through the unavailable wrapper, got %v", err)
	}
}
