package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/sydlexius/autotagger/internal/encryption"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(context.Background(), `
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		t.Fatalf("creating settings table: %v", err)
	}
	return db
}

func setupTestSealer(t *testing.T) *encryption.Sealer {
	t.Helper()
	s, err := encryption.NewEphemeral()
	if err != nil {
		t.Fatalf("creating sealer: %v", err)
	}
	return s
}

func TestAPIKeyRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettingsService(db, setupTestSealer(t))
	ctx := context.Background()

	key, err := svc.GetAPIKey(ctx, SourceDiscogs)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if key != "" {
		t.Errorf("expected empty key, got %s", key)
	}

	if err := svc.SetAPIKey(ctx, SourceDiscogs, "my-secret-token"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}

	key, err = svc.GetAPIKey(ctx, SourceDiscogs)
	if err != nil {
		t.Fatalf("GetAPIKey after set: %v", err)
	}
	if key != "my-secret-token" {
		t.Errorf("expected 'my-secret-token', got %s", key)
	}

	var raw string
	err = db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", "provider.discogs.api_key").Scan(&raw)
	if err != nil {
		t.Fatalf("reading raw value: %v", err)
	}
	if raw == "my-secret-token" {
		t.Error("credential stored in plaintext, expected sealed")
	}
}

func TestAPIKeyOverride(t *testing.T) {
	svc := NewSettingsService(setupTestDB(t), setupTestSealer(t))
	ctx := WithAPIKeyOverride(context.Background(), SourceDiscogs, "unsaved")

	key, err := svc.GetAPIKey(ctx, SourceDiscogs)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if key != "unsaved" {
		t.Errorf("expected override value, got %q", key)
	}

	key, err = svc.GetAPIKey(ctx, SourceSpotify)
	if err != nil {
		t.Fatalf("GetAPIKey spotify: %v", err)
	}
	if key != "" {
		t.Errorf("override leaked to another provider: %q", key)
	}
}

func TestDeleteAPIKey(t *testing.T) {
	svc := NewSettingsService(setupTestDB(t), setupTestSealer(t))
	ctx := context.Background()

	if err := svc.SetAPIKey(ctx, SourceDiscogs, "token"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if err := svc.SetKeyStatus(ctx, SourceDiscogs, "ok"); err != nil {
		t.Fatalf("SetKeyStatus: %v", err)
	}
	if err := svc.DeleteAPIKey(ctx, SourceDiscogs); err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}

	has, err := svc.HasAPIKey(ctx, SourceDiscogs)
	if err != nil {
		t.Fatalf("HasAPIKey: %v", err)
	}
	if has {
		t.Error("expected key to be deleted")
	}
	status, err := svc.GetKeyStatus(ctx, SourceDiscogs)
	if err != nil {
		t.Fatalf("GetKeyStatus: %v", err)
	}
	if status != "" {
		t.Errorf("expected status cleared, got %q", status)
	}
}

func TestClientCredentials(t *testing.T) {
	svc := NewSettingsService(setupTestDB(t), setupTestSealer(t))
	ctx := context.Background()

	_, _, err := svc.ClientCredentials(ctx, SourceSpotify)
	var authErr *ErrAuthRequired
	if !errors.As(err, &authErr) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}

	if err := svc.SetAPIKey(ctx, SourceSpotify, "no-separator"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if _, _, err := svc.ClientCredentials(ctx, SourceSpotify); err == nil {
		t.Error("expected error for credential without separator")
	}

	if err := svc.SetAPIKey(ctx, SourceSpotify, "abc:def"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	id, secret, err := svc.ClientCredentials(ctx, SourceSpotify)
	if err != nil {
		t.Fatalf("ClientCredentials: %v", err)
	}
	if id != "abc" || secret != "def" {
		t.Errorf("got id=%q secret=%q", id, secret)
	}
}

func TestSetAPIKeyClearsStatus(t *testing.T) {
	svc := NewSettingsService(setupTestDB(t), setupTestSealer(t))
	ctx := context.Background()

	if err := svc.SetAPIKey(ctx, SourceBeatport, "a:b"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if err := svc.SetKeyStatus(ctx, SourceBeatport, "invalid"); err != nil {
		t.Fatalf("SetKeyStatus: %v", err)
	}
	if err := svc.SetAPIKey(ctx, SourceBeatport, "c:d"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	status, err := svc.GetKeyStatus(ctx, SourceBeatport)
	if err != nil {
		t.Fatalf("GetKeyStatus: %v", err)
	}
	if status != "" {
		t.Errorf("expected status reset after new key, got %q", status)
	}
}

func TestListProviderKeyStatuses(t *testing.T) {
	svc := NewSettingsService(setupTestDB(t), setupTestSealer(t))
	ctx := context.Background()

	if err := svc.SetAPIKey(ctx, SourceDiscogs, "token"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if err := svc.SetAPIKey(ctx, SourceSpotify, "id:secret"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if err := svc.SetKeyStatus(ctx, SourceSpotify, "ok"); err != nil {
		t.Fatalf("SetKeyStatus: %v", err)
	}

	statuses, err := svc.ListProviderKeyStatuses(ctx)
	if err != nil {
		t.Fatalf("ListProviderKeyStatuses: %v", err)
	}
	if len(statuses) != len(AllProviderNames()) {
		t.Fatalf("expected %d statuses, got %d", len(AllProviderNames()), len(statuses))
	}

	want := map[SourceName]string{
		SourceMusicBrainz: "not_required",
		SourceDiscogs:     "untested",
		SourceSpotify:     "ok",
		SourceDeezer:      "not_required",
		SourceBeatport:    "unconfigured",
	}
	for _, s := range statuses {
		if s.Status != want[s.Name] {
			t.Errorf("%s status = %q, want %q", s.Name, s.Status, want[s.Name])
		}
		if s.DisplayName == "" {
			t.Errorf("%s missing display name", s.Name)
		}
	}
}

func TestKeyStatusFromTest(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&ErrAuthRequired{Provider: SourceDiscogs}, "invalid"},
		{fmt.Errorf("wrapped: %w", &ErrAuthRequired{Provider: SourceSpotify}), "invalid"},
		{&ErrProviderUnavailable{Provider: SourceDeezer, Cause: errors.New("503")}, ""},
	}
	for _, tt := range tests {
		if got := KeyStatusFromTest(tt.err); got != tt.want {
			t.Errorf("KeyStatusFromTest(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
