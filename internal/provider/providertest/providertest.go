// Package providertest provides helpers shared by provider adapter tests.
package providertest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sydlexius/autotagger/internal/database"
	"github.com/sydlexius/autotagger/internal/encryption"
	"github.com/sydlexius/autotagger/internal/provider"
)

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Settings returns a SettingsService over a migrated in-memory database,
// seeded with the given credentials.
func Settings(t testing.TB, creds map[provider.SourceName]string) *provider.SettingsService {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenAndMigrate(ctx, database.MemoryPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sealer, err := encryption.NewEphemeral()
	if err != nil {
		t.Fatalf("creating sealer: %v", err)
	}
	svc := provider.NewSettingsService(db, sealer)
	for name, key := range creds {
		if err := svc.SetAPIKey(ctx, name, key); err != nil {
			t.Fatalf("storing %s credential: %v", name, err)
		}
	}
	return svc
}

// Fixture reads testdata/name relative to the calling test's package.
func Fixture(t testing.TB, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}
