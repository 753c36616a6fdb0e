package logging

import (
	"context"
	"testing"

	"github.com/sydlexius/autotagger/internal/database"
)

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenAndMigrate(ctx, database.MemoryPath)
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	base := DefaultConfig()
	got, err := Load(ctx, db, base)
	if err != nil {
		t.Fatalf("Load on empty table: %v", err)
	}
	if got != base {
		t.Errorf("empty table should return base, got %+v", got)
	}

	saved := Config{Level: "debug", Format: "json", FilePath: "/tmp/at.log", FileMaxSizeMB: 5, FileMaxFiles: 2, FileMaxAgeDays: 3}
	if err := Save(ctx, db, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = Load(ctx, db, base)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != saved {
		t.Errorf("Load = %+v, want %+v", got, saved)
	}
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenAndMigrate(ctx, database.MemoryPath)
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for k, v := range map[string]string{keyLevel: "loud", keyFormat: "xml", keyFileMaxFiles: "-1"} {
		if _, err := db.ExecContext(ctx, "INSERT INTO settings (key, value) VALUES (?, ?)", k, v); err != nil {
			t.Fatal(err)
		}
	}
	base := DefaultConfig()
	got, err := Load(ctx, db, base)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != base {
		t.Errorf("invalid values should be ignored, got %+v", got)
	}
}
