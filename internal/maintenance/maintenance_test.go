package maintenance

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/sydlexius/autotagger/internal/database"
)

func setupTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "autotagger.db")
	db, err := database.OpenAndMigrate(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, dbPath
}

func TestStatus(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, 24*time.Hour, slog.New(slog.DiscardHandler))

	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.DBFileSize <= 0 {
		t.Error("expected positive DB file size")
	}
	if st.PageSize <= 0 || st.PageCount <= 0 {
		t.Errorf("expected positive page stats, got %d x %d", st.PageCount, st.PageSize)
	}
	if st.SchemaVersion < 1 {
		t.Errorf("schema version = %d", st.SchemaVersion)
	}
	if st.LastOptimizeAt != "" {
		t.Error("expected empty last optimize time initially")
	}
	if st.Interval != "24h0m0s" {
		t.Errorf("interval = %q", st.Interval)
	}
}

func TestOptimizeRecordsTime(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, 0, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	for i := range 50 {
		if _, err := db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, 'v')`, "k"+string(rune('A'+i))); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.Optimize(ctx); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, st.LastOptimizeAt); err != nil {
		t.Errorf("last optimize time %q is not RFC3339: %v", st.LastOptimizeAt, err)
	}
	if st.Interval != "" {
		t.Errorf("no schedule should report an empty interval, got %q", st.Interval)
	}
}

func TestVacuum(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, 0, slog.New(slog.DiscardHandler))
	if err := svc.Vacuum(context.Background()); err != nil {
		t.Fatalf("Vacuum: %v", err)
	}
}

func TestBackup(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, 0, slog.New(slog.DiscardHandler))
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES ('provider.discogs.api_key', 'sealed')`); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "backups", "snapshot.db")
	size, err := svc.Backup(ctx, dest)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if size <= 0 {
		t.Errorf("size = %d", size)
	}

	restored, err := database.Open(ctx, dest)
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer restored.Close()
	var v string
	if err := restored.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = 'provider.discogs.api_key'`).Scan(&v); err != nil || v != "sealed" {
		t.Errorf("backup missing data: %q, %v", v, err)
	}

	if _, err := svc.Backup(ctx, dest); err == nil {
		t.Error("expected an error when the target exists")
	}
}

func TestStatusInMemory(t *testing.T) {
	db, err := database.OpenAndMigrate(context.Background(), database.MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	st, err := NewService(db, database.MemoryPath, 0, slog.New(slog.DiscardHandler)).Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.DBFileSize != 0 || st.WALFileSize != 0 {
		t.Error("in-memory databases have no files")
	}
}

func TestRunDisabledReturns(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, 0, slog.New(slog.DiscardHandler))

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run without an interval should return immediately")
	}
}

func TestRunOptimizesOnTick(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, 10*time.Millisecond, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := svc.Status(context.Background())
		if err == nil && st.LastOptimizeAt != "" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("scheduler never optimized")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
}
