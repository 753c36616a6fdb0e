// Package maintenance keeps the SQLite store compact and its query planner
// statistics fresh.
package maintenance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sydlexius/autotagger/internal/database"
)

const lastOptimizeKey = "maintenance.last_optimize_at"

// Status describes the database file and the last maintenance run.
type Status struct {
	Path           string `json:"path"`
	DBFileSize     int64  `json:"db_file_size"`
	WALFileSize    int64  `json:"wal_file_size"`
	PageCount      int64  `json:"page_count"`
	PageSize       int64  `json:"page_size"`
	SchemaVersion  int64  `json:"schema_version"`
	LastOptimizeAt string `json:"last_optimize_at,omitempty"`
	Interval       string `json:"interval,omitempty"`
}

// Service provides database maintenance operations.
type Service struct {
	db       *sql.DB
	dbPath   string
	interval time.Duration
	logger   *slog.Logger
}

// NewService creates a maintenance service. interval is reported by Status
// and used by Run; zero means no schedule.
func NewService(db *sql.DB, dbPath string, interval time.Duration, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		dbPath:   dbPath,
		interval: interval,
		logger:   logger.With(slog.String("component", "maintenance")),
	}
}

// Status returns current database maintenance status.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{Path: s.dbPath}
	if s.interval > 0 {
		st.Interval = s.interval.String()
	}

	if s.dbPath != database.MemoryPath {
		if info, err := os.Stat(s.dbPath); err == nil {
			st.DBFileSize = info.Size()
		}
		if info, err := os.Stat(s.dbPath + "-wal"); err == nil {
			st.WALFileSize = info.Size()
		}
	}

	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&st.PageCount); err != nil {
		return nil, fmt.Errorf("reading page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&st.PageSize); err != nil {
		return nil, fmt.Errorf("reading page_size: %w", err)
	}
	v, err := database.Version(ctx, s.db)
	if err != nil {
		return nil, err
	}
	st.SchemaVersion = v

	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, lastOptimizeKey).Scan(&st.LastOptimizeAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading last optimize time: %w", err)
	}
	return st, nil
}

// Optimize runs PRAGMA optimize followed by a WAL checkpoint and records
// when it finished.
func (s *Service) Optimize(ctx context.Context) error {
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		lastOptimizeKey, now, now)
	if err != nil {
		return fmt.Errorf("recording optimize time: %w", err)
	}

	s.logger.Info("database optimized", slog.Duration("took", time.Since(start)))
	return nil
}

// Vacuum rebuilds the database file, reclaiming free pages.
func (s *Service) Vacuum(ctx context.Context) error {
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM: %w", err)
	}
	s.logger.Info("database vacuumed", slog.Duration("took", time.Since(start)))
	return nil
}

// Backup writes a consistent snapshot of the database to dest using
// VACUUM INTO. dest must not exist.
func (s *Service) Backup(ctx context.Context, dest string) (int64, error) {
	if _, err := os.Stat(dest); err == nil {
		return 0, fmt.Errorf("backup target %s already exists", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return 0, fmt.Errorf("creating backup directory: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return 0, fmt.Errorf("VACUUM INTO: %w", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return 0, fmt.Errorf("stat backup file: %w", err)
	}
	s.logger.Info("backup complete", slog.String("dest", dest), slog.Int64("size", info.Size()))
	return info.Size(), nil
}

// Run optimizes on the configured interval until ctx is canceled. It
// returns immediately when no interval is set.
func (s *Service) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.logger.Info("maintenance scheduler started", slog.String("interval", s.interval.String()))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Optimize(ctx); err != nil {
				s.logger.Error("scheduled optimize failed", slog.String("error", err.Error()))
			}
		}
	}
}
