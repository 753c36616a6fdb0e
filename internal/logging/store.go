package logging

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// Settings table keys for runtime logging changes.
const (
	keyLevel          = "logging.level"
	keyFormat         = "logging.format"
	keyFilePath       = "logging.file_path"
	keyFileMaxSizeMB  = "logging.file_max_size_mb"
	keyFileMaxFiles   = "logging.file_max_files"
	keyFileMaxAgeDays = "logging.file_max_age_days"
)

// Save persists cfg so that it survives a restart.
func Save(ctx context.Context, db *sql.DB, cfg Config) error {
	values := map[string]string{
		keyLevel:          cfg.Level,
		keyFormat:         cfg.Format,
		keyFilePath:       cfg.FilePath,
		keyFileMaxSizeMB:  strconv.Itoa(cfg.FileMaxSizeMB),
		keyFileMaxFiles:   strconv.Itoa(cfg.FileMaxFiles),
		keyFileMaxAgeDays: strconv.Itoa(cfg.FileMaxAgeDays),
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving logging settings: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	for k, v := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
			k, v)
		if err != nil {
			return fmt.Errorf("saving logging setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Load overlays persisted logging settings on base. Missing or invalid
// values keep the base value.
func Load(ctx context.Context, db *sql.DB, base Config) (Config, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM settings WHERE key LIKE 'logging.%'")
	if err != nil {
		return base, fmt.Errorf("loading logging settings: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	cfg := base
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return base, fmt.Errorf("scanning logging setting: %w", err)
		}
		switch k {
		case keyLevel:
			if ValidLevel(v) {
				cfg.Level = v
			}
		case keyFormat:
			if ValidFormat(v) {
				cfg.Format = v
			}
		case keyFilePath:
			cfg.FilePath = v
		case keyFileMaxSizeMB:
			cfg.FileMaxSizeMB = atoiOr(v, cfg.FileMaxSizeMB)
		case keyFileMaxFiles:
			cfg.FileMaxFiles = atoiOr(v, cfg.FileMaxFiles)
		case keyFileMaxAgeDays:
			cfg.FileMaxAgeDays = atoiOr(v, cfg.FileMaxAgeDays)
		}
	}
	if err := rows.Err(); err != nil {
		return base, fmt.Errorf("loading logging settings: %w", err)
	}
	return cfg, nil
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
