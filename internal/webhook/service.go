package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const columns = `id, name, url, type, events, enabled, created_at, updated_at`

// Service stores webhooks in the webhooks table.
type Service struct {
	db *sql.DB
}

// NewService creates a webhook service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create validates w, assigns its id and timestamps, and stores it.
func (s *Service) Create(ctx context.Context, w *Webhook) error {
	if err := w.Validate(); err != nil {
		return err
	}
	events, err := json.Marshal(w.Events)
	if err != nil {
		return fmt.Errorf("encoding events: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	w.ID = uuid.NewString()
	w.CreatedAt, w.UpdatedAt = now, now

	stamp := now.Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO webhooks (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.URL, w.Type, string(events), w.Enabled, stamp, stamp,
	); err != nil {
		return fmt.Errorf("inserting webhook: %w", err)
	}
	return nil
}

// GetByID returns the webhook with the given id, or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (*Webhook, error) {
	hooks, err := s.query(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(hooks) == 0 {
		return nil, ErrNotFound
	}
	return &hooks[0], nil
}

// List returns every webhook ordered by name.
func (s *Service) List(ctx context.Context) ([]Webhook, error) {
	return s.query(ctx, `ORDER BY name, id`)
}

// ListByEvent returns the enabled webhooks subscribed to eventType.
func (s *Service) ListByEvent(ctx context.Context, eventType string) ([]Webhook, error) {
	return s.query(ctx,
		`WHERE enabled = 1 AND EXISTS (SELECT 1 FROM json_each(webhooks.events) WHERE json_each.value = ?)
		ORDER BY name, id`, eventType)
}

// SetEnabled turns delivery to a webhook on or off.
func (s *Service) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return s.exec(ctx, `UPDATE webhooks SET enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, time.Now().UTC().Format(time.RFC3339), id)
}

// Delete removes a webhook.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
}

// exec runs a statement that must touch exactly one row.
func (s *Service) exec(ctx context.Context, stmt string, args ...any) error {
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("updating webhooks: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) query(ctx context.Context, tail string, args ...any) ([]Webhook, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM webhooks `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("querying webhooks: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	hooks := []Webhook{}
	for rows.Next() {
		var (
			w                Webhook
			events           string
			created, updated string
		)
		if err := rows.Scan(&w.ID, &w.Name, &w.URL, &w.Type, &events, &w.Enabled, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning webhook: %w", err)
		}
		if err := json.Unmarshal([]byte(events), &w.Events); err != nil {
			return nil, fmt.Errorf("webhook %s: decoding events: %w", w.ID, err)
		}
		w.CreatedAt = parseStamp(created)
		w.UpdatedAt = parseStamp(updated)
		hooks = append(hooks, w)
	}
	return hooks, rows.Err()
}

// parseStamp accepts RFC 3339 and SQLite's datetime('now') format.
func parseStamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.DateTime, s)
	return t
}
