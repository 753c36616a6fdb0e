package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sydlexius/autotagger/internal/encryption"
)

// SettingsService manages provider credentials using the settings key-value table.
// Values are sealed before storage.
type SettingsService struct {
	db     *sql.DB
	sealer *encryption.Sealer
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(db *sql.DB, sealer *encryption.Sealer) *SettingsService {
	return &SettingsService{db: db, sealer: sealer}
}

// apiKeySettingKey returns the settings table key for a provider's credential.
func apiKeySettingKey(name SourceName) string {
	return fmt.Sprintf("provider.%s.api_key", name)
}

// keyStatusSettingKey returns the settings table key for a provider's key test status.
func keyStatusSettingKey(name SourceName) string {
	return fmt.Sprintf("provider.%s.key_status", name)
}

// ctxKeyOverride is the context key for per-request credential overrides.
// This lets the API test an unsaved key without persisting it first.
type ctxKeyOverride struct{}

// WithAPIKeyOverride returns a child context that overrides the stored credential
// for the named provider.
func WithAPIKeyOverride(ctx context.Context, name SourceName, key string) context.Context {
	parent, _ := ctx.Value(ctxKeyOverride{}).(map[SourceName]string)

	// Always create a fresh map to avoid mutating any map stored in a parent context.
	overrides := make(map[SourceName]string, len(parent)+1)
	for k, v := range parent {
		overrides[k] = v
	}
	overrides[name] = key
	return context.WithValue(ctx, ctxKeyOverride{}, overrides)
}

// GetAPIKey retrieves and opens the credential for a provider.
// Returns empty string if none is configured.
func (s *SettingsService) GetAPIKey(ctx context.Context, name SourceName) (string, error) {
	if overrides, ok := ctx.Value(ctxKeyOverride{}).(map[SourceName]string); ok {
		if v, found := overrides[name]; found {
			return v, nil
		}
	}

	var sealed string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", apiKeySettingKey(name)).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading credential for %s: %w", name, err)
	}
	plain, err := s.sealer.Open(sealed)
	if err != nil {
		return "", fmt.Errorf("opening credential for %s: %w", name, err)
	}
	return plain, nil
}

// ClientCredentials returns the OAuth client id and secret stored for a
// provider as "client_id:client_secret".
func (s *SettingsService) ClientCredentials(ctx context.Context, name SourceName) (string, string, error) {
	raw, err := s.GetAPIKey(ctx, name)
	if err != nil {
		return "", "", err
	}
	if raw == "" {
		return "", "", &ErrAuthRequired{Provider: name}
	}
	id, secret, ok := strings.Cut(raw, ":")
	if !ok || id == "" || secret == "" {
		return "", "", fmt.Errorf("credential for %s must have the form client_id:client_secret", name)
	}
	return id, secret, nil
}

// SetAPIKey seals and stores the credential for a provider.
// The upsert and status clear run in a single transaction.
func (s *SettingsService) SetAPIKey(ctx context.Context, name SourceName, apiKey string) error {
	sealed, err := s.sealer.Seal(apiKey)
	if err != nil {
		return fmt.Errorf("sealing credential for %s: %w", name, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction for %s: %w", name, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = datetime('now')",
		apiKeySettingKey(name), sealed, sealed,
	); err != nil {
		return fmt.Errorf("storing credential for %s: %w", name, err)
	}
	// A new key is untested until checked again.
	if _, err := tx.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", keyStatusSettingKey(name)); err != nil {
		return fmt.Errorf("clearing key status for %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing credential for %s: %w", name, err)
	}
	return nil
}

// DeleteAPIKey removes the credential for a provider and its status.
func (s *SettingsService) DeleteAPIKey(ctx context.Context, name SourceName) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction for %s: %w", name, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit
	for _, key := range []string{apiKeySettingKey(name), keyStatusSettingKey(name)} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete for %s: %w", name, err)
	}
	return nil
}

// HasAPIKey checks whether a credential is configured for a provider.
func (s *SettingsService) HasAPIKey(ctx context.Context, name SourceName) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM settings WHERE key = ?", apiKeySettingKey(name)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking credential for %s: %w", name, err)
	}
	return count > 0, nil
}

// SetKeyStatus persists the test result ("ok", "invalid") for a provider credential.
// An empty string deletes the status row.
func (s *SettingsService) SetKeyStatus(ctx context.Context, name SourceName, status string) error {
	key := keyStatusSettingKey(name)
	if status == "" {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
			return fmt.Errorf("clearing key status for %s: %w", name, err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = datetime('now')",
		key, status, status,
	)
	if err != nil {
		return fmt.Errorf("storing key status for %s: %w", name, err)
	}
	return nil
}

// GetKeyStatus returns the persisted test status, or "" if none is stored.
func (s *SettingsService) GetKeyStatus(ctx context.Context, name SourceName) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", keyStatusSettingKey(name)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading key status for %s: %w", name, err)
	}
	return value, nil
}

// ProviderKeyStatus describes the credential state for a provider.
type ProviderKeyStatus struct {
	Name        SourceName     `json:"name"`
	DisplayName string         `json:"display_name"`
	RequiresKey bool           `json:"requires_key"`
	HasKey      bool           `json:"has_key"`
	Status      string         `json:"status"` // "ok", "invalid", "untested", "not_required", "unconfigured"
	AccessTier  AccessTier     `json:"access_tier"`
	HelpURL     string         `json:"help_url,omitempty"`
	RateLimit   *RateLimitInfo `json:"rate_limit,omitempty"`
}

// ListProviderKeyStatuses returns the credential status for all queryable providers.
func (s *SettingsService) ListProviderKeyStatuses(ctx context.Context) ([]ProviderKeyStatus, error) {
	caps := ProviderCapabilities()
	statuses := make([]ProviderKeyStatus, 0, len(AllProviderNames()))
	for _, name := range AllProviderNames() {
		requiresKey := ProviderRequiresKey(name)
		hasKey, err := s.HasAPIKey(ctx, name)
		if err != nil {
			return nil, err
		}
		status := "not_required"
		if requiresKey {
			status = "unconfigured"
			if hasKey {
				status = "untested"
			}
		}
		if hasKey {
			persisted, err := s.GetKeyStatus(ctx, name)
			if err != nil {
				return nil, err
			}
			if persisted != "" {
				status = persisted
			}
		}
		c := caps[name]
		statuses = append(statuses, ProviderKeyStatus{
			Name:        name,
			DisplayName: name.DisplayName(),
			RequiresKey: requiresKey,
			HasKey:      hasKey,
			Status:      status,
			AccessTier:  c.Tier,
			HelpURL:     c.HelpURL,
			RateLimit:   c.RateLimit,
		})
	}
	return statuses, nil
}

// ProviderRequiresKey returns whether a provider needs stored credentials.
func ProviderRequiresKey(name SourceName) bool {
	switch name {
	case SourceMusicBrainz, SourceMusicBrainzPseudo, SourceDeezer:
		return false
	default:
		return true
	}
}

// KeyStatusFromTest maps a connection test result to the key status to
// persist. Transient failures say nothing about the credential and map to "".
func KeyStatusFromTest(err error) string {
	var authErr *ErrAuthRequired
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &authErr):
		return "invalid"
	default:
		return ""
	}
}
