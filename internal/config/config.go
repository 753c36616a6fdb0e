package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/autotagger/internal/logging"
	"github.com/sydlexius/autotagger/internal/match"
	"github.com/sydlexius/autotagger/internal/provider"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Logging    LoggingConfig    `yaml:"logging"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Matching   match.Settings   `yaml:"matching"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// MaintenanceInterval is how often the server optimizes the database.
	// Zero disables the scheduler.
	MaintenanceInterval time.Duration `yaml:"maintenance_interval"`
}

// EncryptionConfig holds the key used to seal stored credentials.
type EncryptionConfig struct {
	Key string `yaml:"key"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// ProvidersConfig selects and tunes catalogue providers.
type ProvidersConfig struct {
	// Enabled lists the providers to query. Empty enables all of them.
	Enabled []string `yaml:"enabled"`
	// Timeout bounds each provider call.
	Timeout time.Duration `yaml:"timeout"`
	// Timeouts overrides Timeout per provider.
	Timeouts map[string]time.Duration `yaml:"timeouts"`
	// DetailLimit is how many search hits per provider are looked up in full.
	DetailLimit int `yaml:"detail_limit"`
	// RelatedLimit caps pseudo-release lookups per run.
	RelatedLimit int `yaml:"related_limit"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			BasePath: "/",
		},
		Database: DatabaseConfig{
			Path:                "/data/autotagger.db",
			MaintenanceInterval: 24 * time.Hour,
		},
		Encryption: EncryptionConfig{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Providers: ProvidersConfig{
			Timeout:      20 * time.Second,
			DetailLimit:  3,
			RelatedLimit: 5,
		},
		Matching: match.DefaultSettings(),
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	// Unknown keys are rejected so a misspelled setting cannot fall back to
	// its default unnoticed.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv("AT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("AT_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("AT_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("AT_DB_MAINTENANCE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AT_DB_MAINTENANCE_INTERVAL: %w", err)
		}
		c.Database.MaintenanceInterval = d
	}
	if v := os.Getenv("AT_ENCRYPTION_KEY"); v != "" {
		c.Encryption.Key = v
	}
	if v := os.Getenv("AT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("AT_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("AT_PROVIDERS"); v != "" {
		c.Providers.Enabled = splitList(v)
	}
	if v := os.Getenv("AT_PROVIDER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AT_PROVIDER_TIMEOUT: %w", err)
		}
		c.Providers.Timeout = d
	}
	if v := os.Getenv("AT_EXPECTED_SOURCE"); v != "" {
		c.Matching.ExpectedSource = v
	}
	if v := os.Getenv("AT_TIE_BREAK"); v != "" {
		c.Matching.TieBreak = v
	}
	if v := os.Getenv("AT_DESIRED_SCRIPTS"); v != "" {
		c.Matching.DesiredScripts = splitList(v)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Database.MaintenanceInterval < 0 {
		return fmt.Errorf("database.maintenance_interval must not be negative")
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}

	if _, err := c.EnabledProviders(); err != nil {
		return err
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("providers.timeout must be positive, got %s", c.Providers.Timeout)
	}
	if _, err := c.ProviderTimeouts(); err != nil {
		return err
	}
	if c.Providers.DetailLimit < 0 {
		return fmt.Errorf("providers.detail_limit must not be negative")
	}
	if c.Providers.RelatedLimit < 0 {
		return fmt.Errorf("providers.related_limit must not be negative")
	}

	if _, err := c.PenaltyConfig(); err != nil {
		return err
	}
	return nil
}

// EnabledProviders returns the providers to query, in query order.
func (c *Config) EnabledProviders() ([]provider.SourceName, error) {
	if len(c.Providers.Enabled) == 0 {
		return provider.AllProviderNames(), nil
	}
	want := make(map[provider.SourceName]bool, len(c.Providers.Enabled))
	for _, s := range c.Providers.Enabled {
		name, ok := parseProvider(s)
		if !ok {
			return nil, fmt.Errorf("providers.enabled: unknown provider %q", s)
		}
		want[name] = true
	}
	var out []provider.SourceName
	for _, name := range provider.AllProviderNames() {
		if want[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

// ProviderTimeouts returns the per-provider timeout overrides.
func (c *Config) ProviderTimeouts() (map[provider.SourceName]time.Duration, error) {
	out := make(map[provider.SourceName]time.Duration, len(c.Providers.Timeouts))
	for k, d := range c.Providers.Timeouts {
		name, ok := parseProvider(k)
		if !ok {
			return nil, fmt.Errorf("providers.timeouts: unknown provider %q", k)
		}
		if d <= 0 {
			return nil, fmt.Errorf("providers.timeouts.%s must be positive, got %s", k, d)
		}
		out[name] = d
	}
	return out, nil
}

// PenaltyConfig builds the validated matching configuration.
func (c *Config) PenaltyConfig() (*match.PenaltyConfig, error) {
	return match.NewPenaltyConfig(c.Matching)
}

// LoggingConfig converts the logging section for the logging manager.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:          c.Logging.Level,
		Format:         c.Logging.Format,
		FilePath:       c.Logging.FilePath,
		FileMaxSizeMB:  c.Logging.FileMaxSizeMB,
		FileMaxFiles:   c.Logging.FileMaxFiles,
		FileMaxAgeDays: c.Logging.FileMaxAgeDays,
	}
}

// parseProvider accepts queryable providers only; pseudo-releases are not a
// separate catalogue.
func parseProvider(s string) (provider.SourceName, bool) {
	name, ok := provider.ParseSourceName(strings.ToLower(strings.TrimSpace(s)))
	if !ok || name == provider.SourceMusicBrainzPseudo {
		return "", false
	}
	return name, true
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
