// Package logging builds the process logger and lets the server change its
// level, format and file output at runtime.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Redacted replaces the value of attributes that carry credentials.
const Redacted = "[redacted]"

// secretKeys are attribute keys whose values are never written.
var secretKeys = []string{"api_key", "apikey", "key", "token", "secret", "password", "authorization", "credentials"}

// Config describes the desired logging configuration.
type Config struct {
	Level          string `json:"level"`
	Format         string `json:"format"`
	FilePath       string `json:"file_path,omitempty"`
	FileMaxSizeMB  int    `json:"file_max_size_mb,omitempty"`
	FileMaxFiles   int    `json:"file_max_files,omitempty"`
	FileMaxAgeDays int    `json:"file_max_age_days,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:          "info",
		Format:         "text",
		FileMaxSizeMB:  100,
		FileMaxFiles:   3,
		FileMaxAgeDays: 30,
	}
}

// String returns a human-readable summary of the config.
func (c Config) String() string {
	s := fmt.Sprintf("level=%s format=%s", c.Level, c.Format)
	if c.FilePath != "" {
		s += fmt.Sprintf(" file=%s max_size=%dMB max_files=%d max_age=%dd",
			c.FilePath, c.FileMaxSizeMB, c.FileMaxFiles, c.FileMaxAgeDays)
	}
	return s
}

// swapHandler delegates to a root handler that can be replaced while
// loggers derived from it are in use. Derived handlers replay their
// attributes and groups onto the current root and cache the result.
type swapHandler struct {
	root  *atomic.Pointer[slog.Handler]
	ops   []func(slog.Handler) slog.Handler
	cache atomic.Pointer[derived]
}

type derived struct {
	base *slog.Handler
	h    slog.Handler
}

func newSwapHandler(h slog.Handler) *swapHandler {
	root := &atomic.Pointer[slog.Handler]{}
	root.Store(&h)
	return &swapHandler{root: root}
}

func (s *swapHandler) swap(h slog.Handler) { s.root.Store(&h) }

func (s *swapHandler) current() slog.Handler {
	base := s.root.Load()
	if c := s.cache.Load(); c != nil && c.base == base {
		return c.h
	}
	h := *base
	for _, op := range s.ops {
		h = op(h)
	}
	s.cache.Store(&derived{base: base, h: h})
	return h
}

func (s *swapHandler) with(op func(slog.Handler) slog.Handler) *swapHandler {
	return &swapHandler{root: s.root, ops: append(slices.Clip(s.ops), op)}
}

func (s *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.current().Enabled(ctx, level)
}

func (s *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return s.current().Handle(ctx, r)
}

func (s *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return s.with(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (s *swapHandler) WithGroup(name string) slog.Handler {
	return s.with(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

// Manager owns the logger lifecycle and supports runtime reconfiguration.
// Console output goes to the writer given at construction so that command
// output on stdout stays machine readable.
type Manager struct {
	console  io.Writer
	levelVar *slog.LevelVar
	handler  *swapHandler

	mu     sync.Mutex
	config Config
	file   io.Closer
}

// NewManager creates a Manager writing to console and returns it along with
// a ready-to-use logger.
func NewManager(cfg Config, console io.Writer) (*Manager, *slog.Logger) {
	m := &Manager{
		console:  console,
		levelVar: &slog.LevelVar{},
		config:   cfg,
	}
	m.levelVar.Set(parseLevel(cfg.Level))

	w, file := m.writer(cfg)
	m.file = file
	m.handler = newSwapHandler(buildHandler(w, m.levelVar, cfg.Format))
	return m, slog.New(m.handler)
}

// Reconfigure applies a new configuration at runtime. Level-only changes
// are instant via LevelVar; format or output changes rebuild the handler.
func (m *Manager) Reconfigure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.levelVar.Set(parseLevel(cfg.Level))

	old := m.config
	rebuild := cfg.Format != old.Format ||
		cfg.FilePath != old.FilePath ||
		cfg.FileMaxSizeMB != old.FileMaxSizeMB ||
		cfg.FileMaxFiles != old.FileMaxFiles ||
		cfg.FileMaxAgeDays != old.FileMaxAgeDays
	if rebuild {
		if m.file != nil {
			m.file.Close() //nolint:errcheck
			m.file = nil
		}
		w, file := m.writer(cfg)
		m.file = file
		m.handler.swap(buildHandler(w, m.levelVar, cfg.Format))
	}
	m.config = cfg
}

// Config returns the current configuration snapshot.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Close releases the log file, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}

// writer returns the console writer, teed into a rotating file when one is
// configured.
func (m *Manager) writer(cfg Config) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return m.console, nil
	}
	def := DefaultConfig()
	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    positiveOr(cfg.FileMaxSizeMB, def.FileMaxSizeMB),
		MaxBackups: positiveOr(cfg.FileMaxFiles, def.FileMaxFiles),
		MaxAge:     positiveOr(cfg.FileMaxAgeDays, def.FileMaxAgeDays),
	}
	return io.MultiWriter(m.console, lj), lj
}

func buildHandler(w io.Writer, leveler slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: leveler, ReplaceAttr: redact}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// redact hides the values of credential-bearing attributes.
func redact(_ []string, a slog.Attr) slog.Attr {
	if IsSecretKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}
	return a
}

// IsSecretKey reports whether an attribute or parameter name carries a credential.
func IsSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range secretKeys {
		if k == s || strings.HasSuffix(k, "_"+s) {
			return true
		}
	}
	return false
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// ValidLevel returns true if s is a recognized log level.
func ValidLevel(s string) bool {
	switch s {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// ValidFormat returns true if s is a recognized log format.
func ValidFormat(s string) bool {
	return s == "text" || s == "json"
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
