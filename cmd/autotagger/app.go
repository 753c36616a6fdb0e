package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sydlexius/autotagger/internal/autotag"
	"github.com/sydlexius/autotagger/internal/config"
	"github.com/sydlexius/autotagger/internal/database"
	"github.com/sydlexius/autotagger/internal/encryption"
	"github.com/sydlexius/autotagger/internal/event"
	"github.com/sydlexius/autotagger/internal/filesystem"
	"github.com/sydlexius/autotagger/internal/logging"
	"github.com/sydlexius/autotagger/internal/maintenance"
	"github.com/sydlexius/autotagger/internal/provider"
	"github.com/sydlexius/autotagger/internal/provider/beatport"
	"github.com/sydlexius/autotagger/internal/provider/deezer"
	"github.com/sydlexius/autotagger/internal/provider/discogs"
	"github.com/sydlexius/autotagger/internal/provider/musicbrainz"
	"github.com/sydlexius/autotagger/internal/provider/spotify"
	"github.com/sydlexius/autotagger/internal/webhook"
)

// app holds the services shared by every command.
type app struct {
	cfg        *config.Config
	logManager *logging.Manager
	logger     *slog.Logger
	db         *sql.DB
	settings   *provider.SettingsService
	registry   *provider.Registry
	bus        *event.Bus
	pipeline   *autotag.Pipeline
	webhooks   *webhook.Service
	dispatcher *webhook.Dispatcher
	maint      *maintenance.Service
	cancelBus  context.CancelFunc
	busDone    chan struct{}
}

// buildRegistry registers an adapter for every enabled provider. Tests replace it.
var buildRegistry = func(cfg *config.Config, settings *provider.SettingsService, logger *slog.Logger) (*provider.Registry, error) {
	enabled, err := cfg.EnabledProviders()
	if err != nil {
		return nil, err
	}
	limiter := provider.NewRateLimiterMap()
	registry := provider.NewRegistry()
	for _, name := range enabled {
		switch name {
		case provider.SourceMusicBrainz:
			a := musicbrainz.New(limiter, logger)
			a.SetDetailLimit(cfg.Providers.DetailLimit)
			registry.Register(a)
		case provider.SourceDiscogs:
			a := discogs.New(limiter, settings, logger)
			a.SetDetailLimit(cfg.Providers.DetailLimit)
			registry.Register(a)
		case provider.SourceSpotify:
			registry.Register(spotify.New(limiter, settings, logger))
		case provider.SourceDeezer:
			a := deezer.New(limiter, logger)
			a.SetDetailLimit(cfg.Providers.DetailLimit)
			registry.Register(a)
		case provider.SourceBeatport:
			a := beatport.New(limiter, settings, logger)
			a.SetDetailLimit(cfg.Providers.DetailLimit)
			registry.Register(a)
		}
	}
	return registry, nil
}

// openApp wires logging, storage, providers and the matching pipeline.
// Logs go to console so that command output on stdout stays parseable.
func openApp(ctx context.Context, cfg *config.Config, console io.Writer) (*app, error) {
	logManager, logger := logging.NewManager(cfg.LoggingConfig(), console)
	a := &app{cfg: cfg, logManager: logManager, logger: logger}

	db, err := database.OpenAndMigrate(ctx, cfg.Database.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	logger.Debug("database ready", slog.String("path", cfg.Database.Path))

	// Settings changed at runtime through the API win over the config file.
	if persisted, err := logging.Load(ctx, db, logManager.Config()); err != nil {
		logger.Warn("loading persisted logging settings", "error", err)
	} else if persisted != logManager.Config() {
		logManager.Reconfigure(persisted)
	}

	key, err := resolveEncryptionKey(cfg, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("resolving encryption key: %w", err)
	}
	sealer, err := encryption.New(key)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating sealer: %w", err)
	}
	a.settings = provider.NewSettingsService(db, sealer)

	a.registry, err = buildRegistry(cfg, a.settings, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	penalties, err := cfg.PenaltyConfig()
	if err != nil {
		a.Close()
		return nil, err
	}
	timeouts, err := cfg.ProviderTimeouts()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.bus = event.NewBus(logger, 256)
	a.bus.SubscribeAll(event.LogHandler(logger.With(slog.String("component", "events"))))
	a.webhooks = webhook.NewService(db)
	a.dispatcher = webhook.NewDispatcher(a.webhooks, logger)
	for _, t := range webhook.Subscribable() {
		a.bus.Subscribe(t, a.dispatcher.HandleEvent)
	}
	busCtx, cancel := context.WithCancel(context.Background())
	a.cancelBus = cancel
	a.busDone = make(chan struct{})
	go func() {
		defer close(a.busDone)
		a.bus.Run(busCtx)
	}()

	a.pipeline = autotag.New(a.registry, penalties, autotag.Options{
		Timeout:          cfg.Providers.Timeout,
		ProviderTimeouts: timeouts,
		RelatedLimit:     cfg.Providers.RelatedLimit,
		Events:           a.bus,
	}, logger)
	a.maint = maintenance.NewService(db, cfg.Database.Path, cfg.Database.MaintenanceInterval, logger)
	return a, nil
}

// Close releases everything openApp acquired.
func (a *app) Close() {
	if a.cancelBus != nil {
		a.cancelBus()
		<-a.busDone
		a.dispatcher.Wait()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("closing database", "error", err)
		}
	}
	a.logManager.Close() //nolint:errcheck
}

// resolveEncryptionKey determines the key used to seal stored credentials.
// Priority: config/AT_ENCRYPTION_KEY > encryption.key next to the database > generate new.
func resolveEncryptionKey(cfg *config.Config, logger *slog.Logger) (string, error) {
	if cfg.Encryption.Key != "" {
		return cfg.Encryption.Key, nil
	}
	if cfg.Database.Path == database.MemoryPath {
		return encryption.GenerateKey()
	}

	dataDir := filepath.Dir(cfg.Database.Path)
	keyFile := filepath.Join(dataDir, "encryption.key")

	data, err := os.ReadFile(keyFile) //nolint:gosec // G304: path derived from trusted config
	if err == nil {
		if key := strings.TrimSpace(string(data)); key != "" {
			logger.Debug("loaded encryption key from file", slog.String("path", keyFile))
			return key, nil
		}
	}

	key, err := encryption.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("generating encryption key: %w", err)
	}
	if err := filesystem.WriteFileAtomic(keyFile, []byte(key+"\n"), 0o600); err != nil {
		logger.Warn("could not save encryption key to file",
			slog.String("path", keyFile), slog.Any("error", err))
	} else {
		logger.Warn("generated new encryption key; back up this file",
			slog.String("path", keyFile))
	}
	return key, nil
}
