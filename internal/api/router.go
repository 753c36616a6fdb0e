// Package api serves the matching engine and provider administration over HTTP.
package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/sydlexius/autotagger/internal/api/middleware"
	"github.com/sydlexius/autotagger/internal/logging"
	"github.com/sydlexius/autotagger/internal/maintenance"
	"github.com/sydlexius/autotagger/internal/match"
	"github.com/sydlexius/autotagger/internal/provider"
	"github.com/sydlexius/autotagger/internal/webhook"
)

// Matcher ranks candidates for a local entity. *autotag.Pipeline implements it.
type Matcher interface {
	Run(ctx context.Context, local *provider.LocalEntity) (*match.RankedResult, error)
}

// WebhookSender delivers a one-off test notification. *webhook.Dispatcher implements it.
type WebhookSender interface {
	Test(ctx context.Context, w *webhook.Webhook) error
}

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Matcher          Matcher
	ProviderSettings *provider.SettingsService
	ProviderRegistry *provider.Registry
	LogManager       *logging.Manager
	// MatchSettings is reported by GET /match/settings.
	MatchSettings match.Settings
	DB            *sql.DB
	// Webhooks, WebhookSender and Maintenance are optional; their routes
	// are only registered when set.
	Webhooks      *webhook.Service
	WebhookSender WebhookSender
	Maintenance   *maintenance.Service
	Logger        *slog.Logger
	BasePath      string
	// MatchLimiter throttles POST /match per client. Nil disables it.
	MatchLimiter *middleware.ClientRateLimiter
	// TestTimeout bounds a provider connection test.
	TestTimeout time.Duration
}

// Router sets up all HTTP routes for the application.
type Router struct {
	matcher          Matcher
	providerSettings *provider.SettingsService
	providerRegistry *provider.Registry
	logManager       *logging.Manager
	matchSettings    match.Settings
	db               *sql.DB
	webhooks         *webhook.Service
	webhookSender    WebhookSender
	maintenance      *maintenance.Service
	logger           *slog.Logger
	basePath         string
	matchLimiter     *middleware.ClientRateLimiter
	testTimeout      time.Duration
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	testTimeout := deps.TestTimeout
	if testTimeout <= 0 {
		testTimeout = 15 * time.Second
	}
	return &Router{
		matcher:          deps.Matcher,
		providerSettings: deps.ProviderSettings,
		providerRegistry: deps.ProviderRegistry,
		logManager:       deps.LogManager,
		matchSettings:    deps.MatchSettings,
		db:               deps.DB,
		webhooks:         deps.Webhooks,
		webhookSender:    deps.WebhookSender,
		maintenance:      deps.Maintenance,
		logger:           deps.Logger.With(slog.String("component", "api")),
		basePath:         deps.BasePath,
		matchLimiter:     deps.MatchLimiter,
		testTimeout:      testTimeout,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)

	// Matching
	var matchHandler http.Handler = http.HandlerFunc(r.handleMatch)
	if r.matchLimiter != nil {
		matchHandler = r.matchLimiter.Middleware(matchHandler)
	}
	mux.Handle("POST "+bp+"/api/v1/match", matchHandler)
	mux.HandleFunc("GET "+bp+"/api/v1/match/settings", r.handleMatchSettings)

	// Provider routes
	mux.HandleFunc("GET "+bp+"/api/v1/providers", r.handleListProviders)
	mux.HandleFunc("PUT "+bp+"/api/v1/providers/{name}/key", r.handleSetProviderKey)
	mux.HandleFunc("DELETE "+bp+"/api/v1/providers/{name}/key", r.handleDeleteProviderKey)
	mux.HandleFunc("POST "+bp+"/api/v1/providers/{name}/test", r.handleTestProvider)

	// Logging
	mux.HandleFunc("GET "+bp+"/api/v1/logging", r.handleGetLogging)
	mux.HandleFunc("PUT "+bp+"/api/v1/logging", r.handleUpdateLogging)

	if r.webhooks != nil {
		mux.HandleFunc("GET "+bp+"/api/v1/webhooks", r.handleListWebhooks)
		mux.HandleFunc("POST "+bp+"/api/v1/webhooks", r.handleCreateWebhook)
		mux.HandleFunc("PATCH "+bp+"/api/v1/webhooks/{id}", r.handleUpdateWebhook)
		mux.HandleFunc("DELETE "+bp+"/api/v1/webhooks/{id}", r.handleDeleteWebhook)
		if r.webhookSender != nil {
			mux.HandleFunc("POST "+bp+"/api/v1/webhooks/{id}/test", r.handleTestWebhook)
		}
	}

	if r.maintenance != nil {
		mux.HandleFunc("GET "+bp+"/api/v1/maintenance", r.handleMaintenanceStatus)
		mux.HandleFunc("POST "+bp+"/api/v1/maintenance/optimize", r.handleOptimize)
	}

	return middleware.Logging(r.logger)(middleware.SecurityHeaders(mux))
}
