package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sydlexius/autotagger/internal/api"
	"github.com/sydlexius/autotagger/internal/api/middleware"
	"github.com/sydlexius/autotagger/internal/version"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var matchEvery time.Duration
	var matchBurst int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the matching API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(sigCtx, cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()
			slog.SetDefault(a.logger)

			var limiter *middleware.ClientRateLimiter
			if matchBurst > 0 {
				limiter = middleware.NewClientRateLimiter(sigCtx, matchEvery, matchBurst)
			}
			maintCtx, stopMaint := context.WithCancel(sigCtx)
			maintDone := make(chan struct{})
			go func() {
				defer close(maintDone)
				a.maint.Run(maintCtx)
			}()
			defer func() {
				stopMaint()
				<-maintDone
			}()

			router := api.NewRouter(api.RouterDeps{
				Matcher:          a.pipeline,
				ProviderSettings: a.settings,
				ProviderRegistry: a.registry,
				LogManager:       a.logManager,
				MatchSettings:    cfg.Matching,
				DB:               a.db,
				Webhooks:         a.webhooks,
				WebhookSender:    a.dispatcher,
				Maintenance:      a.maint,
				Logger:           a.logger,
				BasePath:         cfg.Server.BasePath,
				MatchLimiter:     limiter,
				TestTimeout:      cfg.Providers.Timeout,
			})

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           router.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       15 * time.Second,
				// A match waits on every provider, and the pseudo-release
				// lookups that follow, before it can respond.
				WriteTimeout: 3*cfg.Providers.Timeout + 10*time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server starting",
					slog.String("addr", addr),
					slog.String("base_path", cfg.Server.BasePath),
					slog.String("version", version.String()))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("serving http: %w", err)
				}
				return nil
			case <-sigCtx.Done():
			}
			a.logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().DurationVar(&matchEvery, "match-rate", 2*time.Second, "Per-client interval between match requests")
	cmd.Flags().IntVar(&matchBurst, "match-burst", 10, "Per-client burst of match requests; 0 disables the limit")
	return cmd
}
