package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/postclean/internal/core"
	"github.com/JonMunkholm/postclean/internal/metrics"
	"github.com/JonMunkholm/postclean/internal/store"
	"github.com/JonMunkholm/postclean/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the clean pipeline over HTTP",
		Long: `Serve starts an HTTP server with:

  POST /api/clean   clean a CSV body (raw or multipart field "file")
  GET  /api/status  concurrency limiter usage
  GET  /healthz     liveness, plus database reachability when configured
  GET  /metrics     Prometheus metrics

With REQUIRE_API_KEY=true the /api routes need an X-API-Key header matching
one of API_KEYS.`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := a.cfg

	limiter := core.NewLimiter(cfg.Clean.MaxConcurrent, cfg.Clean.MaxWaitTime)
	reg := metrics.New()
	reg.TrackLimiter(limiter)

	svc, err := core.NewService(core.EntityParser(cfg.Pipeline.EntityParser),
		core.WithLimiter(limiter),
		core.WithObserver(reg),
	)
	if err != nil {
		return err
	}

	webOpts := []web.Option{web.WithMetrics(reg)}
	if cfg.Database.Enabled() {
		st, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()
		webOpts = append(webOpts, web.WithDatabase(st))
	}

	srv := web.NewServer(svc, cfg, webOpts...)
	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"entity_parser", cfg.Pipeline.EntityParser,
		"max_concurrent", cfg.Clean.MaxConcurrent,
		"database", cfg.Database.Enabled(),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "active_cleans", limiter.Active())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown incomplete", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}
