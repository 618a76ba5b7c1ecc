package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"patdash/internal/cache"
	apphttp "patdash/internal/http"
	"patdash/internal/log"
	"patdash/internal/services"
	"patdash/internal/source"
	"patdash/internal/worker"
)

func newServeCmd() *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), profile)
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "layout profile (default LAYOUT_PROFILE)")
	return cmd
}

func runServe(parent context.Context, profileName string) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile, err := loadProfile(cfg, profileName)
	if err != nil {
		logger.Failure(ctx, "Layout profile unavailable", log.OpStartup, err)
		return err
	}
	fetcher, key, err := buildFetcher(ctx, cfg)
	if err != nil {
		logger.Failure(ctx, "Failed to initialize source", log.OpStartup, err, log.FieldSource, cfg.SourceFormat)
		return err
	}

	cached := source.NewCached(fetcher, key, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(cached)
	if cfg.CacheTTL > 0 {
		caches.StartCleanup(max(cfg.CacheTTL, time.Minute))
	}
	defer caches.Stop()

	dash := services.NewDashboardService(cached, profile)
	refresher := worker.NewRefresher(dash, cfg.RefreshInterval, cfg.FetchTimeout+5*time.Second)

	srv := apphttp.NewServer(":"+cfg.Port, dash, apphttp.Options{
		RefreshInterval: cfg.RefreshInterval,
		LoadTimeout:     cfg.FetchTimeout + 5*time.Second,
		Logger:          logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.FetchTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	logger.Info("Starting PAT dashboard",
		"addr", srv.Addr,
		log.FieldSource, key,
		log.FieldProfile, profile.Name,
		"cache_ttl", cfg.CacheTTL.String(),
		"refresh_interval", cfg.RefreshInterval.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Warm the cache so the first page view does not wait on the download.
		refresher.RunOnce(gctx)
		return refresher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Failure(context.Background(), "Server stopped with error", log.OpShutdown, err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}
