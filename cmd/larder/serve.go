package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/llm"
	"github.com/dukerupert/larder/internal/metrics"
	"github.com/dukerupert/larder/internal/server"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterSweep    = 5 * time.Minute
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("port", "", "listen port")
	a.v.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	if a.cfg.Auth.JWKSURL == "" {
		return errors.New("auth.jwks_url is required to serve (set LARDER_AUTH_JWKS_URL)")
	}

	db, err := a.openDB()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	model, err := a.newModel(a.llmConfig())
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		a.logger.Warn("no language model configured; command and chat routes will return 503")
		model = nil
	case err != nil:
		return fmt.Errorf("configure language model: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	keys, err := auth.NewRemoteKeySet(ctx, a.cfg.Auth.JWKSURL)
	if err != nil {
		return fmt.Errorf("configure token verification: %w", err)
	}
	srv := server.New(server.Config{
		DB:                 db,
		Model:              model,
		Verifier:           auth.NewVerifier(keys, a.cfg.Auth.Issuer, a.cfg.Auth.Audience),
		Metrics:            metrics.New(),
		Logger:             a.logger,
		RateLimitPerMinute: a.cfg.RateLimit.PerMinute,
	})

	// No WriteTimeout: chat replies and websockets stay open for as long as
	// the client keeps them.
	httpServer := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("larder listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.RateLimiter().Run(gctx, limiterSweep)
	})
	return g.Wait()
}
