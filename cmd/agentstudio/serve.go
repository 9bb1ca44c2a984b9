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
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/darkproduction721/AI-Agent-Studio/internal/api"
	"github.com/darkproduction721/AI-Agent-Studio/internal/telemetry"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.config

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTelemetry(ctx, cfg.Telemetry.ServiceName, api.Version, cfg.Telemetry.OTLPEndpoint, a.logger)
		if err != nil {
			a.logger.Warn("Failed to initialize telemetry", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTelemetry(shutdownCtx); err != nil {
					a.logger.Warn("Telemetry shutdown failed", zap.Error(err))
				}
			}()
		}
	}

	catalog := a.loadCatalog()
	backend := a.newBackend()
	orch := a.newOrchestrator(backend)

	models, modelCache, err := a.newAccessor(ctx, backend)
	if err != nil {
		return err
	}
	defer modelCache.Close()

	srv := api.NewServer(cfg, catalog, orch, models,
		api.WithLogger(a.logger.Named("http")),
		api.WithLogManager(a.logs),
		api.WithMetrics(a.metrics))

	httpSrv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      otelhttp.NewHandler(srv.SetupRoutes(), "agentstudio-http-server"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("AI Agents Backend listening",
			zap.String("addr", httpSrv.Addr),
			zap.String("default_model", orch.DefaultModel()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Startup connectivity check; the outcome is only logged.
	g.Go(func() error {
		timeout := cfg.Backend.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		checkCtx, cancel := context.WithTimeout(gctx, timeout)
		defer cancel()
		if orch.TestConnection(checkCtx) {
			a.logger.Info("Completion backend reachable", zap.String("model", orch.DefaultModel()))
		} else {
			a.logger.Warn("Completion backend connection test failed", zap.String("model", orch.DefaultModel()))
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
