package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"companiond/internal/config"
	"companiond/internal/gateway"
	"companiond/internal/server"
)

var skipProbe bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat pipeline over HTTP",
	Long: `Starts the HTTP API:
  POST /api/chat               run one message through the pipeline
  GET  /api/history/{session}  ordered turn history for a session
  GET  /api/stats              aggregate session/turn counts
  GET  /api/health             liveness check`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipProbe, "skip-probe", false, "skip the startup gateway probe")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	application, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	if !skipProbe {
		probeCtx, cancel := context.WithTimeout(ctx, cfg.GetCallTimeout())
		err := gateway.Probe(probeCtx, application.client)
		cancel()
		if err != nil {
			logger.Warn("gateway probe failed; serving anyway, pipeline will degrade until the provider recovers", zap.Error(err))
		} else {
			logger.Info("gateway probe ok")
		}
	}

	// Hot-reload pipeline tunables when the config file changes.
	go func() {
		err := config.Watch(ctx, configPath, logger, func(next *config.Config) {
			application.judge.SetThreshold(next.Pipeline.ApprovalThreshold)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	handler := server.NewHandler(application.orchestrator, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler.Routes(cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Backend))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
