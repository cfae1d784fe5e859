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

	"github.com/spf13/cobra"
)

var waitOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the probe API",
	Long: `Serve starts the probe HTTP API on the configured port (default :8081):

  GET  /health        liveness, always 200
  GET  /health/deep   one probe round through circuit breakers, 200 or 503
  GET  /ready         200 after a successful wait, 503 otherwise
  POST /api/v1/wait   start a background wait (202, or 409 while one runs)
  GET  /api/v1/wait   the last wait result

It shuts down cleanly on SIGTERM or SIGINT.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&waitOnStart, "wait", false, "start a readiness wait as soon as the server is up")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, serverErr := startProbeServer()

	if waitOnStart {
		if err := app.gate.Start(ctx); err != nil {
			return fmt.Errorf("starting wait: %w", err)
		}
	}

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	if err := shutdownProbeServer(srv); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	slog.Info("server stopped cleanly")
	return nil
}

// startProbeServer listens on the probe port in a goroutine. The returned
// channel receives the listen error, or nil once the server is shut down.
func startProbeServer() (*http.Server, <-chan error) {
	addr := fmt.Sprintf(":%d", cfg.Probe.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.router.Handler(),
		ReadTimeout:  cfg.Probe.ReadTimeout,
		WriteTimeout: cfg.Probe.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("probe server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()
	return srv, serverErr
}

func shutdownProbeServer(srv *http.Server) error {
	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Probe.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
