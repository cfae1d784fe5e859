package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"agent-question/launcher/internal/process"
)

var serveProbes bool

var runCmd = &cobra.Command{
	Use:   "run [-- command...]",
	Short: "Wait for dependencies, then start the server",
	Long: `Run waits until every configured dependency is reachable, prints the
readiness message and starts the server exactly once. Arguments after "--"
replace the configured server command; ${HOST} and ${PORT} are expanded.

The server inherits stdio, receives SIGINT/SIGTERM, and its exit status
becomes the launcher's. If the wait gives up, the server is not started and
the launcher exits with status 69.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&serveProbes, "serve-probes", false, "serve the probe API while waiting and running")
}

func runRun(cmd *cobra.Command, args []string) error {
	argv := cfg.Server.Command
	if len(args) > 0 {
		argv = args
	}
	command, err := process.NewCommand(argv, cfg.Server.Host, cfg.Server.Port)
	if err != nil {
		return &configError{err: err}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveProbes {
		srv, serverErr := startProbeServer()
		go func() {
			if err := <-serverErr; err != nil {
				slog.Error("probe server failed", "err", err)
			}
		}()
		defer shutdownProbeServer(srv) //nolint:errcheck
	}

	launcher := process.NewLauncher(app.gate, process.NewExecRunner(), command, cfg.Server.Message, os.Stdout)
	if err := launcher.Run(ctx); err != nil {
		return fmt.Errorf("launch: %w", err)
	}
	return nil
}
