package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"agent-question/launcher/internal/readiness"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe every dependency once and print the result",
	Long: `Probe checks every configured dependency once, without retrying,
prints the per-dependency result as JSON to stdout, and exits 0 when all
of them answered or 1 otherwise. Suitable for a container HEALTHCHECK.`,
	RunE: runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	round := app.gate.Probe(ctx)
	status := readiness.StatusOK
	if !round.OK {
		status = readiness.StatusError
	}
	printJSON(cmd.OutOrStdout(), round, status)

	if !round.OK {
		slog.Warn("dependencies not ready", "failed", round.Failed())
		return errProbeFailed
	}
	return nil
}
