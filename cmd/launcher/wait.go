package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for dependencies and exit",
	Long: `Wait blocks until every configured dependency is reachable, prints the
wait result as JSON to stdout, and exits 0. When the retry policy is
exhausted it exits with status 69. Useful as an init container.`,
	RunE: runWait,
}

func runWait(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := app.gate.Wait(ctx)
	if result != nil {
		printJSON(cmd.OutOrStdout(), result, result.Status)
	}
	return err
}
