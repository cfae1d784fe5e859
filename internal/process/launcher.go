package process

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"agent-question/launcher/internal/readiness"
)

// Waiter blocks until dependencies are ready. *readiness.Gate satisfies it.
type Waiter interface {
	Wait(ctx context.Context) (*readiness.WaitResult, error)
}

// Launcher waits for dependencies and then starts the server exactly once.
type Launcher struct {
	waiter  Waiter
	runner  Runner
	cmd     Command
	message string
	out     io.Writer
}

// NewLauncher wires a Launcher. message is written to out, followed by a
// newline, between a successful wait and the server start.
func NewLauncher(waiter Waiter, runner Runner, cmd Command, message string, out io.Writer) *Launcher {
	return &Launcher{
		waiter:  waiter,
		runner:  runner,
		cmd:     cmd,
		message: message,
		out:     out,
	}
}

// Run waits for readiness and then hands control to the server. If the wait
// fails the server is never started and the wait error is returned.
func (l *Launcher) Run(ctx context.Context) error {
	result, err := l.waiter.Wait(ctx)
	if err != nil {
		return err
	}

	if l.message != "" {
		if _, err := fmt.Fprintln(l.out, l.message); err != nil {
			return fmt.Errorf("writing ready message: %w", err)
		}
	}

	slog.InfoContext(ctx, "starting server",
		"command", l.cmd.String(),
		"run_id", result.RunID,
		"attempts", result.Attempts,
	)
	// Once started, the server is stopped by the signals forwarded to it, not
	// by cancellation of the wait context.
	return l.runner.Run(context.WithoutCancel(ctx), l.cmd)
}
