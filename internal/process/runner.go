package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

// Runner starts a command and blocks until it exits.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes sharing the launcher's stdio.
// SIGINT and SIGTERM received by the launcher are forwarded to the child,
// which decides how to shut down; cancelling ctx sends it SIGTERM. On Unix
// the child gets its own process group, so a terminal Ctrl-C reaches it once,
// through the launcher, rather than twice.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns an ExecRunner wired to the process's own stdio.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run starts cmd and waits for it. A non-zero exit is returned as *ExitError.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	if len(cmd.Argv) == 0 {
		return ErrEmptyCommand
	}

	c := exec.Command(cmd.Argv[0], cmd.Argv[1:]...) //nolint:gosec // command comes from operator config
	c.Stdin = r.Stdin
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr
	c.Env = append(os.Environ(), cmd.Env...)
	c.SysProcAttr = childProcAttr()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	if err := c.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", cmd.Argv[0], err)
	}
	slog.InfoContext(ctx, "server started", "pid", c.Process.Pid, "command", cmd.String())

	done := make(chan struct{})
	go func() {
		cancelled := ctx.Done()
		for {
			select {
			case sig := <-sigs:
				slog.Info("forwarding signal to server", "signal", sig.String())
				_ = c.Process.Signal(sig)
			case <-cancelled:
				_ = c.Process.Signal(syscall.SIGTERM)
				cancelled = nil
			case <-done:
				return
			}
		}
	}()

	err := c.Wait()
	close(done)

	code := exitCode(err)
	slog.InfoContext(ctx, "server exited", "code", code)
	if err != nil && code < 0 {
		return fmt.Errorf("waiting for %s: %w", cmd.Argv[0], err)
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// exitCode extracts the child's status from the error returned by Wait.
// It returns -1 when err is not an exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return -1
	}
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ee.ExitCode()
}
