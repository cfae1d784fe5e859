package main

import (
	"encoding/json"
	"errors"
	"io"

	"agent-question/launcher/internal/config"
	"agent-question/launcher/internal/process"
	"agent-question/launcher/internal/readiness"
)

// Exit statuses from sysexits.h.
const (
	exitUnavailable = 69
	exitConfig      = 78
)

// configError marks errors caused by missing or invalid configuration.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }

func (e *configError) Unwrap() error { return e.err }

// exitCode maps a command error to the process exit status. A server that
// exited on its own keeps its status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *process.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, readiness.ErrDependenciesUnavailable) {
		return exitUnavailable
	}
	var cfgErr *configError
	if errors.As(err, &cfgErr) || errors.Is(err, config.ErrMissingPassword) || errors.Is(err, process.ErrEmptyCommand) {
		return exitConfig
	}
	return 1
}

func newIndentEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}
