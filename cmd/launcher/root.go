package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"agent-question/launcher/internal/config"
	"agent-question/launcher/internal/telemetry"
)

var (
	cfgFile  string
	logLevel string
	envFile  string

	// cfg is populated by PersistentPreRunE and shared with all subcommands.
	cfg *config.Config

	// app holds all wired dependencies; populated by PersistentPreRunE.
	app *AppContext
)

var rootCmd = &cobra.Command{
	Use:   "launcher",
	Short: "Wait for dependencies, then start the application server",
	Long: `launcher blocks until the application's MySQL database (and any other
configured dependency) answers, prints a readiness message, and starts the
server on 0.0.0.0:5050. The wait is bounded: when the dependencies do not
come up in time the launcher exits with status 69 and the server is never
started.`,
	SilenceUsage: true,
	Version:      telemetry.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		initLogger(logLevel, "")
		if needsNoConfig(cmd) {
			return nil
		}

		if err := config.LoadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
			return &configError{err: err}
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return &configError{err: fmt.Errorf("loading config: %w", err)}
		}

		// --log-level flag takes precedence over value in config file.
		if cmd.Flags().Changed("log-level") {
			cfg.Telemetry.LogLevel = logLevel
		}
		initLogger(cfg.Telemetry.LogLevel, cfg.Telemetry.LogFile)

		if err := cfg.Validate(); err != nil {
			return &configError{err: err}
		}

		app, err = buildAppContext(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("building app context: %w", err)
		}

		return nil
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute is the entry point called by main.
func Execute() {
	err := rootCmd.Execute()
	if app != nil {
		app.Close()
	}
	os.Exit(exitCode(err))
}

// needsNoConfig reports commands that must work without a database password.
func needsNoConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	}
	return cmd.HasParent() && cmd.Parent().Name() == "completion"
}

// initLogger installs a JSON slog logger on stdout, teed to logFile when one
// is configured.
func initLogger(level, logFile string) {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}

	handlers := []slog.Handler{slog.NewJSONHandler(os.Stdout, opts)}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening log file %s: %v\n", logFile, err)
		} else {
			handlers = append(handlers, slog.NewJSONHandler(f, opts))
		}
	}
	slog.SetDefault(slog.New(telemetry.NewContextHandler(telemetry.NewFanoutHandler(handlers...))))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printJSON writes v as indented JSON, falling back to a bare status line.
func printJSON(w io.Writer, v any, status string) {
	enc := newIndentEncoder(w)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(w, `{"status":%q}`+"\n", status)
	}
}

// errProbeFailed is returned by the probe command when a dependency is down.
var errProbeFailed = errors.New("one or more dependencies are not ready")
