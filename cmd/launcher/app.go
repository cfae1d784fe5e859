package main

import (
	"context"
	"log/slog"
	"time"

	"agent-question/launcher/internal/api"
	"agent-question/launcher/internal/clients"
	"agent-question/launcher/internal/config"
	"agent-question/launcher/internal/readiness"
	"agent-question/launcher/internal/telemetry"
)

// AppContext holds all constructed application dependencies shared across
// subcommands. It is built once in PersistentPreRunE.
type AppContext struct {
	cfg          *config.Config
	otelProvider *telemetry.Provider
	// gate runs the startup wait with bare probers.
	gate *readiness.Gate
	// health runs deep health rounds through per-dependency breakers.
	health *readiness.Gate
	router *api.Router
}

// buildAppContext constructs all application dependencies from cfg:
//  1. Initialises the OTEL provider (best-effort, non-fatal)
//  2. Builds the dependency probers
//  3. Creates the wait gate and the breaker-guarded health gate
//  4. Creates the HTTP router
func buildAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	app := &AppContext{cfg: cfg}

	// A missing collector must never block startup.
	tp, err := telemetry.InitProvider(ctx,
		cfg.Telemetry.OTLPEndpoint,
		cfg.Telemetry.ServiceName,
		cfg.Telemetry.OTLPInsecure,
	)
	switch {
	case err != nil:
		slog.Warn("OTEL provider init failed, telemetry disabled", "err", err)
	case !tp.Enabled():
		slog.Debug("OTEL telemetry disabled (no endpoint configured)")
	default:
		app.otelProvider = tp
	}

	policy := waitPolicy(cfg.Wait)
	deps := clients.Dependencies(cfg)

	app.gate = readiness.New(policy, deps...)
	app.health = readiness.New(policy, clients.Guard(deps)...)
	app.router = api.NewRouter(app.gate, app.health, cfg.Telemetry.ServiceName)

	slog.Debug("dependencies configured", "dependencies", app.gate.Dependencies())
	return app, nil
}

// Close flushes telemetry.
func (a *AppContext) Close() {
	if a.otelProvider == nil {
		return
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.otelProvider.Shutdown(shutCtx); err != nil {
		slog.Warn("OTEL shutdown error", "err", err)
	}
}

func waitPolicy(w config.WaitConfig) readiness.Policy {
	return readiness.Policy{
		Interval:     w.Interval,
		MaxInterval:  w.MaxInterval,
		Multiplier:   w.Multiplier,
		MaxAttempts:  w.MaxAttempts,
		MaxElapsed:   w.MaxElapsed,
		ProbeTimeout: w.ProbeTimeout,
	}
}
