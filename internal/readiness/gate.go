package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/errgroup"

	"agent-question/launcher/internal/telemetry"
)

const instrumentationName = "agent-question/launcher/readiness"

var (
	// ErrWaitInProgress is returned when Wait is called while another wait
	// is still running on the same Gate.
	ErrWaitInProgress = errors.New("readiness wait already in progress")

	// ErrDependenciesUnavailable is returned when the retry policy is
	// exhausted before every dependency answered.
	ErrDependenciesUnavailable = errors.New("dependencies unavailable")
)

// Prober checks one dependency. Implementations must honour ctx and report
// failures through ProbeResult rather than panicking.
type Prober interface {
	Probe(ctx context.Context) ProbeResult
}

// Dependency is a named Prober registered with a Gate.
type Dependency struct {
	Name   string
	Prober Prober
}

// Gate blocks until all registered dependencies answer their probes.
type Gate struct {
	deps   []Dependency
	policy Policy

	waiting    atomic.Bool
	lastResult *WaitResult
	resultMu   sync.RWMutex

	attempts metric.Int64Counter
	duration metric.Float64Histogram
}

// New constructs a Gate. Dependencies are probed in parallel on every attempt.
func New(policy Policy, deps ...Dependency) *Gate {
	g := &Gate{deps: deps, policy: policy}

	meter := otel.Meter(instrumentationName)
	var err error
	g.attempts, err = meter.Int64Counter("launcher.readiness.attempts",
		metric.WithDescription("Readiness probe rounds, labelled by outcome."))
	if err != nil {
		g.attempts = noop.Int64Counter{}
	}
	g.duration, err = meter.Float64Histogram("launcher.readiness.wait.duration",
		metric.WithDescription("Time spent waiting for dependencies."),
		metric.WithUnit("s"))
	if err != nil {
		g.duration = noop.Float64Histogram{}
	}
	return g
}

// Dependencies returns the registered dependency names in registration order.
func (g *Gate) Dependencies() []string {
	names := make([]string, 0, len(g.deps))
	for _, d := range g.deps {
		names = append(names, d.Name)
	}
	return names
}

// Probe runs a single round of probes without retrying.
func (g *Gate) Probe(ctx context.Context) AttemptResult {
	return g.round(ctx, 0)
}

// Wait probes every dependency until all of them are OK or the policy is
// exhausted. It never reports success before a fully successful round.
// Exhaustion returns ErrDependenciesUnavailable; cancellation returns the
// context error. The result is returned in both cases.
func (g *Gate) Wait(ctx context.Context) (*WaitResult, error) {
	if !g.waiting.CompareAndSwap(false, true) {
		return nil, ErrWaitInProgress
	}
	defer g.waiting.Store(false)
	return g.wait(ctx)
}

// Start runs Wait in the background. The in-progress check is made before
// Start returns: it returns ErrWaitInProgress if a wait is already running,
// so of two concurrent callers exactly one gets nil.
func (g *Gate) Start(ctx context.Context) error {
	if !g.waiting.CompareAndSwap(false, true) {
		return ErrWaitInProgress
	}
	go func() {
		defer g.waiting.Store(false)
		_, _ = g.wait(ctx)
	}()
	return nil
}

// wait is the body of Wait; the caller holds the in-progress flag.
func (g *Gate) wait(ctx context.Context) (*WaitResult, error) {
	runID := uuid.NewString()
	ctx = telemetry.WithRunID(ctx, runID)
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "launcher.readiness.wait")
	defer span.End()
	span.SetAttributes(attribute.String("launcher.run_id", runID))

	// run_id is attached to every record by the context handler, including
	// those logged by the probers.
	logger := slog.Default()
	logger.InfoContext(ctx, "waiting for dependencies",
		"dependencies", g.Dependencies(),
		"max_attempts", g.policy.MaxAttempts,
		"max_elapsed", g.policy.MaxElapsed.String(),
	)

	start := time.Now()
	var last AttemptResult
	attempt := 0

	op := func() error {
		attempt++
		last = g.round(ctx, attempt)
		g.attempts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", last.OK)))
		if last.OK {
			return nil
		}
		failed := last.Failed()
		sort.Strings(failed)
		return fmt.Errorf("not ready: %s", strings.Join(failed, ", "))
	}

	notify := func(err error, next time.Duration) {
		logger.InfoContext(ctx, "dependencies not ready, retrying",
			"attempt", attempt,
			"error", err.Error(),
			"retry_in", next.String(),
		)
	}

	err := backoff.RetryNotify(op, g.backOff(ctx), notify)
	elapsed := time.Since(start)
	g.duration.Record(ctx, elapsed.Seconds())

	result := &WaitResult{
		RunID:        runID,
		Status:       StatusOK,
		Attempts:     attempt,
		ElapsedMs:    elapsed.Milliseconds(),
		Dependencies: last.Probes,
	}

	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
		logger.InfoContext(ctx, "dependencies ready", "attempts", attempt, "elapsed", elapsed.String())
	case ctx.Err() != nil:
		err = fmt.Errorf("readiness wait cancelled: %w", ctx.Err())
		result.Status = StatusError
		result.Error = err.Error()
		span.SetStatus(codes.Error, "cancelled")
		logger.WarnContext(ctx, "readiness wait cancelled", "attempts", attempt)
	default:
		err = fmt.Errorf("%w after %d attempts in %s: %v", ErrDependenciesUnavailable, attempt, elapsed.Round(time.Millisecond), err)
		result.Status = StatusError
		result.Error = err.Error()
		span.SetStatus(codes.Error, "dependencies unavailable")
		logger.ErrorContext(ctx, "giving up on dependencies", "attempts", attempt, "error", err)
	}
	span.SetAttributes(
		attribute.Int("launcher.attempts", attempt),
		attribute.String("launcher.status", result.Status),
	)

	g.resultMu.Lock()
	g.lastResult = result
	g.resultMu.Unlock()

	return result, err
}

// IsWaiting returns true while a Wait call is active.
func (g *Gate) IsWaiting() bool {
	return g.waiting.Load()
}

// IsReady returns true if the last Wait completed with StatusOK.
func (g *Gate) IsReady() bool {
	g.resultMu.RLock()
	defer g.resultMu.RUnlock()
	return g.lastResult != nil && g.lastResult.Status == StatusOK
}

// LastResult returns the result of the most recent Wait, or nil.
func (g *Gate) LastResult() *WaitResult {
	g.resultMu.RLock()
	defer g.resultMu.RUnlock()
	if g.lastResult == nil {
		return nil
	}
	cp := *g.lastResult
	return &cp
}

// round probes all dependencies concurrently. Each probe gets its own
// timeout so one hung dependency cannot stall the others.
func (g *Gate) round(ctx context.Context, attempt int) AttemptResult {
	res := AttemptResult{
		Attempt: attempt,
		OK:      true,
		Probes:  make(map[string]ProbeResult, len(g.deps)),
	}
	var mu sync.Mutex
	var eg errgroup.Group

	for _, d := range g.deps {
		eg.Go(func() error {
			pctx := ctx
			if g.policy.ProbeTimeout > 0 {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(ctx, g.policy.ProbeTimeout)
				defer cancel()
			}
			p := d.Prober.Probe(pctx)
			mu.Lock()
			res.Probes[d.Name] = p
			if !p.OK {
				res.OK = false
			}
			mu.Unlock()
			return nil
		})
	}

	// g.Wait never returns an error because every goroutine returns nil.
	_ = eg.Wait()
	return res
}

// backOff translates the Policy into a cenkalti backoff schedule.
func (g *Gate) backOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = g.policy.Interval
	exp.RandomizationFactor = 0
	exp.Multiplier = g.policy.Multiplier
	if exp.Multiplier < 1 {
		exp.Multiplier = 1
	}
	exp.MaxInterval = g.policy.MaxInterval
	if exp.MaxInterval < exp.InitialInterval {
		exp.MaxInterval = exp.InitialInterval
	}
	exp.MaxElapsedTime = g.policy.MaxElapsed

	var b backoff.BackOff = exp
	if g.policy.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(exp, uint64(g.policy.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}
