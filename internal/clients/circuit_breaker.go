package clients

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"agent-question/launcher/internal/readiness"
)

// NewCircuitBreaker returns a gobreaker configured to trip after 3 consecutive
// failures and reset after 30 seconds in the open state.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

// BreakerProber guards a Prober with a circuit breaker. It is meant for the
// probe API, where orchestrators poll continuously; the startup wait loop
// uses bare probers so an open breaker cannot consume its attempts.
type BreakerProber struct {
	name   string
	prober readiness.Prober
	cb     *gobreaker.CircuitBreaker
}

// WithBreaker wraps p in cb. name is reported when the breaker short-circuits.
func WithBreaker(name string, p readiness.Prober, cb *gobreaker.CircuitBreaker) *BreakerProber {
	return &BreakerProber{name: name, prober: p, cb: cb}
}

// Probe runs the wrapped probe through the breaker. A failed probe counts as
// a breaker failure; while open, calls return "circuit open" immediately.
func (b *BreakerProber) Probe(ctx context.Context) readiness.ProbeResult {
	var res readiness.ProbeResult
	_, err := b.cb.Execute(func() (any, error) {
		res = b.prober.Probe(ctx)
		if !res.OK {
			return nil, errors.New(res.Error)
		}
		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return readiness.ProbeResult{
			Name:  b.name,
			OK:    false,
			Error: "circuit open",
		}
	}
	return res
}

// Guard wraps every dependency with its own breaker so each one trips
// independently.
func Guard(deps []readiness.Dependency) []readiness.Dependency {
	guarded := make([]readiness.Dependency, len(deps))
	for i, d := range deps {
		guarded[i] = readiness.Dependency{
			Name:   d.Name,
			Prober: WithBreaker(d.Name, d.Prober, NewCircuitBreaker(d.Name)),
		}
	}
	return guarded
}
