package clients

import (
	"time"

	"agent-question/launcher/internal/readiness"
)

// defaultProbeTimeout bounds a probe whose context carries no deadline.
const defaultProbeTimeout = 5 * time.Second

// probeResult converts the outcome of a check started at start into a
// ProbeResult named name.
func probeResult(name string, start time.Time, err error) readiness.ProbeResult {
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return readiness.ProbeResult{
			Name:      name,
			OK:        false,
			LatencyMs: latency,
			Error:     err.Error(),
		}
	}
	return readiness.ProbeResult{
		Name:      name,
		OK:        true,
		LatencyMs: latency,
	}
}

// timeoutFrom returns the time left before the context deadline, or
// defaultProbeTimeout when there is none.
func timeoutFrom(deadline time.Time, ok bool) time.Duration {
	if !ok {
		return defaultProbeTimeout
	}
	if d := time.Until(deadline); d > 0 {
		return d
	}
	return time.Millisecond
}
