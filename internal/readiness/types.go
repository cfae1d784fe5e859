package readiness

import "time"

// Status values used by WaitResult.
const (
	StatusOK         = "ok"
	StatusError      = "error"
	StatusInProgress = "in-progress"
)

// ProbeResult is the outcome of checking a single dependency once.
type ProbeResult struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// AttemptResult is one round of probes across every dependency.
type AttemptResult struct {
	Attempt int                    `json:"attempt"`
	OK      bool                   `json:"ok"`
	Probes  map[string]ProbeResult `json:"probes"`
}

// Failed returns the names of the dependencies that did not answer.
func (a AttemptResult) Failed() []string {
	var names []string
	for name, p := range a.Probes {
		if !p.OK {
			names = append(names, name)
		}
	}
	return names
}

// WaitResult summarises a full readiness wait.
type WaitResult struct {
	RunID        string                 `json:"runId"`
	Status       string                 `json:"status"`
	Attempts     int                    `json:"attempts"`
	ElapsedMs    int64                  `json:"elapsedMs"`
	Dependencies map[string]ProbeResult `json:"dependencies"`
	Error        string                 `json:"error,omitempty"`
}

// Policy bounds the wait loop. Multiplier 1 gives the fixed-interval polling
// of a plain shell loop; larger values back off exponentially up to
// MaxInterval. At least one of MaxAttempts and MaxElapsed must be positive.
type Policy struct {
	Interval     time.Duration
	MaxInterval  time.Duration
	Multiplier   float64
	MaxAttempts  int
	MaxElapsed   time.Duration
	ProbeTimeout time.Duration
}
