// Package metrics records optimizer activity.
package metrics

import "time"

// Evaluation is one simulated grid point.
type Evaluation struct {
	Policy      string
	CapacityKWh float64
	Duration    time.Duration
}

// Sweep summarizes a finished capacity sweep.
type Sweep struct {
	Policy             string
	Points             int
	Duration           time.Duration
	OptimalCapacityKWh float64
}

// Sink receives optimizer events. Implementations must be safe for
// concurrent use since grid points are evaluated in parallel.
type Sink interface {
	RecordEvaluation(Evaluation)
	RecordSweep(Sweep)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordEvaluation(Evaluation) {}
func (NopSink) RecordSweep(Sweep)           {}
