package strategy

import (
	"time"

	"battery-sizing/internal/model"
)

// Context is what a policy sees for one interval.
type Context struct {
	Index    int
	Interval model.Interval
	Duration time.Duration
	Series   *model.Series
	Battery  *model.Battery
}

// Policy decides how much the battery contributes in one interval. It acts on
// ctx.Battery through Store and Release and returns the energy it moved on the
// household side. A policy must be safe to share between concurrent runs, so
// it may not keep per-run state.
type Policy interface {
	Name() string
	// Release covers part of a deficit (> 0). The result must lie in
	// [0, deficitKWh].
	Release(ctx Context, deficitKWh float64) float64
	// Store absorbs part of a surplus (> 0). The result must lie in
	// [0, surplusKWh].
	Store(ctx Context, surplusKWh float64) float64
}

// Factory prepares the policy for a run of one battery over one series.
// Stateless policies return themselves; planning policies solve ahead.
type Factory interface {
	Name() string
	ForRun(series *model.Series, params model.BatteryParams, prices model.Prices) (Policy, error)
}
