package strategy

import "battery-sizing/internal/model"

// Greedy covers every deficit from the battery and stores every surplus,
// limited only by physics.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) Release(ctx Context, deficitKWh float64) float64 {
	return ctx.Battery.Release(deficitKWh, ctx.Duration)
}

func (Greedy) Store(ctx Context, surplusKWh float64) float64 {
	return ctx.Battery.Store(surplusKWh, ctx.Duration)
}

func (g Greedy) ForRun(*model.Series, model.BatteryParams, model.Prices) (Policy, error) {
	return g, nil
}
