package strategy

import (
	"fmt"
	"math"

	"battery-sizing/internal/lp"
	"battery-sizing/internal/model"
)

// LP is a perfect-foresight factory. For each run it solves the dispatch
// linear program for that battery and replays the plan. It ignores the
// reserve schedule and is meant as a lower bound on achievable cost.
type LP struct {
	Options lp.Options
}

func (LP) Name() string { return "lp" }

func (f LP) ForRun(series *model.Series, params model.BatteryParams, prices model.Prices) (Policy, error) {
	plan, err := lp.Solve(series, params, prices, f.Options)
	if err != nil {
		return nil, fmt.Errorf("lp plan for %.3f kWh: %w", params.CapacityKWh, err)
	}
	return &PlanPolicy{plan: plan}, nil
}

// PlanPolicy replays a precomputed plan. Requests are clamped to what the
// interval actually offers, so small drift between plan and battery is safe.
type PlanPolicy struct {
	plan *lp.Plan
}

func NewPlanPolicy(plan *lp.Plan) *PlanPolicy { return &PlanPolicy{plan: plan} }

func (p *PlanPolicy) Name() string { return "lp" }

func (p *PlanPolicy) Release(ctx Context, deficitKWh float64) float64 {
	if ctx.Index < 0 || ctx.Index >= len(p.plan.Discharge) {
		return 0
	}
	want := math.Min(p.plan.Discharge[ctx.Index], deficitKWh)
	if want <= 0 {
		return 0
	}
	return ctx.Battery.Release(want, ctx.Duration)
}

func (p *PlanPolicy) Store(ctx Context, surplusKWh float64) float64 {
	if ctx.Index < 0 || ctx.Index >= len(p.plan.Charge) {
		return 0
	}
	want := math.Min(p.plan.Charge[ctx.Index], surplusKWh)
	if want <= 0 {
		return 0
	}
	return ctx.Battery.Store(want, ctx.Duration)
}
