// Package simulate steps a household energy series through a battery under a
// management policy and accounts for what is left over on the grid side.
package simulate

import (
	"fmt"

	"battery-sizing/internal/model"
	"battery-sizing/internal/strategy"
)

// Engine runs simulations. The zero value skips the per-interval ledger,
// which the optimizer does not need.
type Engine struct {
	Ledger bool
}

// New returns an engine that keeps the ledger.
func New() *Engine { return &Engine{Ledger: true} }

// Run simulates with a ledger. It is a pure function of its arguments apart
// from the battery, whose state advances.
func Run(series *model.Series, batt *model.Battery, policy strategy.Policy, prices model.Prices) (*Result, error) {
	return New().Run(series, batt, policy, prices)
}

// Run executes one simulation. Any policy answer outside [0, requested] or a
// SOC outside [0,1] aborts the run with a *model.InvariantError.
func (e *Engine) Run(series *model.Series, batt *model.Battery, policy strategy.Policy, prices model.Prices) (*Result, error) {
	if series == nil || series.Len() == 0 {
		return nil, model.ErrInsufficientData
	}
	if batt == nil {
		return nil, &model.ConfigError{Field: "battery", Reason: "is nil"}
	}
	if policy == nil {
		return nil, &model.ConfigError{Field: "policy", Reason: "is nil"}
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}

	n := series.Len()
	capKWh := batt.Params.CapacityKWh
	res := &Result{
		Policy:        policy.Name(),
		CapacityKWh:   capKWh,
		ImportHistory: make([]float64, n),
		ExportHistory: make([]float64, n),
		SOCHistory:    make([]float64, n),
		Period:        series.Period(),
	}
	if e.Ledger {
		res.Ledger = make([]LedgerRow, 0, n)
	}

	violation := func(idx int, format string, args ...any) error {
		return &model.InvariantError{Index: idx, CapacityKWh: capKWh, Reason: fmt.Sprintf(format, args...)}
	}

	for idx := 0; idx < n; idx++ {
		it := series.At(idx)
		ctx := strategy.Context{
			Index:    idx,
			Interval: it,
			Duration: series.Duration(idx),
			Series:   series,
			Battery:  batt,
		}
		socStart := batt.State.SOC

		var imported, exported, stored, released float64
		if it.RemainingKWh > 0 {
			released = policy.Release(ctx, it.RemainingKWh)
			if !(released >= 0) {
				return nil, violation(idx, "policy %s released %g kWh", policy.Name(), released)
			}
			imported = it.RemainingKWh - released
			if imported < 0 {
				return nil, violation(idx, "policy %s released %g kWh against a deficit of %g kWh", policy.Name(), released, it.RemainingKWh)
			}
		} else {
			surplus := -it.RemainingKWh
			if surplus > 0 {
				stored = policy.Store(ctx, surplus)
			}
			if !(stored >= 0) {
				return nil, violation(idx, "policy %s stored %g kWh", policy.Name(), stored)
			}
			exported = surplus - stored
			if exported < 0 {
				return nil, violation(idx, "policy %s stored %g kWh from a surplus of %g kWh", policy.Name(), stored, surplus)
			}
		}

		soc := batt.State.SOC
		if !model.SOCInBounds(soc) {
			return nil, violation(idx, "soc %g outside [0,1]", soc)
		}
		batt.RecordSOC()

		cost := imported*prices.ImportPerKWh - exported*prices.ExportPerKWh
		res.ImportHistory[idx] = imported
		res.ExportHistory[idx] = exported
		res.SOCHistory[idx] = soc
		res.ImportKWh += imported
		res.ExportKWh += exported
		res.StoredKWh += stored
		res.ReleasedKWh += released
		res.ImportCost += imported * prices.ImportPerKWh
		res.ExportRevenue += exported * prices.ExportPerKWh

		if e.Ledger {
			res.Ledger = append(res.Ledger, LedgerRow{
				Index:        idx,
				Timestamp:    it.Timestamp,
				Duration:     ctx.Duration,
				RemainingKWh: it.RemainingKWh,
				Action:       model.ActionFromFlows(stored, released),
				StoredKWh:    stored,
				ReleasedKWh:  released,
				ImportKWh:    imported,
				ExportKWh:    exported,
				SOCStart:     socStart,
				SOCEnd:       soc,
				Cost:         cost,
				CumCost:      res.ImportCost - res.ExportRevenue,
			})
		}
	}

	res.EnergyCost = res.ImportCost - res.ExportRevenue
	res.FinalSOC = batt.State.SOC
	return res, nil
}
