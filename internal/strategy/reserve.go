package strategy

import (
	"time"

	"battery-sizing/internal/model"
)

// ReserveParams tunes the reserve-aware policy.
type ReserveParams struct {
	// ThresholdFraction of the trailing mean |remaining| above which a deficit
	// may dip into the reserve.
	ThresholdFraction float64
	// Window is the trailing span the mean is taken over.
	Window time.Duration
}

func DefaultReserveParams() ReserveParams {
	return ReserveParams{ThresholdFraction: 0.15, Window: 24 * time.Hour}
}

// ReserveAware holds back charge according to the battery's reserve schedule:
//   - above the reserve SOC, deficits are covered like Greedy;
//   - at or below it, only deficits larger than ThresholdFraction times the
//     trailing mean |remaining| are covered, otherwise the battery idles.
//
// Surplus is always stored.
type ReserveAware struct {
	Params ReserveParams
}

func NewReserveAware(p ReserveParams) (ReserveAware, error) {
	if !(p.ThresholdFraction >= 0) {
		return ReserveAware{}, &model.ConfigError{Field: "policy.params.threshold_fraction", Reason: "must be >= 0"}
	}
	if p.Window <= 0 {
		return ReserveAware{}, &model.ConfigError{Field: "policy.params.window_hours", Reason: "must be > 0"}
	}
	return ReserveAware{Params: p}, nil
}

func (ReserveAware) Name() string { return "reserve" }

func (r ReserveAware) Release(ctx Context, deficitKWh float64) float64 {
	b := ctx.Battery
	if b.State.SOC > b.ReserveSOC(ctx.Interval.Timestamp) {
		return b.Release(deficitKWh, ctx.Duration)
	}
	if deficitKWh > r.Threshold(ctx) {
		return b.Release(deficitKWh, ctx.Duration)
	}
	return 0
}

func (ReserveAware) Store(ctx Context, surplusKWh float64) float64 {
	return ctx.Battery.Store(surplusKWh, ctx.Duration)
}

// Threshold is the deficit size that justifies discharging below the reserve.
func (r ReserveAware) Threshold(ctx Context) float64 {
	if ctx.Series == nil {
		return 0
	}
	return r.Params.ThresholdFraction * ctx.Series.TrailingMeanAbs(ctx.Index, r.Params.Window)
}

func (r ReserveAware) ForRun(*model.Series, model.BatteryParams, model.Prices) (Policy, error) {
	return r, nil
}
