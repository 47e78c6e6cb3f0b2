package model

import (
	"math"
	"time"
)

// DefaultInitialSOC is the state of charge a fresh battery starts at.
const DefaultInitialSOC = 0.33

// socTolerance is the floating-point drift tolerated before clamping.
const socTolerance = 1e-9

// ReserveWindow holds SOC back during [StartHour, EndHour) local time.
type ReserveWindow struct {
	StartHour int     `json:"start_hour" yaml:"start_hour"`
	EndHour   int     `json:"end_hour" yaml:"end_hour"`
	SOC       float64 `json:"soc" yaml:"soc"`
}

// ReserveSchedule maps the hour of day to a minimum SOC below which
// discretionary discharge is withheld. It is policy input, not physics.
type ReserveSchedule struct {
	Windows []ReserveWindow `json:"windows" yaml:"windows"`
	Default float64         `json:"default" yaml:"default"`
}

// DefaultReserveSchedule keeps half the battery for the evening peak and a
// quarter through the night.
func DefaultReserveSchedule() ReserveSchedule {
	return ReserveSchedule{
		Windows: []ReserveWindow{
			{StartHour: 17, EndHour: 20, SOC: 0.50},
			{StartHour: 0, EndHour: 6, SOC: 0.25},
		},
		Default: 0.05,
	}
}

// At returns the reserve for ts, evaluated in ts's own location.
// The first matching window wins.
func (s ReserveSchedule) At(ts time.Time) float64 {
	h := ts.Hour()
	for _, w := range s.Windows {
		if h >= w.StartHour && h < w.EndHour {
			return w.SOC
		}
	}
	return s.Default
}

func (s ReserveSchedule) Validate() error {
	if s.Default < 0 || s.Default > 1 {
		return &ConfigError{Field: "reserve.default", Reason: "must be in [0, 1]"}
	}
	for _, w := range s.Windows {
		if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
			return &ConfigError{Field: "reserve.windows", Reason: "hours must satisfy 0 <= start < end <= 24"}
		}
		if w.SOC < 0 || w.SOC > 1 {
			return &ConfigError{Field: "reserve.windows.soc", Reason: "must be in [0, 1]"}
		}
	}
	return nil
}

// BatteryParams defines the physical and economic parameters of the battery.
// Units:
// - CapacityKWh: kWh
// - Efficiency: 0..1, applied once on every store and every release
// - CRate: 1/h, the per-hour charge/discharge limit as a fraction of capacity
// - InitialSOC: fraction 0..1
// - FixedCost, VariableCostPerKWh: currency (installation, per kWh of capacity)
// - LifetimeYears: amortization period
type BatteryParams struct {
	CapacityKWh        float64
	Efficiency         float64
	CRate              float64
	InitialSOC         float64
	FixedCost          float64
	VariableCostPerKWh float64
	LifetimeYears      float64
	Reserve            ReserveSchedule
}

// DefaultBatteryParams returns a residential lithium battery without a size.
func DefaultBatteryParams() BatteryParams {
	return BatteryParams{
		Efficiency:         0.95,
		CRate:              0.25,
		InitialSOC:         DefaultInitialSOC,
		FixedCost:          1000,
		VariableCostPerKWh: 700,
		LifetimeYears:      10,
		Reserve:            DefaultReserveSchedule(),
	}
}

// WithCapacity returns a copy of p sized to capacityKWh.
func (p BatteryParams) WithCapacity(capacityKWh float64) BatteryParams {
	p.CapacityKWh = capacityKWh
	return p
}

func (p BatteryParams) Validate() error {
	if !(p.CapacityKWh >= 0) || math.IsInf(p.CapacityKWh, 0) {
		return &ConfigError{Field: "capacity_kwh", Reason: "must be a finite number >= 0"}
	}
	if !(p.Efficiency > 0 && p.Efficiency <= 1) {
		return &ConfigError{Field: "efficiency", Reason: "must be in (0, 1]"}
	}
	if !(p.CRate > 0) || math.IsInf(p.CRate, 0) {
		return &ConfigError{Field: "c_rate", Reason: "must be > 0"}
	}
	if !(p.InitialSOC >= 0 && p.InitialSOC <= 1) {
		return &ConfigError{Field: "initial_soc", Reason: "must be in [0, 1]"}
	}
	if !(p.FixedCost >= 0) || !(p.VariableCostPerKWh >= 0) || math.IsInf(p.FixedCost, 0) || math.IsInf(p.VariableCostPerKWh, 0) {
		return &ConfigError{Field: "cost", Reason: "must be >= 0"}
	}
	if !(p.LifetimeYears > 0) || math.IsInf(p.LifetimeYears, 0) {
		return &ConfigError{Field: "lifetime_years", Reason: "must be > 0"}
	}
	return p.Reserve.Validate()
}

// AnnualizedCost amortizes the purchase over the lifetime. A zero-capacity
// battery is no battery and costs nothing.
func (p BatteryParams) AnnualizedCost() float64 {
	if p.CapacityKWh <= 0 {
		return 0
	}
	return (p.VariableCostPerKWh*p.CapacityKWh + p.FixedCost) / p.LifetimeYears
}

// BatteryState captures mutable state.
type BatteryState struct {
	// SOC is the state of charge as a fraction [0,1].
	SOC float64
}

// Battery is a convenience wrapper bundling params + state. A Battery is
// owned by one simulation run at a time.
type Battery struct {
	Params BatteryParams
	State  BatteryState

	history []float64
}

func NewBattery(params BatteryParams) (*Battery, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Battery{
		Params: params,
		State:  BatteryState{SOC: params.InitialSOC},
	}, nil
}

// CurrentKWh is the energy held: SOC * capacity.
func (b *Battery) CurrentKWh() float64 { return b.State.SOC * b.Params.CapacityKWh }

// AvailableKWh is the headroom: capacity - current.
func (b *Battery) AvailableKWh() float64 { return b.Params.CapacityKWh - b.CurrentKWh() }

// RateLimitKWh is the most energy that may move in or out during dt.
func (b *Battery) RateLimitKWh(dt time.Duration) float64 {
	return b.Params.CRate * b.Params.CapacityKWh * dt.Hours()
}

// Store offers requestedKWh of surplus to the battery for an interval of
// length dt. It returns the energy taken from the surplus; the stored amount
// is that times the efficiency.
func (b *Battery) Store(requestedKWh float64, dt time.Duration) float64 {
	if b.Params.CapacityKWh <= 0 || requestedKWh <= 0 {
		return 0
	}
	limit := math.Min(b.RateLimitKWh(dt), b.AvailableKWh())
	accepted := math.Max(0, math.Min(requestedKWh, limit))
	b.State.SOC = clamp01(b.State.SOC + accepted*b.Params.Efficiency/b.Params.CapacityKWh)
	return accepted
}

// Release asks the battery to cover requestedKWh of deficit during dt. It
// returns the energy delivered to the load, net of conversion loss.
func (b *Battery) Release(requestedKWh float64, dt time.Duration) float64 {
	if b.Params.CapacityKWh <= 0 || requestedKWh <= 0 {
		return 0
	}
	limit := math.Min(b.RateLimitKWh(dt), b.CurrentKWh())
	releasable := math.Max(0, math.Min(requestedKWh, limit))
	b.State.SOC = clamp01(b.State.SOC - releasable/b.Params.CapacityKWh)
	return releasable * b.Params.Efficiency
}

// ReserveSOC returns the time-of-day minimum SOC for discretionary discharge.
func (b *Battery) ReserveSOC(ts time.Time) float64 { return b.Params.Reserve.At(ts) }

func (b *Battery) AnnualizedCost() float64 { return b.Params.AnnualizedCost() }

// RecordSOC appends the current SOC to the history.
func (b *Battery) RecordSOC() { b.history = append(b.history, b.State.SOC) }

// SOCHistory returns a copy of the recorded SOC values.
func (b *Battery) SOCHistory() []float64 {
	out := make([]float64, len(b.history))
	copy(out, b.history)
	return out
}

// SOCInBounds reports whether soc is in [0,1] within floating tolerance.
func SOCInBounds(soc float64) bool {
	return soc >= -socTolerance && soc <= 1+socTolerance
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
