// Package analysis summarizes an energy series before any battery is
// involved: how much is imported and exported, how peaky it is, and how much
// energy a battery could shift within a day at best.
package analysis

import (
	"math"
	"sort"
	"time"

	"battery-sizing/internal/model"

	"gonum.org/v1/gonum/stat"
)

// Profile is a battery-independent summary of a series.
type Profile struct {
	Count int `json:"count"`

	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	PeriodDays float64   `json:"period_days"`

	// ImportKWh sums the deficits, ExportKWh the surpluses (positive).
	ImportKWh float64 `json:"import_kwh"`
	ExportKWh float64 `json:"export_kwh"`
	NetKWh    float64 `json:"net_kwh"`

	MeanKWh   float64 `json:"mean_kwh"`
	StdDevKWh float64 `json:"stddev_kwh"`
	P05KWh    float64 `json:"p05_kwh"`
	P50KWh    float64 `json:"p50_kwh"`
	P95KWh    float64 `json:"p95_kwh"`

	// Largest single-interval deficit and surplus. Capacity beyond what a
	// day can shift only adds amortized cost.
	MaxDeficitKWh float64 `json:"max_deficit_kwh"`
	MaxSurplusKWh float64 `json:"max_surplus_kwh"`

	DaysNetImport int `json:"days_net_import"`
	DaysNetExport int `json:"days_net_export"`

	MaxDailyShiftableKWh  float64 `json:"max_daily_shiftable_kwh"`
	MeanDailyShiftableKWh float64 `json:"mean_daily_shiftable_kwh"`
}

func ComputeProfile(s *model.Series) Profile {
	p := Profile{}
	if s == nil || s.Len() == 0 {
		return p
	}
	p.Count = s.Len()
	p.Start = s.Start()
	p.End = s.End()
	p.PeriodDays = s.PeriodDays()

	vals := make([]float64, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		v := s.At(i).RemainingKWh
		vals = append(vals, v)
		if v > 0 {
			p.ImportKWh += v
			p.MaxDeficitKWh = math.Max(p.MaxDeficitKWh, v)
		} else {
			p.ExportKWh -= v
			p.MaxSurplusKWh = math.Max(p.MaxSurplusKWh, -v)
		}
	}
	p.NetKWh = p.ImportKWh - p.ExportKWh

	p.MeanKWh, p.StdDevKWh = stat.MeanStdDev(vals, nil)
	if len(vals) < 2 {
		p.StdDevKWh = 0
	}
	sort.Float64s(vals)
	p.P05KWh = stat.Quantile(0.05, stat.LinInterp, vals, nil)
	p.P50KWh = stat.Quantile(0.50, stat.LinInterp, vals, nil)
	p.P95KWh = stat.Quantile(0.95, stat.LinInterp, vals, nil)

	days := Days(s)
	shiftable := make([]float64, len(days))
	for i, d := range days {
		switch {
		case d.NetKWh > 0:
			p.DaysNetImport++
		case d.NetKWh < 0:
			p.DaysNetExport++
		}
		shiftable[i] = d.ShiftableKWh
		p.MaxDailyShiftableKWh = math.Max(p.MaxDailyShiftableKWh, d.ShiftableKWh)
	}
	p.MeanDailyShiftableKWh = stat.Mean(shiftable, nil)
	return p
}

// SuggestMaxCapacityKWh proposes the upper end of a capacity sweep: the most
// energy any single day could move from surplus to deficit, rounded up, and
// never below 1 kWh.
func SuggestMaxCapacityKWh(p Profile) float64 {
	return math.Max(1, math.Ceil(p.MaxDailyShiftableKWh))
}
