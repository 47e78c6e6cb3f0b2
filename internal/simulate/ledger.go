package simulate

import (
	"time"

	"battery-sizing/internal/model"
)

// LedgerRow is one row of per-interval output.
// StoredKWh is taken from the surplus, ReleasedKWh is delivered to the load.
type LedgerRow struct {
	Index int

	Timestamp time.Time
	Duration  time.Duration

	RemainingKWh float64

	Action model.Action

	StoredKWh   float64
	ReleasedKWh float64
	ImportKWh   float64
	ExportKWh   float64

	SOCStart float64
	SOCEnd   float64

	Cost    float64
	CumCost float64
}

// Result is the outcome of one simulation run. It is owned by the caller.
type Result struct {
	Policy      string
	CapacityKWh float64

	Ledger []LedgerRow

	ImportHistory []float64
	ExportHistory []float64
	SOCHistory    []float64

	ImportKWh   float64
	ExportKWh   float64
	StoredKWh   float64
	ReleasedKWh float64

	ImportCost    float64
	ExportRevenue float64
	// EnergyCost is ImportCost - ExportRevenue over Period.
	EnergyCost float64

	Period   time.Duration
	FinalSOC float64
}

// AnnualizedEnergyCost scales EnergyCost from the simulated period to a year.
func (r *Result) AnnualizedEnergyCost() float64 {
	days := r.Period.Hours() / 24
	if days <= 0 {
		return 0
	}
	return r.EnergyCost / days * 365
}

// Cycles counts full-capacity equivalents absorbed by the battery.
func (r *Result) Cycles() float64 {
	if r.CapacityKWh <= 0 {
		return 0
	}
	return r.StoredKWh / r.CapacityKWh
}
