package models

import (
	"time"

	"battery-sizing/internal/analysis"
)

// SeriesResponse describes a stored series
type SeriesResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at,omitempty"`
	Profile   analysis.Profile `json:"profile"`
}

// DaysResponse lists daily balances, most shiftable first
type DaysResponse struct {
	SeriesID string     `json:"series_id"`
	Days     []DayEntry `json:"days"`
}

type DayEntry struct {
	Rank         int     `json:"rank"`
	Date         string  `json:"date"` // YYYY-MM-DD
	DeficitKWh   float64 `json:"deficit_kwh"`
	SurplusKWh   float64 `json:"surplus_kwh"`
	NetKWh       float64 `json:"net_kwh"`
	ShiftableKWh float64 `json:"shiftable_kwh"`
}

// SimulateResponse represents the response from a simulation run
type SimulateResponse struct {
	Summary SimulationSummary `json:"summary"`
	Ledger  []LedgerRow       `json:"ledger,omitempty"`
}

// SimulationSummary contains aggregated simulation results
type SimulationSummary struct {
	Policy         string     `json:"policy"`
	CapacityKWh    float64    `json:"capacity_kwh"`
	TotalIntervals int        `json:"total_intervals"`
	Window         TimeWindow `json:"window"`
	PeriodDays     float64    `json:"period_days"`

	ImportKWh   float64 `json:"import_kwh"`
	ExportKWh   float64 `json:"export_kwh"`
	StoredKWh   float64 `json:"stored_kwh"`
	ReleasedKWh float64 `json:"released_kwh"`

	ImportCost           float64 `json:"import_cost"`
	ExportRevenue        float64 `json:"export_revenue"`
	EnergyCost           float64 `json:"energy_cost"`
	AnnualizedEnergyCost float64 `json:"annualized_energy_cost"`
	AnnualizedBattery    float64 `json:"annualized_battery_cost"`

	Cycles   float64 `json:"cycles"`
	FinalSOC float64 `json:"final_soc"`
}

// TimeWindow represents a time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LedgerRow represents one interval in the simulation ledger
type LedgerRow struct {
	Index           int       `json:"index"`
	Timestamp       time.Time `json:"timestamp"`
	DurationMinutes float64   `json:"duration_minutes"`
	RemainingKWh    float64   `json:"remaining_kwh"`
	Action          string    `json:"action"` // "CHARGING", "DISCHARGING", "IDLE"
	StoredKWh       float64   `json:"stored_kwh"`
	ReleasedKWh     float64   `json:"released_kwh"`
	ImportKWh       float64   `json:"import_kwh"`
	ExportKWh       float64   `json:"export_kwh"`
	SOCStart        float64   `json:"soc_start"`
	SOCEnd          float64   `json:"soc_end"`
	Cost            float64   `json:"cost"`
	CumCost         float64   `json:"cum_cost"`
}

// OptimizeResponse carries the cost curve and the optimum
type OptimizeResponse struct {
	Policy             string       `json:"policy"`
	OptimalCapacityKWh float64      `json:"optimal_capacity_kwh"`
	OptimalSavings     float64      `json:"optimal_savings"`
	BaselineCost       float64      `json:"baseline_cost"`
	Curve              []CurvePoint `json:"curve"`
	// Optimal is the simulation at the optimal capacity
	Optimal SimulateResponse `json:"optimal"`
}

// CurvePoint is one grid point of the sweep (annualized figures)
type CurvePoint struct {
	CapacityKWh float64 `json:"capacity_kwh"`
	EnergyCost  float64 `json:"energy_cost"`
	BatteryCost float64 `json:"battery_cost"`
	TotalCost   float64 `json:"total_cost"`
	Savings     float64 `json:"savings"`
}

// BatteryInfo represents information about a battery preset
type BatteryInfo struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	File  string       `json:"file"`
	Specs BatterySpecs `json:"specs"`
}

// BatterySpecs contains battery specifications
type BatterySpecs struct {
	CapacityKWh    float64 `json:"capacity_kwh"`
	Efficiency     float64 `json:"efficiency"`
	CRate          float64 `json:"c_rate"`
	AnnualizedCost float64 `json:"annualized_cost"`
}

// PolicyInfo represents information about a dispatch policy
type PolicyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a policy parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Default     interface{} `json:"default"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
