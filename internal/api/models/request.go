package models

import (
	"battery-sizing/internal/config"
	"battery-sizing/internal/model"
)

// SeriesRequest is the JSON body of POST /api/v1/series. CSV uploads use the
// raw body instead, with name, ean, pv, ev, from and to as query parameters.
type SeriesRequest struct {
	Name      string           `json:"name,omitempty"`
	Intervals []model.Interval `json:"intervals" binding:"required"`
	Window
}

// Window bounds a series by date (2006-01-02) or RFC 3339 timestamp, both
// ends inclusive. Empty fields fall back to the server's series.from/to.
type Window struct {
	From string `json:"from,omitempty" form:"from"`
	To   string `json:"to,omitempty" form:"to"`
}

// SeriesSource names the series to run on: either a stored series_id or
// inline intervals. series_id wins when both are set. From and To narrow
// the series for this request only.
type SeriesSource struct {
	SeriesID  string           `json:"series_id,omitempty"`
	Intervals []model.Interval `json:"intervals,omitempty"`
	From      string           `json:"from,omitempty"`
	To        string           `json:"to,omitempty"`
}

// RunConfig overrides the server defaults for one request. BatteryFile is a
// preset ID from the battery directory, e.g. "home-10kwh".
type RunConfig struct {
	BatteryFile string               `json:"battery_file,omitempty"`
	Battery     config.BatteryConfig `json:"battery,omitempty"`
	Prices      config.PricesConfig  `json:"prices,omitempty"`
	Policy      *PolicyConfig        `json:"policy,omitempty"`
}

// PolicyConfig selects a policy and its parameters
type PolicyConfig struct {
	Name   string                 `json:"name" binding:"required"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// SimulateRequest represents the request body for a single simulation
type SimulateRequest struct {
	SeriesSource
	Config  RunConfig       `json:"config"`
	Options SimulateOptions `json:"options,omitempty"`
}

type SimulateOptions struct {
	IncludeLedger bool `json:"include_ledger,omitempty"` // default: false
}

// OptimizeRequest represents the request body for a capacity sweep
type OptimizeRequest struct {
	SeriesSource
	Config    RunConfig        `json:"config"`
	Optimizer OptimizerOptions `json:"optimizer,omitempty"`
	Options   SimulateOptions  `json:"options,omitempty"`
}

// OptimizerOptions overrides the configured sweep. A zero max capacity keeps
// the server default; grid_points, when present, must be at least 2.
type OptimizerOptions struct {
	MaxCapacityKWh float64 `json:"max_capacity_kwh,omitempty"`
	GridPoints     *int    `json:"grid_points,omitempty"`
}

// DaysRequest holds query parameters for GET /api/v1/series/:id/days
type DaysRequest struct {
	Limit int `form:"limit,omitempty"` // default: 10, 0 or negative = all
}
