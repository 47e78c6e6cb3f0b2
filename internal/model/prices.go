package model

import "math"

// Prices are the flat household tariffs in currency per kWh.
type Prices struct {
	ImportPerKWh float64
	ExportPerKWh float64
}

// DefaultPrices are the Flemish residential figures the tool was built around.
func DefaultPrices() Prices {
	return Prices{ImportPerKWh: 0.35, ExportPerKWh: 0.04}
}

func (p Prices) Validate() error {
	if math.IsNaN(p.ImportPerKWh) || math.IsInf(p.ImportPerKWh, 0) {
		return &ConfigError{Field: "import_per_kwh", Reason: "must be finite"}
	}
	if math.IsNaN(p.ExportPerKWh) || math.IsInf(p.ExportPerKWh, 0) {
		return &ConfigError{Field: "export_per_kwh", Reason: "must be finite"}
	}
	return nil
}
