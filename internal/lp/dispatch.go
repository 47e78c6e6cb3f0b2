// Package lp formulates battery dispatch without reserve rules as a linear
// program over per-interval decision variables and solves it with the simplex
// method. The solution has perfect foresight, so its cost is a lower bound for
// any causal policy running the same battery on the same series.
package lp

import (
	"errors"
	"fmt"
	"math"

	"battery-sizing/internal/model"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// DefaultMaxIntervals bounds the problem size. The tableau is dense, so
// memory grows with the square of the interval count and time faster still.
const DefaultMaxIntervals = 48

// ErrTooManyIntervals is returned when a series exceeds Options.MaxIntervals.
var ErrTooManyIntervals = errors.New("series too long for lp dispatch")

// Per-interval variable layout.
const (
	varImport = iota
	varExport
	varCharge
	varDischarge
	varSOC
	varsPerInterval
)

// throughputPenalty breaks ties between plans of equal cost in favour of the
// one moving less energy, so a lossless battery does not cycle needlessly.
const throughputPenalty = 1e-6

type Options struct {
	MaxIntervals int
	Tolerance    float64
}

func (o *Options) setDefaults() {
	if o.MaxIntervals <= 0 {
		o.MaxIntervals = DefaultMaxIntervals
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-9
	}
}

// Plan is the optimal dispatch. Charge is energy taken from the household
// side into the battery, Discharge is energy withdrawn from the battery; both
// follow the same efficiency convention as model.Battery.
type Plan struct {
	Import    []float64
	Export    []float64
	Charge    []float64
	Discharge []float64
	SOC       []float64
	// Cost is import cost minus export revenue over the series.
	Cost float64
}

// solveStandard points to the simplex call. It can be overridden in tests to
// simulate solver failures.
var solveStandard = func(c []float64, a *mat.Dense, b []float64, tol float64) ([]float64, error) {
	_, x, err := lp.Simplex(c, a, b, tol, nil)
	return x, err
}

// Solve builds and solves the dispatch LP:
//
//	minimize   sum(p_imp*i_t - p_exp*e_t)
//	subject to i_t - e_t + eff*d_t - c_t = r_t
//	           s_t = s_{t-1} + eff*c_t - d_t,  s_{-1} = soc0*cap
//	           0 <= s_t <= cap, 0 <= c_t, d_t <= c_rate*cap*h_t
//	           i_t, e_t >= 0
func Solve(series *model.Series, params model.BatteryParams, prices model.Prices, opts Options) (*Plan, error) {
	if series == nil || series.Len() == 0 {
		return nil, model.ErrInsufficientData
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	opts.setDefaults()

	T := series.Len()
	if T > opts.MaxIntervals {
		return nil, fmt.Errorf("%w: %d intervals, limit %d", ErrTooManyIntervals, T, opts.MaxIntervals)
	}

	// Standard form: x >= 0 holds implicitly, each ceiling gets a slack.
	n := T * varsPerInterval
	rows := 2*T + 3*T
	cols := n + 3*T
	idx := func(t, v int) int { return t*varsPerInterval + v }
	eff := params.Efficiency
	capKWh := params.CapacityKWh

	c := make([]float64, cols)
	for t := 0; t < T; t++ {
		c[idx(t, varImport)] = prices.ImportPerKWh
		c[idx(t, varExport)] = -prices.ExportPerKWh
		c[idx(t, varCharge)] = throughputPenalty
		c[idx(t, varDischarge)] = throughputPenalty
	}

	A := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	for t := 0; t < T; t++ {
		// Energy balance.
		row := 2 * t
		A.Set(row, idx(t, varImport), 1)
		A.Set(row, idx(t, varExport), -1)
		A.Set(row, idx(t, varDischarge), eff)
		A.Set(row, idx(t, varCharge), -1)
		b[row] = series.At(t).RemainingKWh

		// SOC dynamics.
		row++
		A.Set(row, idx(t, varSOC), 1)
		A.Set(row, idx(t, varCharge), -eff)
		A.Set(row, idx(t, varDischarge), 1)
		if t > 0 {
			A.Set(row, idx(t-1, varSOC), -1)
		} else {
			b[row] = params.InitialSOC * capKWh
		}

		// Ceilings on SOC, charge and discharge.
		rate := params.CRate * capKWh * series.Duration(t).Hours()
		bound := 2*T + 3*t
		for k, v := range []int{varSOC, varCharge, varDischarge} {
			A.Set(bound+k, idx(t, v), 1)
			A.Set(bound+k, n+3*t+k, 1)
		}
		b[bound] = capKWh
		b[bound+1] = rate
		b[bound+2] = rate
	}
	flipNegativeRows(A, b)

	sol, err := solveStandard(c, A, b, opts.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("simplex: %w", err)
	}
	if len(sol) < n {
		return nil, fmt.Errorf("simplex: solution has %d variables, want at least %d", len(sol), n)
	}

	plan := &Plan{
		Import:    make([]float64, T),
		Export:    make([]float64, T),
		Charge:    make([]float64, T),
		Discharge: make([]float64, T),
		SOC:       make([]float64, T),
	}
	x := func(t, v int) float64 { return math.Max(0, sol[idx(t, v)]) }
	for t := 0; t < T; t++ {
		plan.Import[t] = x(t, varImport)
		plan.Export[t] = x(t, varExport)
		plan.Charge[t] = x(t, varCharge)
		plan.Discharge[t] = x(t, varDischarge)
		if capKWh > 0 {
			plan.SOC[t] = math.Min(1, x(t, varSOC)/capKWh)
		}
		plan.Cost += plan.Import[t]*prices.ImportPerKWh - plan.Export[t]*prices.ExportPerKWh
	}
	return plan, nil
}

// flipNegativeRows negates rows with a negative right-hand side so the
// simplex phase one starts from b >= 0.
func flipNegativeRows(a *mat.Dense, b []float64) {
	_, cols := a.Dims()
	for i, v := range b {
		if v >= 0 {
			continue
		}
		b[i] = -v
		for j := 0; j < cols; j++ {
			if e := a.At(i, j); e != 0 {
				a.Set(i, j, -e)
			}
		}
	}
}
