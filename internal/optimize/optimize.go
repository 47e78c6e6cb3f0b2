// Package optimize searches for the battery capacity with the lowest total
// annualized cost by simulating every point of a uniform capacity grid.
//
// The cost surface has kinks from rate limits and reserve thresholds, so the
// search is a plain grid evaluation rather than a gradient method. Grid points
// are independent: each gets a fresh battery and shares only the read-only
// series, which lets them run on a bounded worker pool.
package optimize

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"battery-sizing/internal/metrics"
	"battery-sizing/internal/model"
	"battery-sizing/internal/simulate"
	"battery-sizing/internal/strategy"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

const DefaultGridPoints = 50

type Options struct {
	MaxCapacityKWh float64
	// GridPoints includes both ends of [0, MaxCapacityKWh] and must be at
	// least 2. Callers fall back to DefaultGridPoints when unset.
	GridPoints int
	// Workers bounds parallel evaluations. Zero means GOMAXPROCS.
	Workers int
	// Policy defaults to the reserve-aware policy.
	Policy  strategy.Factory
	Metrics metrics.Sink
	Logger  *zerolog.Logger
}

// Result is the cost curve over the grid and the chosen optimum.
type Result struct {
	Policy string

	Capacities           []float64
	AnnualizedEnergyCost []float64
	BatteryCost          []float64
	TotalCost            []float64
	// Savings is relative to the zero-capacity baseline.
	Savings []float64

	OptimalIndex       int
	OptimalCapacityKWh float64
	OptimalSavings     float64
	BaselineCost       float64

	// Optimal is the full simulation at the optimal capacity, ledger included.
	Optimal *simulate.Result
}

// EvaluationError reports the grid point that aborted a sweep.
type EvaluationError struct {
	Index       int
	CapacityKWh float64
	Err         error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("grid point %d (%.4f kWh): %v", e.Index, e.CapacityKWh, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

func (o *Options) setDefaults() {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Policy == nil {
		o.Policy = strategy.ReserveAware{Params: strategy.DefaultReserveParams()}
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NopSink{}
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
}

func (o Options) validate() error {
	if o.GridPoints < 2 {
		return &model.ConfigError{Field: "optimizer.grid_points", Reason: "must be >= 2"}
	}
	if !(o.MaxCapacityKWh > 0) || math.IsInf(o.MaxCapacityKWh, 0) {
		return &model.ConfigError{Field: "optimizer.max_capacity_kwh", Reason: "must be a positive number"}
	}
	return nil
}

// Run evaluates the grid and returns the capacity with the lowest total
// annualized cost; ties go to the smaller capacity. params supplies everything
// but the capacity. The sweep stops at the first failing grid point or when
// ctx is cancelled, which is checked before each point.
func Run(ctx context.Context, series *model.Series, prices model.Prices, params model.BatteryParams, opts Options) (*Result, error) {
	if series == nil || series.Len() == 0 {
		return nil, model.ErrInsufficientData
	}
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := params.WithCapacity(opts.MaxCapacityKWh).Validate(); err != nil {
		return nil, err
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}

	n := opts.GridPoints
	res := &Result{
		Policy:               opts.Policy.Name(),
		Capacities:           floats.Span(make([]float64, n), 0, opts.MaxCapacityKWh),
		AnnualizedEnergyCost: make([]float64, n),
		BatteryCost:          make([]float64, n),
		TotalCost:            make([]float64, n),
		Savings:              make([]float64, n),
	}
	log := opts.Logger.With().Str("policy", res.Policy).Logger()
	log.Debug().
		Int("intervals", series.Len()).
		Int("grid_points", n).
		Float64("max_capacity_kwh", opts.MaxCapacityKWh).
		Int("workers", opts.Workers).
		Msg("capacity sweep started")
	started := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range res.Capacities {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return evaluate(series, prices, params, opts, res, i)
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("capacity sweep aborted: %w", ctxErr)
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("capacity sweep aborted: %w", err)
	}

	best := 0
	for i, total := range res.TotalCost {
		if total < res.TotalCost[best] {
			best = i
		}
	}
	res.BaselineCost = res.TotalCost[0]
	for i, total := range res.TotalCost {
		res.Savings[i] = res.BaselineCost - total
	}
	res.OptimalIndex = best
	res.OptimalCapacityKWh = res.Capacities[best]
	res.OptimalSavings = res.Savings[best]

	optimal, err := simulateAt(simulate.New(), series, prices, params.WithCapacity(res.OptimalCapacityKWh), opts.Policy)
	if err != nil {
		return nil, &EvaluationError{Index: best, CapacityKWh: res.OptimalCapacityKWh, Err: err}
	}
	res.Optimal = optimal

	elapsed := time.Since(started)
	opts.Metrics.RecordSweep(metrics.Sweep{
		Policy:             res.Policy,
		Points:             n,
		Duration:           elapsed,
		OptimalCapacityKWh: res.OptimalCapacityKWh,
	})
	log.Info().
		Float64("optimal_capacity_kwh", res.OptimalCapacityKWh).
		Float64("optimal_savings", res.OptimalSavings).
		Float64("baseline_cost", res.BaselineCost).
		Dur("elapsed", elapsed).
		Msg("capacity sweep finished")
	return res, nil
}

// evaluate fills slot i of res. Slots are disjoint so no locking is needed.
func evaluate(series *model.Series, prices model.Prices, params model.BatteryParams, opts Options, res *Result, i int) error {
	capKWh := res.Capacities[i]
	p := params.WithCapacity(capKWh)

	started := time.Now()
	sim, err := simulateAt(&simulate.Engine{}, series, prices, p, opts.Policy)
	if err != nil {
		return &EvaluationError{Index: i, CapacityKWh: capKWh, Err: err}
	}
	opts.Metrics.RecordEvaluation(metrics.Evaluation{
		Policy:      res.Policy,
		CapacityKWh: capKWh,
		Duration:    time.Since(started),
	})

	res.AnnualizedEnergyCost[i] = sim.AnnualizedEnergyCost()
	res.BatteryCost[i] = p.AnnualizedCost()
	res.TotalCost[i] = res.AnnualizedEnergyCost[i] + res.BatteryCost[i]
	return nil
}

func simulateAt(engine *simulate.Engine, series *model.Series, prices model.Prices, p model.BatteryParams, factory strategy.Factory) (*simulate.Result, error) {
	batt, err := model.NewBattery(p)
	if err != nil {
		return nil, err
	}
	policy, err := factory.ForRun(series, p, prices)
	if err != nil {
		return nil, err
	}
	return engine.Run(series, batt, policy, prices)
}
