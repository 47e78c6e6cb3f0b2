package main

import (
	"fmt"
	"os"
	"path/filepath"

	"battery-sizing/internal/analysis"
	"battery-sizing/internal/optimize"
	"battery-sizing/internal/simulate"

	"github.com/spf13/cobra"
)

var optimizeFlags struct {
	max     float64
	points  int
	workers int
	policy  string
	out     string
	ledger  string
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Sweep battery capacities and report the cheapest",
	RunE:  runOptimize,
}

func init() {
	f := optimizeCmd.Flags()
	f.Float64Var(&optimizeFlags.max, "max", 0, "largest capacity in kWh (default: optimizer.max_capacity_kwh, else sized from the series)")
	f.IntVar(&optimizeFlags.points, "points", 0, "grid points including 0 and max, at least 2 (default: optimizer.grid_points)")
	f.IntVar(&optimizeFlags.workers, "workers", 0, "parallel evaluations (default: optimizer.workers)")
	f.StringVar(&optimizeFlags.policy, "policy", "", "dispatch policy (greedy, reserve, schedule, lp)")
	f.StringVarP(&optimizeFlags.out, "out", "o", "results/curve.csv", "cost curve CSV path")
	f.StringVar(&optimizeFlags.ledger, "ledger", "", "optional ledger CSV for the optimal capacity")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, series, log, err := setup(cmd)
	if err != nil {
		return err
	}
	applyPolicyFlag(cfg, optimizeFlags.policy)
	factory, err := cfg.Policy.Factory()
	if err != nil {
		return err
	}

	opts := optimize.Options{
		MaxCapacityKWh: cfg.Optimizer.MaxCapacityKWh,
		GridPoints:     cfg.Optimizer.GridPoints,
		Workers:        cfg.Optimizer.Workers,
		Policy:         factory,
		Logger:         &log,
	}
	if optimizeFlags.max > 0 {
		opts.MaxCapacityKWh = optimizeFlags.max
	}
	if cmd.Flags().Changed("points") {
		opts.GridPoints = optimizeFlags.points
	}
	if optimizeFlags.workers > 0 {
		opts.Workers = optimizeFlags.workers
	}
	if opts.MaxCapacityKWh == 0 {
		opts.MaxCapacityKWh = analysis.SuggestMaxCapacityKWh(analysis.ComputeProfile(series))
		log.Info().Float64("max_capacity_kwh", opts.MaxCapacityKWh).Msg("sized sweep from series profile")
	}

	res, err := optimize.Run(cmd.Context(), series, cfg.Prices.ToModel(), cfg.Battery.ToModelParams(), opts)
	if err != nil {
		return err
	}

	if err := writeFile(optimizeFlags.out, func(f *os.File) error { return optimize.WriteCurve(f, res) }); err != nil {
		return err
	}
	if optimizeFlags.ledger != "" {
		if err := writeFile(optimizeFlags.ledger, func(f *os.File) error { return simulate.WriteLedger(f, res.Optimal.Ledger) }); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "policy=%s grid=%d points over [0, %.2f] kWh\n", res.Policy, len(res.Capacities), opts.MaxCapacityKWh)
	fmt.Fprintf(w, "baseline cost/yr=%.2f\n", res.BaselineCost)
	fmt.Fprintf(w, "optimal capacity=%.2f kWh total cost/yr=%.2f savings/yr=%.2f\n",
		res.OptimalCapacityKWh, res.TotalCost[res.OptimalIndex], res.OptimalSavings)
	fmt.Fprintf(w, "wrote curve to %s\n", optimizeFlags.out)
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
