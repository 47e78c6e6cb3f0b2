package main

import (
	"fmt"
	"os"
	"path/filepath"

	"battery-sizing/internal/model"
	"battery-sizing/internal/simulate"

	"github.com/spf13/cobra"
)

var simulateFlags struct {
	capacity float64
	policy   string
	out      string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one battery through the series and write the ledger",
	RunE:  runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.Float64Var(&simulateFlags.capacity, "capacity", -1, "battery capacity in kWh (default: battery.capacity_kwh)")
	f.StringVar(&simulateFlags.policy, "policy", "", "dispatch policy (greedy, reserve, schedule, lp)")
	f.StringVarP(&simulateFlags.out, "out", "o", "results/ledger.csv", "ledger CSV path")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, series, log, err := setup(cmd)
	if err != nil {
		return err
	}
	applyPolicyFlag(cfg, simulateFlags.policy)

	params := cfg.Battery.ToModelParams()
	if simulateFlags.capacity >= 0 {
		params = params.WithCapacity(simulateFlags.capacity)
	}
	prices := cfg.Prices.ToModel()
	factory, err := cfg.Policy.Factory()
	if err != nil {
		return err
	}
	policy, err := factory.ForRun(series, params, prices)
	if err != nil {
		return err
	}
	batt, err := model.NewBattery(params)
	if err != nil {
		return err
	}

	res, err := simulate.New().Run(series, batt, policy, prices)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(simulateFlags.out), 0o755); err != nil {
		return err
	}
	if err := simulate.WriteLedgerCSV(simulateFlags.out, res.Ledger); err != nil {
		return err
	}
	log.Info().
		Str("out", simulateFlags.out).
		Int("rows", len(res.Ledger)).
		Msg("ledger written")

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "policy=%s capacity=%.2f kWh period=%.1f days\n", res.Policy, res.CapacityKWh, series.PeriodDays())
	fmt.Fprintf(w, "import=%.2f kWh export=%.2f kWh stored=%.2f kWh released=%.2f kWh cycles=%.1f\n",
		res.ImportKWh, res.ExportKWh, res.StoredKWh, res.ReleasedKWh, res.Cycles())
	fmt.Fprintf(w, "energy cost=%.2f annualized=%.2f battery/yr=%.2f final SOC=%.3f\n",
		res.EnergyCost, res.AnnualizedEnergyCost(), params.AnnualizedCost(), res.FinalSOC)
	return nil
}
