package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"battery-sizing/internal/config"
	"battery-sizing/internal/data"
	"battery-sizing/internal/logging"
	"battery-sizing/internal/model"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	dataPath string
	limitN   int
	logLevel string
	fromDate string
	toDate   string
	withPV   bool
	withEV   bool
)

var rootCmd = &cobra.Command{
	Use:   "bsize",
	Short: "Household battery simulation and capacity sizing",
	Long: `bsize replays a metered household energy series through a battery model.

  bsize simulate --data meter.csv --capacity 10 --out results/ledger.csv
  bsize optimize --data meter.csv --max 20 --points 50 --out results/curve.csv
  bsize stats    --data meter.csv --top 10
  bsize stats    --data fluvius.csv --pv --from 2024-07-01 --to 2024-07-07

Series are JSON ([{"timestamp","remaining_kwh"}]) or CSV with a timestamp
column and either remaining or import/export columns (Fluvius exports work).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (optional)")
	rootCmd.PersistentFlags().StringVarP(&dataPath, "data", "d", "", "energy series (.json or .csv)")
	rootCmd.PersistentFlags().IntVarP(&limitN, "limit", "n", 0, "limit to the first N intervals (0=all)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
	rootCmd.PersistentFlags().StringVar(&fromDate, "from", "", "first day or timestamp to keep (default: series.from)")
	rootCmd.PersistentFlags().StringVar(&toDate, "to", "", "last day or timestamp to keep, inclusive (default: series.to)")
	rootCmd.PersistentFlags().BoolVar(&withPV, "pv", false, "keep only meters with (true) or without (false) solar panels")
	rootCmd.PersistentFlags().BoolVar(&withEV, "ev", false, "keep only meters with (true) or without (false) an EV charger")
}

// Execute runs the CLI. Cancelling ctx stops a running sweep.
func Execute(ctx context.Context) error { return rootCmd.ExecuteContext(ctx) }

// setup loads the config and the series shared by every subcommand.
func setup(cmd *cobra.Command) (*config.Config, *model.Series, zerolog.Logger, error) {
	log := logging.New("cli")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, log, fmt.Errorf("load config: %w", err)
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logging.SetLevel(level)

	if strings.TrimSpace(dataPath) == "" {
		return nil, nil, log, fmt.Errorf("--data is required")
	}
	applySeriesFlags(cmd, &cfg.Series)
	opts, err := cfg.Series.CSVOptions()
	if err != nil {
		return nil, nil, log, err
	}
	intervals, err := data.LoadFile(dataPath, opts)
	if err != nil {
		return nil, nil, log, fmt.Errorf("load %s: %w", dataPath, err)
	}
	if limitN > 0 && limitN < len(intervals) {
		intervals = intervals[:limitN]
	}
	series, err := model.NewSeries(
		data.InLocation(intervals, cfg.Series.Location()),
		model.WithDefaultStep(cfg.Series.DefaultStep()),
	)
	if err != nil {
		return nil, nil, log, fmt.Errorf("series %s: %w", filepath.Base(dataPath), err)
	}
	log.Debug().
		Str("data", dataPath).
		Int("intervals", series.Len()).
		Time("start", series.Start()).
		Time("end", series.End()).
		Msg("series loaded")
	return cfg, series, log, nil
}

// applySeriesFlags overrides the series filters with the flags that were set.
func applySeriesFlags(cmd *cobra.Command, s *config.SeriesConfig) {
	flags := cmd.Flags()
	if flags.Changed("from") {
		s.From = fromDate
	}
	if flags.Changed("to") {
		s.To = toDate
	}
	if flags.Changed("pv") {
		v := withPV
		s.PV = &v
	}
	if flags.Changed("ev") {
		v := withEV
		s.EV = &v
	}
}

// applyPolicyFlag lets --policy replace the configured policy. Parameters
// from the config are kept only when the name is unchanged.
func applyPolicyFlag(cfg *config.Config, name string) {
	if name == "" || strings.EqualFold(name, cfg.Policy.Name) {
		return
	}
	cfg.Policy = config.PolicyConfig{Name: name}
}
