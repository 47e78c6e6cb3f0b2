package main

import (
	"fmt"

	"battery-sizing/internal/analysis"

	"github.com/spf13/cobra"
)

var statsTop int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the series and rank days by shiftable energy",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "number of days to list (0=all)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	_, series, _, err := setup(cmd)
	if err != nil {
		return err
	}
	p := analysis.ComputeProfile(series)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "intervals=%d from %s to %s (%.1f days)\n",
		p.Count, p.Start.Format("2006-01-02 15:04"), p.End.Format("2006-01-02 15:04"), p.PeriodDays)
	fmt.Fprintf(w, "import=%.2f kWh export=%.2f kWh net=%.2f kWh\n", p.ImportKWh, p.ExportKWh, p.NetKWh)
	fmt.Fprintf(w, "per interval: mean=%.3f sd=%.3f p05=%.3f p50=%.3f p95=%.3f\n",
		p.MeanKWh, p.StdDevKWh, p.P05KWh, p.P50KWh, p.P95KWh)
	fmt.Fprintf(w, "days net import=%d net export=%d, shiftable/day mean=%.2f max=%.2f kWh\n",
		p.DaysNetImport, p.DaysNetExport, p.MeanDailyShiftableKWh, p.MaxDailyShiftableKWh)
	fmt.Fprintf(w, "suggested sweep max=%.0f kWh\n\n", analysis.SuggestMaxCapacityKWh(p))

	days := analysis.RankDays(analysis.Days(series))
	if statsTop > 0 && statsTop < len(days) {
		days = days[:statsTop]
	}
	fmt.Fprintf(w, "%-4s %-10s %-10s %-10s %-10s %-10s\n", "rank", "date", "deficit", "surplus", "net", "shiftable")
	for i, d := range days {
		fmt.Fprintf(w, "%-4d %-10s %-10.2f %-10.2f %-10.2f %-10.2f\n",
			i+1, d.Date.Format("2006-01-02"), d.DeficitKWh, d.SurplusKWh, d.NetKWh, d.ShiftableKWh)
	}
	return nil
}
