package optimize

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCurve writes one row per grid point, annualized, marking the optimum.
func WriteCurve(out io.Writer, res *Result) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{
		"capacity_kwh",
		"energy_cost",
		"battery_cost",
		"total_cost",
		"savings",
		"optimal",
	}); err != nil {
		return err
	}
	for i, c := range res.Capacities {
		row := []string{
			fmtFloat(c),
			fmtFloat(res.AnnualizedEnergyCost[i]),
			fmtFloat(res.BatteryCost[i]),
			fmtFloat(res.TotalCost[i]),
			fmtFloat(res.Savings[i]),
			strconv.FormatBool(i == res.OptimalIndex),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 4, 64)
}
