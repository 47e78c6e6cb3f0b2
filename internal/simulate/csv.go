package simulate

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"
)

// WriteLedgerCSV writes the ledger to path, creating or truncating it.
func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteLedger(f, ledger)
}

func WriteLedger(out io.Writer, ledger []LedgerRow) error {
	w := csv.NewWriter(out)

	header := []string{
		"index",
		"timestamp",
		"duration_minutes",
		"remaining_kwh",
		"action",
		"stored_kwh",
		"released_kwh",
		"import_kwh",
		"export_kwh",
		"soc_start",
		"soc_end",
		"cost",
		"cum_cost",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			fmtTime(r.Timestamp),
			fmtFloat(r.Duration.Minutes()),
			fmtFloat(r.RemainingKWh),
			string(r.Action),
			fmtFloat(r.StoredKWh),
			fmtFloat(r.ReleasedKWh),
			fmtFloat(r.ImportKWh),
			fmtFloat(r.ExportKWh),
			fmtFloat(r.SOCStart),
			fmtFloat(r.SOCEnd),
			fmtFloat(r.Cost),
			fmtFloat(r.CumCost),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
