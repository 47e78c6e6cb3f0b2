package analysis

import (
	"sort"
	"time"

	"battery-sizing/internal/model"
)

// DailyBalance aggregates one calendar day in the timestamps' location.
type DailyBalance struct {
	Date       time.Time `json:"date"`
	DeficitKWh float64   `json:"deficit_kwh"`
	SurplusKWh float64   `json:"surplus_kwh"`
	NetKWh     float64   `json:"net_kwh"`
	// ShiftableKWh is the smaller of surplus and deficit: an upper bound on
	// what a battery emptied daily could save that day.
	ShiftableKWh float64 `json:"shiftable_kwh"`
}

// Days groups the series by calendar day. The series is sorted, so one pass
// suffices.
func Days(s *model.Series) []DailyBalance {
	if s == nil || s.Len() == 0 {
		return nil
	}
	var out []DailyBalance
	var cur *DailyBalance
	for i := 0; i < s.Len(); i++ {
		it := s.At(i)
		ts := it.Timestamp
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
		if cur == nil || !cur.Date.Equal(day) {
			out = append(out, DailyBalance{Date: day})
			cur = &out[len(out)-1]
		}
		if it.RemainingKWh > 0 {
			cur.DeficitKWh += it.RemainingKWh
		} else {
			cur.SurplusKWh -= it.RemainingKWh
		}
	}
	for i := range out {
		d := &out[i]
		d.NetKWh = d.DeficitKWh - d.SurplusKWh
		d.ShiftableKWh = min(d.DeficitKWh, d.SurplusKWh)
	}
	return out
}

// RankDays returns a copy of days sorted by shiftable energy, largest first.
// Ties keep calendar order.
func RankDays(days []DailyBalance) []DailyBalance {
	out := make([]DailyBalance, len(days))
	copy(out, days)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ShiftableKWh > out[j].ShiftableKWh
	})
	return out
}
