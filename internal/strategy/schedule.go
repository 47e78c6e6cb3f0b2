package strategy

import (
	"fmt"
	"strings"

	"battery-sizing/internal/model"
)

// ScheduleParams describes a daily time-of-use policy:
// - Store surplus during [ChargeStart, ChargeEnd), or all day if both are empty
// - Cover deficits during [DischargeStart, DischargeEnd)
// - Otherwise idle
//
// Times are "HH:MM" in the location of each interval timestamp. Windows whose
// start is after their end wrap across midnight.
type ScheduleParams struct {
	ChargeStart    string
	ChargeEnd      string
	DischargeStart string
	DischargeEnd   string
}

func DefaultScheduleParams() ScheduleParams {
	return ScheduleParams{DischargeStart: "17:00", DischargeEnd: "23:00"}
}

// Schedule is a parsed ScheduleParams. Build it with NewSchedule.
type Schedule struct {
	Params ScheduleParams

	chargeAllDay bool
	csMins       int
	ceMins       int
	dsMins       int
	deMins       int
}

func NewSchedule(p ScheduleParams) (Schedule, error) {
	s := Schedule{Params: p}
	var err error
	if s.dsMins, err = parseHHMM(p.DischargeStart); err != nil {
		return Schedule{}, &model.ConfigError{Field: "policy.params.discharge_start", Reason: err.Error()}
	}
	if s.deMins, err = parseHHMM(p.DischargeEnd); err != nil {
		return Schedule{}, &model.ConfigError{Field: "policy.params.discharge_end", Reason: err.Error()}
	}

	if strings.TrimSpace(p.ChargeStart) == "" && strings.TrimSpace(p.ChargeEnd) == "" {
		s.chargeAllDay = true
		return s, nil
	}
	if s.csMins, err = parseHHMM(p.ChargeStart); err != nil {
		return Schedule{}, &model.ConfigError{Field: "policy.params.charge_start", Reason: err.Error()}
	}
	if s.ceMins, err = parseHHMM(p.ChargeEnd); err != nil {
		return Schedule{}, &model.ConfigError{Field: "policy.params.charge_end", Reason: err.Error()}
	}
	return s, nil
}

func (Schedule) Name() string { return "schedule" }

func (s Schedule) Release(ctx Context, deficitKWh float64) float64 {
	if !inWindow(minuteOfDay(ctx), s.dsMins, s.deMins) {
		return 0
	}
	return ctx.Battery.Release(deficitKWh, ctx.Duration)
}

func (s Schedule) Store(ctx Context, surplusKWh float64) float64 {
	if !s.chargeAllDay && !inWindow(minuteOfDay(ctx), s.csMins, s.ceMins) {
		return 0
	}
	return ctx.Battery.Store(surplusKWh, ctx.Duration)
}

func (s Schedule) ForRun(*model.Series, model.BatteryParams, model.Prices) (Policy, error) {
	return s, nil
}

func minuteOfDay(ctx Context) int {
	ts := ctx.Interval.Timestamp
	return ts.Hour()*60 + ts.Minute()
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// inWindow checks whether tMins is in [start, end) on a 24h clock.
// start == end is an empty window; start > end wraps across midnight.
func inWindow(tMins, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return tMins >= start && tMins < end
	}
	return tMins >= start || tMins < end
}
