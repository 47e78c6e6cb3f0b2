package strategy

import (
	"strconv"
	"strings"
	"time"

	"battery-sizing/internal/lp"
	"battery-sizing/internal/model"
)

// Names lists the policies FromConfig knows about.
func Names() []string { return []string{"greedy", "reserve", "schedule", "lp"} }

// FromConfig builds the named policy factory. Missing params take defaults.
func FromConfig(name string, params map[string]any) (Factory, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "reserve":
		def := DefaultReserveParams()
		r, err := NewReserveAware(ReserveParams{
			ThresholdFraction: mustNum(params, "threshold_fraction", def.ThresholdFraction),
			Window:            time.Duration(mustNum(params, "window_hours", def.Window.Hours()) * float64(time.Hour)),
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case "greedy":
		return Greedy{}, nil
	case "schedule":
		def := DefaultScheduleParams()
		s, err := NewSchedule(ScheduleParams{
			ChargeStart:    mustStr(params, "charge_start", def.ChargeStart),
			ChargeEnd:      mustStr(params, "charge_end", def.ChargeEnd),
			DischargeStart: mustStr(params, "discharge_start", def.DischargeStart),
			DischargeEnd:   mustStr(params, "discharge_end", def.DischargeEnd),
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "lp":
		return LP{Options: lp.Options{
			MaxIntervals: int(mustNum(params, "max_intervals", lp.DefaultMaxIntervals)),
		}}, nil
	default:
		return nil, &model.ConfigError{Field: "policy.name", Reason: "unsupported policy " + name}
	}
}

func mustNum(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key]; ok && v != nil {
		switch x := v.(type) {
		case float64:
			return x
		case float32:
			return float64(x)
		case int:
			return float64(x)
		case int64:
			return float64(x)
		case string:
			// Environment and query overrides arrive as text.
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f
			}
		}
	}
	return def
}

func mustStr(m map[string]any, key string, def string) string {
	if v, ok := m[key]; ok && v != nil {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return def
}
