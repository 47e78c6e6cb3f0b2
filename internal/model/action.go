package model

// Action is a human-friendly operating mode for a timestep.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// ActionFromFlows derives the mode from the energy that went into and out of
// the battery during an interval. At most one of the two is non-zero.
func ActionFromFlows(storedKWh, releasedKWh float64) Action {
	switch {
	case storedKWh > 0:
		return ActionCharging
	case releasedKWh > 0:
		return ActionDischarging
	default:
		return ActionIdle
	}
}
