package handlers

import (
	"net/http"

	"battery-sizing/internal/api/models"
	"battery-sizing/internal/lp"
	"battery-sizing/internal/strategy"

	"github.com/gin-gonic/gin"
)

// PolicyHandler handles policy-related requests
type PolicyHandler struct{}

// NewPolicyHandler creates a new policy handler
func NewPolicyHandler() *PolicyHandler {
	return &PolicyHandler{}
}

// ListPolicies handles GET /api/v1/policies
func (h *PolicyHandler) ListPolicies(c *gin.Context) {
	reserve := strategy.DefaultReserveParams()
	schedule := strategy.DefaultScheduleParams()

	policies := []models.PolicyInfo{
		{
			Name:        "greedy",
			Description: "Charges from every surplus and discharges into every deficit, as far as capacity and rate allow.",
			Parameters:  []models.ParameterInfo{},
		},
		{
			Name:        "reserve",
			Description: "Keeps the battery's reserve for the current hour and only dips into it for deficits well above the recent average.",
			Parameters: []models.ParameterInfo{
				{
					Name:        "threshold_fraction",
					Type:        "float",
					Description: "Fraction of the trailing mean absolute remaining energy a deficit must exceed to use the reserve",
					Default:     reserve.ThresholdFraction,
				},
				{
					Name:        "window_hours",
					Type:        "float",
					Description: "Length of the trailing window in hours",
					Default:     reserve.Window.Hours(),
				},
			},
		},
		{
			Name:        "schedule",
			Description: "Time-based schedule. Stores surplus inside the charge window and covers deficits inside the discharge window.",
			Parameters: []models.ParameterInfo{
				{
					Name:        "charge_start",
					Type:        "string",
					Description: "Start time for charging (HH:MM format, e.g., '10:00'). Empty charges all day",
					Default:     schedule.ChargeStart,
				},
				{
					Name:        "charge_end",
					Type:        "string",
					Description: "End time for charging (HH:MM format)",
					Default:     schedule.ChargeEnd,
				},
				{
					Name:        "discharge_start",
					Type:        "string",
					Description: "Start time for discharging (HH:MM format, e.g., '17:00')",
					Default:     schedule.DischargeStart,
				},
				{
					Name:        "discharge_end",
					Type:        "string",
					Description: "End time for discharging (HH:MM format)",
					Default:     schedule.DischargeEnd,
				},
			},
		},
		{
			Name:        "lp",
			Description: "Perfect foresight benchmark. Solves the dispatch as a linear program over the whole series, then replays the plan.",
			Parameters: []models.ParameterInfo{
				{
					Name:        "max_intervals",
					Type:        "int",
					Description: "Longest series the solver accepts (higher = slower, memory grows quadratically)",
					Default:     lp.DefaultMaxIntervals,
				},
			},
		},
	}

	c.JSON(http.StatusOK, gin.H{"policies": policies})
}
