package handlers

import (
	"net/http"

	"battery-sizing/internal/api/models"
	"battery-sizing/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// BatteryHandler handles battery-related requests
type BatteryHandler struct {
	batteryDir string
	log        zerolog.Logger
}

// NewBatteryHandler creates a new battery handler serving presets from dir
func NewBatteryHandler(dir string, log zerolog.Logger) *BatteryHandler {
	return &BatteryHandler{batteryDir: dir, log: log}
}

// ListBatteries handles GET /api/v1/batteries
func (h *BatteryHandler) ListBatteries(c *gin.Context) {
	batteries := []models.BatteryInfo{}

	presets, errs, err := config.ListBatteryPresets(h.batteryDir)
	if err != nil {
		// A missing preset directory is not fatal, the list is just empty.
		h.log.Warn().Err(err).Str("dir", h.batteryDir).Msg("battery directory unreadable")
		c.JSON(http.StatusOK, gin.H{"batteries": batteries})
		return
	}
	for _, e := range errs {
		h.log.Warn().Err(e).Msg("skipping battery preset")
	}

	for _, p := range presets {
		params := p.Battery.ToModelParams()
		batteries = append(batteries, models.BatteryInfo{
			ID:   p.ID,
			Name: p.Battery.Name,
			File: p.File,
			Specs: models.BatterySpecs{
				CapacityKWh:    params.CapacityKWh,
				Efficiency:     params.Efficiency,
				CRate:          params.CRate,
				AnnualizedCost: params.AnnualizedCost(),
			},
		})
	}
	h.log.Debug().Int("count", len(batteries)).Msg("listed battery presets")
	c.JSON(http.StatusOK, gin.H{"batteries": batteries})
}
