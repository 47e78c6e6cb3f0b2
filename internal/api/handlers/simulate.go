package handlers

import (
	"net/http"

	"battery-sizing/internal/api/models"
	"battery-sizing/internal/model"
	"battery-sizing/internal/simulate"

	"github.com/gin-gonic/gin"
)

// SimulateHandler runs one policy on one battery
type SimulateHandler struct {
	env *Env
}

func NewSimulateHandler(env *Env) *SimulateHandler {
	return &SimulateHandler{env: env}
}

// Simulate handles POST /api/v1/simulate
func (h *SimulateHandler) Simulate(c *gin.Context) {
	var req models.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r, err := h.env.resolveRun(req.SeriesSource, req.Config)
	if err != nil {
		h.env.writeError(c, err)
		return
	}
	policy, err := r.factory.ForRun(r.series, r.params, r.prices)
	if err != nil {
		h.env.writeError(c, err)
		return
	}
	batt, err := model.NewBattery(r.params)
	if err != nil {
		h.env.writeError(c, err)
		return
	}

	engine := &simulate.Engine{Ledger: req.Options.IncludeLedger}
	res, err := engine.Run(r.series, batt, policy, r.prices)
	if err != nil {
		h.env.writeError(c, err)
		return
	}

	resp := models.SimulateResponse{Summary: summarize(res, r.series, r.params)}
	if req.Options.IncludeLedger {
		resp.Ledger = ledgerRows(res.Ledger)
	}
	c.JSON(http.StatusOK, resp)
}
