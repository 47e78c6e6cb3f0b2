package handlers

import (
	"net/http"

	"battery-sizing/internal/analysis"
	"battery-sizing/internal/api/models"
	"battery-sizing/internal/optimize"

	"github.com/gin-gonic/gin"
)

// OptimizeHandler sweeps battery capacities for the cheapest total cost
type OptimizeHandler struct {
	env *Env
}

func NewOptimizeHandler(env *Env) *OptimizeHandler {
	return &OptimizeHandler{env: env}
}

// Optimize handles POST /api/v1/optimize.
// The sweep is cancelled when the client goes away.
func (h *OptimizeHandler) Optimize(c *gin.Context) {
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r, err := h.env.resolveRun(req.SeriesSource, req.Config)
	if err != nil {
		h.env.writeError(c, err)
		return
	}

	cfg := h.env.Config.Optimizer
	opts := optimize.Options{
		MaxCapacityKWh: cfg.MaxCapacityKWh,
		GridPoints:     cfg.GridPoints,
		Workers:        cfg.Workers,
		Policy:         r.factory,
		Metrics:        h.env.Metrics,
		Logger:         &h.env.Log,
	}
	if req.Optimizer.MaxCapacityKWh != 0 {
		opts.MaxCapacityKWh = req.Optimizer.MaxCapacityKWh
	}
	if req.Optimizer.GridPoints != nil {
		opts.GridPoints = *req.Optimizer.GridPoints
	}
	if opts.MaxCapacityKWh == 0 {
		opts.MaxCapacityKWh = analysis.SuggestMaxCapacityKWh(analysis.ComputeProfile(r.series))
	}

	res, err := optimize.Run(c.Request.Context(), r.series, r.prices, r.params, opts)
	if err != nil {
		h.env.writeError(c, err)
		return
	}

	curve := make([]models.CurvePoint, len(res.Capacities))
	for i, capKWh := range res.Capacities {
		curve[i] = models.CurvePoint{
			CapacityKWh: capKWh,
			EnergyCost:  res.AnnualizedEnergyCost[i],
			BatteryCost: res.BatteryCost[i],
			TotalCost:   res.TotalCost[i],
			Savings:     res.Savings[i],
		}
	}
	resp := models.OptimizeResponse{
		Policy:             res.Policy,
		OptimalCapacityKWh: res.OptimalCapacityKWh,
		OptimalSavings:     res.OptimalSavings,
		BaselineCost:       res.BaselineCost,
		Curve:              curve,
		Optimal: models.SimulateResponse{
			Summary: summarize(res.Optimal, r.series, r.params),
		},
	}
	if req.Options.IncludeLedger {
		resp.Optimal.Ledger = ledgerRows(res.Optimal.Ledger)
	}
	c.JSON(http.StatusOK, resp)
}
