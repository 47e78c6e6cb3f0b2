package handlers

import (
	"context"
	"errors"
	"net/http"

	"battery-sizing/internal/api/models"
	"battery-sizing/internal/config"
	"battery-sizing/internal/data"
	"battery-sizing/internal/lp"
	"battery-sizing/internal/metrics"
	"battery-sizing/internal/model"
	"battery-sizing/internal/optimize"
	"battery-sizing/internal/simulate"
	"battery-sizing/internal/strategy"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Env is what the handlers share: the loaded configuration supplies defaults
// for every request field left unset.
type Env struct {
	Config  *config.Config
	Store   *data.SeriesStore
	Metrics metrics.Sink
	Log     zerolog.Logger
}

// run is a fully resolved request: everything the engine needs.
type run struct {
	series  *model.Series
	params  model.BatteryParams
	prices  model.Prices
	factory strategy.Factory
}

// resolveSeries loads the stored series or builds the inline one. Stored
// series were windowed on upload, so only the request bounds apply to them;
// inline intervals also get the configured series.from/to.
func (e *Env) resolveSeries(src models.SeriesSource) (*model.Series, error) {
	loc := e.Config.Series.Location()
	if src.SeriesID != "" {
		entry, err := e.Store.Get(src.SeriesID)
		if err != nil {
			return nil, err
		}
		if src.From == "" && src.To == "" {
			return entry.Series, nil
		}
		w, err := data.ParseWindow(src.From, src.To, loc)
		if err != nil {
			return nil, err
		}
		return model.NewSeries(w.Apply(entry.Series.Intervals()), model.WithDefaultStep(e.Config.Series.DefaultStep()))
	}
	if len(src.Intervals) == 0 {
		return nil, model.ErrInsufficientData
	}
	w, err := e.window(src.From, src.To)
	if err != nil {
		return nil, err
	}
	return model.NewSeries(
		w.Apply(data.InLocation(src.Intervals, loc)),
		model.WithDefaultStep(e.Config.Series.DefaultStep()),
	)
}

// window layers request bounds over the configured series.from/to.
func (e *Env) window(from, to string) (data.Window, error) {
	s := e.Config.Series
	if from != "" {
		s.From = from
	}
	if to != "" {
		s.To = to
	}
	return data.ParseWindow(s.From, s.To, s.Location())
}

// resolveRun layers the request over the configured defaults: server battery,
// then the named preset, then inline battery fields.
func (e *Env) resolveRun(src models.SeriesSource, rc models.RunConfig) (*run, error) {
	series, err := e.resolveSeries(src)
	if err != nil {
		return nil, err
	}

	battery := e.Config.Battery
	if rc.BatteryFile != "" {
		preset, err := config.ResolveBatteryPreset(e.Config.Server.BatteryDir, rc.BatteryFile)
		if err != nil {
			return nil, &model.ConfigError{Field: "battery_file", Reason: "unknown preset " + rc.BatteryFile}
		}
		battery = config.MergeBattery(battery, preset)
	}
	battery = config.MergeBattery(battery, rc.Battery)
	params := battery.ToModelParams()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	prices := e.Config.Prices
	if rc.Prices.ImportPerKWh != nil {
		prices.ImportPerKWh = rc.Prices.ImportPerKWh
	}
	if rc.Prices.ExportPerKWh != nil {
		prices.ExportPerKWh = rc.Prices.ExportPerKWh
	}
	mp := prices.ToModel()
	if err := mp.Validate(); err != nil {
		return nil, err
	}

	policy := e.Config.Policy
	if rc.Policy != nil {
		policy = config.PolicyConfig{Name: rc.Policy.Name, Params: rc.Policy.Params}
	}
	factory, err := policy.Factory()
	if err != nil {
		return nil, err
	}
	return &run{series: series, params: params, prices: mp, factory: factory}, nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}

// writeError maps domain errors onto status codes and stable error codes.
func (e *Env) writeError(c *gin.Context, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		e.Log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, models.ErrorResponse{Error: detail})
}

func classify(err error) (int, models.ErrorDetail) {
	detail := models.ErrorDetail{Message: err.Error(), Details: map[string]interface{}{}}

	var evalErr *optimize.EvaluationError
	if errors.As(err, &evalErr) {
		detail.Details["grid_index"] = evalErr.Index
		detail.Details["capacity_kwh"] = evalErr.CapacityKWh
	}
	var cfgErr *model.ConfigError
	if errors.As(err, &cfgErr) {
		detail.Details["field"] = cfgErr.Field
	}
	var inErr *model.InputError
	if errors.As(err, &inErr) {
		detail.Details["interval"] = inErr.Index
	}
	var invErr *model.InvariantError
	if errors.As(err, &invErr) {
		detail.Details["interval"] = invErr.Index
		detail.Details["capacity_kwh"] = invErr.CapacityKWh
	}
	if len(detail.Details) == 0 {
		detail.Details = nil
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, data.ErrSeriesNotFound):
		status, detail.Code = http.StatusNotFound, "SERIES_NOT_FOUND"
	case errors.Is(err, model.ErrInsufficientData):
		status, detail.Code = http.StatusUnprocessableEntity, "INSUFFICIENT_DATA"
	case errors.Is(err, lp.ErrTooManyIntervals):
		status, detail.Code = http.StatusUnprocessableEntity, "SERIES_TOO_LONG"
	case errors.Is(err, model.ErrInvalidInput):
		status, detail.Code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, model.ErrInvalidConfig):
		status, detail.Code = http.StatusBadRequest, "INVALID_CONFIG"
	case errors.Is(err, model.ErrInvariant):
		detail.Code = "INVARIANT_VIOLATION"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, detail.Code = http.StatusServiceUnavailable, "CANCELLED"
	default:
		detail.Code = "INTERNAL_ERROR"
	}
	return status, detail
}

func summarize(res *simulate.Result, series *model.Series, params model.BatteryParams) models.SimulationSummary {
	return models.SimulationSummary{
		Policy:         res.Policy,
		CapacityKWh:    res.CapacityKWh,
		TotalIntervals: series.Len(),
		Window: models.TimeWindow{
			Start: series.Start(),
			End:   series.End(),
		},
		PeriodDays:           res.Period.Hours() / 24,
		ImportKWh:            res.ImportKWh,
		ExportKWh:            res.ExportKWh,
		StoredKWh:            res.StoredKWh,
		ReleasedKWh:          res.ReleasedKWh,
		ImportCost:           res.ImportCost,
		ExportRevenue:        res.ExportRevenue,
		EnergyCost:           res.EnergyCost,
		AnnualizedEnergyCost: res.AnnualizedEnergyCost(),
		AnnualizedBattery:    params.WithCapacity(res.CapacityKWh).AnnualizedCost(),
		Cycles:               res.Cycles(),
		FinalSOC:             res.FinalSOC,
	}
}

func ledgerRows(ledger []simulate.LedgerRow) []models.LedgerRow {
	rows := make([]models.LedgerRow, len(ledger))
	for i, r := range ledger {
		rows[i] = models.LedgerRow{
			Index:           r.Index,
			Timestamp:       r.Timestamp,
			DurationMinutes: r.Duration.Minutes(),
			RemainingKWh:    r.RemainingKWh,
			Action:          string(r.Action),
			StoredKWh:       r.StoredKWh,
			ReleasedKWh:     r.ReleasedKWh,
			ImportKWh:       r.ImportKWh,
			ExportKWh:       r.ExportKWh,
			SOCStart:        r.SOCStart,
			SOCEnd:          r.SOCEnd,
			Cost:            r.Cost,
			CumCost:         r.CumCost,
		}
	}
	return rows
}
