package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"battery-sizing/internal/analysis"
	"battery-sizing/internal/api/models"
	"battery-sizing/internal/data"
	"battery-sizing/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// maxUploadBytes bounds a series upload; a year of quarter-hours is ~35k rows.
const maxUploadBytes = 32 << 20

// SeriesHandler handles uploads of energy series
type SeriesHandler struct {
	env *Env
}

// NewSeriesHandler creates a new series handler
func NewSeriesHandler(env *Env) *SeriesHandler {
	return &SeriesHandler{env: env}
}

// Upload handles POST /api/v1/series.
// JSON bodies carry {"name", "intervals", "from", "to"}; text/csv bodies are
// parsed as a meter export. Query parameters name, ean, pv, ev, from and to
// override the configured series settings.
func (h *SeriesHandler) Upload(c *gin.Context) {
	var (
		name      string
		intervals []model.Interval
		window    models.Window
		err       error
	)
	if err := c.ShouldBindQuery(&window); err != nil {
		badRequest(c, err)
		return
	}
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	if isCSV(c.ContentType()) {
		name = c.Query("name")
		var opts data.CSVOptions
		if opts, err = h.csvOptions(c, window); err == nil {
			intervals, err = data.ReadCSV(body, opts)
		}
	} else {
		var raw []byte
		raw, err = io.ReadAll(body)
		if err != nil {
			badRequest(c, err)
			return
		}
		var req models.SeriesRequest
		if binding.JSON.BindBody(raw, &req) == nil {
			name, intervals = req.Name, req.Intervals
			if req.From != "" {
				window.From = req.From
			}
			if req.To != "" {
				window.To = req.To
			}
		} else {
			// Also accept a bare interval array.
			intervals, err = data.DecodeJSON(bytes.NewReader(raw))
		}
		if err == nil {
			var w data.Window
			if w, err = h.env.window(window.From, window.To); err == nil {
				intervals = w.Apply(data.InLocation(intervals, h.env.Config.Series.Location()))
			}
		}
	}
	if err != nil {
		h.env.writeError(c, err)
		return
	}

	series, err := model.NewSeries(
		data.InLocation(intervals, h.env.Config.Series.Location()),
		model.WithDefaultStep(h.env.Config.Series.DefaultStep()),
	)
	if err != nil {
		h.env.writeError(c, err)
		return
	}
	entry := h.env.Store.Put(name, series)
	h.env.Log.Info().
		Str("series_id", entry.ID).
		Int("intervals", series.Len()).
		Msg("series stored")
	c.JSON(http.StatusCreated, seriesResponse(entry))
}

// Get handles GET /api/v1/series/:id
func (h *SeriesHandler) Get(c *gin.Context) {
	entry, err := h.env.Store.Get(c.Param("id"))
	if err != nil {
		h.env.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, seriesResponse(entry))
}

// Delete handles DELETE /api/v1/series/:id
func (h *SeriesHandler) Delete(c *gin.Context) {
	if err := h.env.Store.Delete(c.Param("id")); err != nil {
		h.env.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Days handles GET /api/v1/series/:id/days
func (h *SeriesHandler) Days(c *gin.Context) {
	req := models.DaysRequest{Limit: 10}
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	entry, err := h.env.Store.Get(c.Param("id"))
	if err != nil {
		h.env.writeError(c, err)
		return
	}

	ranked := analysis.RankDays(analysis.Days(entry.Series))
	if req.Limit > 0 && req.Limit < len(ranked) {
		ranked = ranked[:req.Limit]
	}
	days := make([]models.DayEntry, len(ranked))
	for i, d := range ranked {
		days[i] = models.DayEntry{
			Rank:         i + 1,
			Date:         d.Date.Format("2006-01-02"),
			DeficitKWh:   d.DeficitKWh,
			SurplusKWh:   d.SurplusKWh,
			NetKWh:       d.NetKWh,
			ShiftableKWh: d.ShiftableKWh,
		}
	}
	c.JSON(http.StatusOK, models.DaysResponse{SeriesID: entry.ID, Days: days})
}

func seriesResponse(e data.Entry) models.SeriesResponse {
	return models.SeriesResponse{
		ID:        e.ID,
		Name:      e.Name,
		CreatedAt: e.CreatedAt,
		ExpiresAt: e.ExpiresAt,
		Profile:   analysis.ComputeProfile(e.Series),
	}
}

// csvOptions layers the upload query over the configured series settings.
func (h *SeriesHandler) csvOptions(c *gin.Context, window models.Window) (data.CSVOptions, error) {
	s := h.env.Config.Series
	w, err := h.env.window(window.From, window.To)
	if err != nil {
		return data.CSVOptions{}, err
	}
	opts := data.CSVOptions{
		Location: s.Location(),
		EAN:      c.DefaultQuery("ean", s.EAN),
		PV:       s.PV,
		EV:       s.EV,
		Window:   w,
	}
	for key, dst := range map[string]**bool{"pv": &opts.PV, "ev": &opts.EV} {
		raw, ok := c.GetQuery(key)
		if !ok {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return data.CSVOptions{}, &model.ConfigError{Field: key, Reason: "must be true or false"}
		}
		*dst = &v
	}
	return opts, nil
}

func isCSV(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/csv") || strings.HasPrefix(ct, "text/plain")
}
