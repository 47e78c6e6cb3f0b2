package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"battery-sizing/internal/api/handlers"
	"battery-sizing/internal/api/middleware"
	"battery-sizing/internal/api/models"
	"battery-sizing/internal/config"
	"battery-sizing/internal/data"
	"battery-sizing/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.BatteryDir = filepath.Join("..", "..", "configs", "batteries")
	cfg.Series.Timezone = "UTC"
	cfg.Optimizer.Workers = 2

	store := data.NewSeriesStore(time.Hour)
	t.Cleanup(store.Close)
	return NewRouter(&handlers.Env{
		Config:  cfg,
		Store:   store,
		Metrics: metrics.NopSink{},
		Log:     zerolog.Nop(),
	})
}

func do(t *testing.T, r http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// intervalsJSON renders quarter-hour intervals starting at noon UTC.
func intervalsJSON(remaining ...float64) string {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var b bytes.Buffer
	b.WriteString("[")
	for i, r := range remaining {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"timestamp":%q,"remaining_kwh":%g}`,
			start.Add(time.Duration(i)*15*time.Minute).Format(time.RFC3339), r)
	}
	b.WriteString("]")
	return b.String()
}

const losslessBattery = `{"capacity_kwh":2,"efficiency":1,"c_rate":10,"initial_soc":0}`

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestSeriesLifecycle(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/series", "application/json",
		`{"name":"june","intervals":`+intervalsJSON(1, -2, 0.5, 1)+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.SeriesResponse](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "june", created.Name)
	assert.Equal(t, 4, created.Profile.Count)
	assert.InDelta(t, 2.5, created.Profile.ImportKWh, 1e-9)
	assert.InDelta(t, 2, created.Profile.ExportKWh, 1e-9)

	w = do(t, r, http.MethodGet, "/api/v1/series/"+created.ID, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[models.SeriesResponse](t, w).ID)

	w = do(t, r, http.MethodGet, "/api/v1/series/"+created.ID+"/days", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	days := decode[models.DaysResponse](t, w)
	require.Len(t, days.Days, 1)
	assert.Equal(t, "2024-06-01", days.Days[0].Date)
	assert.Equal(t, 1, days.Days[0].Rank)

	w = do(t, r, http.MethodDelete, "/api/v1/series/"+created.ID, "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/series/"+created.ID, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SERIES_NOT_FOUND", decode[models.ErrorResponse](t, w).Error.Code)
}

func TestSeriesUploadAcceptsBareArrayAndCSV(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/series", "application/json", intervalsJSON(1, 2))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[models.SeriesResponse](t, w).Profile.Count)

	csv := "timestamp,import_kwh,export_kwh\n" +
		"2024-06-01T12:00:00Z,0.5,0\n" +
		"2024-06-01T12:15:00Z,0,1.5\n" +
		"2024-06-01T12:30:00Z,0.25,0\n"
	w = do(t, r, http.MethodPost, "/api/v1/series?name=meter", "text/csv", csv)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode[models.SeriesResponse](t, w)
	assert.Equal(t, "meter", got.Name)
	assert.Equal(t, 3, got.Profile.Count)
	assert.InDelta(t, 1.5, got.Profile.ExportKWh, 1e-9)
}

func TestSeriesUploadRejectsBadInput(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/series", "application/json", `{"intervals":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INSUFFICIENT_DATA", decode[models.ErrorResponse](t, w).Error.Code)

	unsorted := `[{"timestamp":"2024-06-01T12:15:00Z","remaining_kwh":1},` +
		`{"timestamp":"2024-06-01T12:00:00Z","remaining_kwh":1}]`
	w = do(t, r, http.MethodPost, "/api/v1/series", "application/json", unsorted)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[models.ErrorResponse](t, w)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	assert.EqualValues(t, 1, resp.Error.Details["interval"])
}

func TestSimulateInline(t *testing.T) {
	r := newTestRouter(t)
	body := `{"intervals":` + intervalsJSON(-1, 1) + `,
		"config":{"battery":` + losslessBattery + `,"policy":{"name":"greedy"}},
		"options":{"include_ledger":true}}`

	w := do(t, r, http.MethodPost, "/api/v1/simulate", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.SimulateResponse](t, w)

	assert.Equal(t, "greedy", resp.Summary.Policy)
	assert.Equal(t, 2.0, resp.Summary.CapacityKWh)
	assert.Equal(t, 2, resp.Summary.TotalIntervals)
	assert.InDelta(t, 1, resp.Summary.StoredKWh, 1e-9)
	assert.InDelta(t, 1, resp.Summary.ReleasedKWh, 1e-9)
	assert.InDelta(t, 0, resp.Summary.EnergyCost, 1e-9)
	assert.InDelta(t, 0, resp.Summary.FinalSOC, 1e-9)
	require.Len(t, resp.Ledger, 2)
	assert.Equal(t, "CHARGING", resp.Ledger[0].Action)
	assert.Equal(t, "DISCHARGING", resp.Ledger[1].Action)
	assert.InDelta(t, 0.5, resp.Ledger[0].SOCEnd, 1e-9)
	assert.Equal(t, 15.0, resp.Ledger[0].DurationMinutes)
}

func TestSimulateStoredSeriesWithPreset(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/series", "application/json", intervalsJSON(-1, -1, 2, 2))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[models.SeriesResponse](t, w).ID

	body := `{"series_id":"` + id + `","config":{"battery_file":"home-5kwh","prices":{"export_per_kwh":0}}}`
	w = do(t, r, http.MethodPost, "/api/v1/simulate", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.SimulateResponse](t, w)
	assert.Equal(t, 5.0, resp.Summary.CapacityKWh)
	assert.Equal(t, "reserve", resp.Summary.Policy)
	assert.Empty(t, resp.Ledger)
	assert.InDelta(t, 0, resp.Summary.ExportRevenue, 1e-9)
}

func TestSimulateErrors(t *testing.T) {
	r := newTestRouter(t)
	inline := `"intervals":` + intervalsJSON(1, -1)

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed", `{`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"no series", `{}`, http.StatusUnprocessableEntity, "INSUFFICIENT_DATA"},
		{"unknown series", `{"series_id":"nope"}`, http.StatusNotFound, "SERIES_NOT_FOUND"},
		{"unknown policy", `{` + inline + `,"config":{"policy":{"name":"oracle"}}}`, http.StatusBadRequest, "INVALID_CONFIG"},
		{"unknown preset", `{` + inline + `,"config":{"battery_file":"nope"}}`, http.StatusBadRequest, "INVALID_CONFIG"},
		{"bad efficiency", `{` + inline + `,"config":{"battery":{"capacity_kwh":1,"efficiency":2}}}`, http.StatusBadRequest, "INVALID_CONFIG"},
		{"lp too long", `{"intervals":` + intervalsJSON(1, -1, 1) + `,"config":{"battery":{"capacity_kwh":1},"policy":{"name":"lp","params":{"max_intervals":2}}}}`, http.StatusUnprocessableEntity, "SERIES_TOO_LONG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/v1/simulate", "application/json", tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.code, decode[models.ErrorResponse](t, w).Error.Code)
		})
	}

	w := do(t, r, http.MethodPost, "/api/v1/simulate", "application/json", `{`+inline+`,"config":{"policy":{"name":"oracle"}}}`)
	assert.Equal(t, "policy.name", decode[models.ErrorResponse](t, w).Error.Details["field"])
}

func TestOptimize(t *testing.T) {
	r := newTestRouter(t)
	// Midday surplus followed by an evening deficit.
	body := `{"intervals":` + intervalsJSON(-2, -2, -2, -2, 2, 2, 2, 2) + `,
		"config":{"battery":{"efficiency":1,"c_rate":4,"initial_soc":0,"fixed_cost":0,"variable_cost_per_kwh":1},
			"policy":{"name":"greedy"}},
		"optimizer":{"max_capacity_kwh":8,"grid_points":5}}`

	w := do(t, r, http.MethodPost, "/api/v1/optimize", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.OptimizeResponse](t, w)

	require.Len(t, resp.Curve, 5)
	assert.Equal(t, 0.0, resp.Curve[0].CapacityKWh)
	assert.Equal(t, 8.0, resp.Curve[4].CapacityKWh)
	assert.Equal(t, 0.0, resp.Curve[0].Savings)
	assert.Equal(t, "greedy", resp.Policy)
	assert.Greater(t, resp.OptimalCapacityKWh, 0.0)
	assert.Greater(t, resp.OptimalSavings, 0.0)
	assert.Equal(t, resp.OptimalCapacityKWh, resp.Optimal.Summary.CapacityKWh)
	for _, p := range resp.Curve {
		assert.InDelta(t, p.EnergyCost+p.BatteryCost, p.TotalCost, 1e-9)
		assert.LessOrEqual(t, resp.Curve[0].TotalCost-resp.OptimalSavings, p.TotalCost+1e-9)
	}
}

func TestOptimizeSizesGridFromProfile(t *testing.T) {
	r := newTestRouter(t)
	body := `{"intervals":` + intervalsJSON(-1, 1) + `,"optimizer":{"grid_points":3}}`

	w := do(t, r, http.MethodPost, "/api/v1/optimize", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.OptimizeResponse](t, w)
	require.Len(t, resp.Curve, 3)
	assert.Greater(t, resp.Curve[2].CapacityKWh, 0.0)
}

func TestOptimizeRejectsBadGrid(t *testing.T) {
	r := newTestRouter(t)
	for _, points := range []int{1, 0, -4} {
		body := fmt.Sprintf(`{"intervals":%s,"optimizer":{"max_capacity_kwh":5,"grid_points":%d}}`, intervalsJSON(-1, 1), points)

		w := do(t, r, http.MethodPost, "/api/v1/optimize", "application/json", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "grid_points %d", points)
		resp := decode[models.ErrorResponse](t, w)
		assert.Equal(t, "INVALID_CONFIG", resp.Error.Code)
		assert.Equal(t, "optimizer.grid_points", resp.Error.Details["field"])
	}
}

func TestSeriesUploadCSVFilters(t *testing.T) {
	r := newTestRouter(t)
	csvBody := "EAN_ID,Datum_Startuur,Volume_Afname_KWh,Volume_Injectie_KWh,PV_Installatie_Indicator\n" +
		"11,2024-06-01T10:00:00Z,0.5,0,False\n" +
		"22,2024-06-01T10:00:00Z,0,1.0,True\n" +
		"22,2024-06-02T10:00:00Z,0.25,0,True\n" +
		"22,2024-06-03T10:00:00Z,0.75,0,True\n"

	w := do(t, r, http.MethodPost, "/api/v1/series?pv=true", "text/csv", csvBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 3, decode[models.SeriesResponse](t, w).Profile.Count)

	w = do(t, r, http.MethodPost, "/api/v1/series?pv=true&from=2024-06-02&to=2024-06-02", "text/csv", csvBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.SeriesResponse](t, w)
	assert.Equal(t, 1, created.Profile.Count)
	assert.InDelta(t, 0.25, created.Profile.ImportKWh, 1e-9)

	w = do(t, r, http.MethodPost, "/api/v1/series?pv=maybe", "text/csv", csvBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "pv", decode[models.ErrorResponse](t, w).Error.Details["field"])
}

func TestSeriesWindow(t *testing.T) {
	r := newTestRouter(t)

	// Eight quarter-hours from 12:00 to 13:45.
	w := do(t, r, http.MethodPost, "/api/v1/series", "application/json",
		`{"intervals":`+intervalsJSON(1, 1, 1, 1, -1, -1, -1, -1)+`,"from":"2024-06-01T12:30:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.SeriesResponse](t, w)
	assert.Equal(t, 6, created.Profile.Count)

	body := fmt.Sprintf(`{"series_id":%q,"to":"2024-06-01T13:00:00Z","config":{"policy":{"name":"greedy"}}}`, created.ID)
	w = do(t, r, http.MethodPost, "/api/v1/simulate", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3, decode[models.SimulateResponse](t, w).Summary.TotalIntervals)

	body = `{"intervals":` + intervalsJSON(1, -1) + `,"from":"2024-06-02"}`
	w = do(t, r, http.MethodPost, "/api/v1/simulate", "application/json", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INSUFFICIENT_DATA", decode[models.ErrorResponse](t, w).Error.Code)

	body = `{"intervals":` + intervalsJSON(1, -1) + `,"from":"someday"}`
	w = do(t, r, http.MethodPost, "/api/v1/simulate", "application/json", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[models.ErrorResponse](t, w)
	assert.Equal(t, "INVALID_CONFIG", resp.Error.Code)
	assert.Equal(t, "from", resp.Error.Details["field"])
}

func TestListBatteriesAndPolicies(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/batteries", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	batteries := decode[struct {
		Batteries []models.BatteryInfo `json:"batteries"`
	}](t, w).Batteries
	require.NotEmpty(t, batteries)
	for _, b := range batteries {
		assert.NotEmpty(t, b.ID)
		assert.Greater(t, b.Specs.CapacityKWh, 0.0)
		assert.Greater(t, b.Specs.AnnualizedCost, 0.0)
	}

	w = do(t, r, http.MethodGet, "/api/v1/policies", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	policies := decode[struct {
		Policies []models.PolicyInfo `json:"policies"`
	}](t, w).Policies
	names := make([]string, len(policies))
	for i, p := range policies {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"greedy", "reserve", "schedule", "lp"}, names)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/simulate", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryAndNotFound(t *testing.T) {
	r := gin.New()
	r.Use(middleware.ErrorHandler(zerolog.Nop()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := do(t, r, http.MethodGet, "/boom", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[models.ErrorResponse](t, w)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Equal(t, "boom", resp.Error.Message)

	w = do(t, newTestRouter(t), http.MethodGet, "/api/v1/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
