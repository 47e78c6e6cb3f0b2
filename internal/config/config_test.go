package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"battery-sizing/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "reserve", c.Policy.Name)
	assert.Equal(t, 50, c.Optimizer.GridPoints)
	assert.Equal(t, "Europe/Brussels", c.Series.Timezone)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, model.DefaultPrices(), c.Prices.ToModel())
	assert.Equal(t, model.DefaultBatteryParams(), c.Battery.ToModelParams())
}

func TestLoadMergesBatteryFileRelativeToConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "batteries/small.yaml", `
battery:
  name: small
  capacity_kwh: 5
  efficiency: 0.9
  c_rate: 0.5
`)
	path := writeFile(t, dir, "config.yaml", `
battery_file: batteries/small.yaml
battery:
  capacity_kwh: 7
  initial_soc: 0
prices:
  export_per_kwh: 0
optimizer:
  max_capacity_kwh: 12
  grid_points: 13
`)

	c, err := Load(path)
	require.NoError(t, err)

	p := c.Battery.ToModelParams()
	assert.Equal(t, 7.0, p.CapacityKWh)
	assert.Equal(t, 0.9, p.Efficiency)
	assert.Equal(t, 0.5, p.CRate)
	assert.Equal(t, 0.0, p.InitialSOC)
	assert.Equal(t, "small", c.Battery.Name)
	assert.Equal(t, 0.0, c.Prices.ToModel().ExportPerKWh)
	assert.Equal(t, 0.35, c.Prices.ToModel().ImportPerKWh)
	assert.Equal(t, 12.0, c.Optimizer.MaxCapacityKWh)
	assert.Equal(t, 13, c.Optimizer.GridPoints)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("BSIZE_OPTIMIZER__GRID_POINTS", "21")
	t.Setenv("BSIZE_POLICY__NAME", "greedy")
	t.Setenv("BSIZE_SERVER__PORT", "9090")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 21, c.Optimizer.GridPoints)
	assert.Equal(t, "greedy", c.Policy.Name)
	assert.Equal(t, 9090, c.Server.Port)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"policy":      "policy:\n  name: oracle\n",
		"grid":        "optimizer:\n  grid_points: 1\n",
		"grid zero":   "optimizer:\n  grid_points: 0\n",
		"from":        "series:\n  from: yesterday\n",
		"window":      "series:\n  from: \"2024-07-02\"\n  to: \"2024-07-01\"\n",
		"efficiency":  "battery:\n  efficiency: 1.5\n",
		"timezone":    "series:\n  timezone: Mars/Olympus\n",
		"price":       "prices:\n  import_per_kwh: .nan\n",
		"reserve hrs": "battery:\n  reserve:\n    windows:\n      - {start_hour: 20, end_hour: 18, soc: 0.5}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.ErrorIs(t, err, model.ErrInvalidConfig)
		})
	}
}

func TestLoadZeroGridPointsFromEnv(t *testing.T) {
	t.Setenv("BSIZE_OPTIMIZER__GRID_POINTS", "0")

	_, err := Load("")
	var cfgErr *model.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "optimizer.grid_points", cfgErr.Field)
}

func TestSeriesCSVOptions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
series:
  ean: "541448"
  pv: true
  from: "2024-07-01"
  to: "2024-07-07"
`)
	c, err := Load(path)
	require.NoError(t, err)

	opts, err := c.Series.CSVOptions()
	require.NoError(t, err)
	assert.Equal(t, "541448", opts.EAN)
	require.NotNil(t, opts.PV)
	assert.True(t, *opts.PV)
	assert.Nil(t, opts.EV)
	assert.Equal(t, "Europe/Brussels", opts.Location.String())
	assert.True(t, opts.Window.Contains(time.Date(2024, 7, 7, 22, 0, 0, 0, opts.Location)))
	assert.False(t, opts.Window.Contains(time.Date(2024, 6, 30, 23, 0, 0, 0, opts.Location)))

	c.Series.To = "soon"
	_, err = c.Series.CSVOptions()
	var cfgErr *model.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "series.to", cfgErr.Field)
}

func TestShippedConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	p := c.Battery.ToModelParams()
	assert.Equal(t, model.DefaultBatteryParams().InitialSOC, p.InitialSOC)
	assert.Equal(t, 10.0, p.CapacityKWh)
	assert.Equal(t, 50, c.Optimizer.GridPoints)
	require.NotNil(t, c.Series.PV)
	assert.True(t, *c.Series.PV)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMergeBatteryKeepsExplicitZeroes(t *testing.T) {
	zero := 0.0
	base := BatteryConfig{Name: "base", CapacityKWh: 10, Efficiency: 0.9, FixedCost: ptr(500.0)}
	out := MergeBattery(base, BatteryConfig{FixedCost: &zero, CRate: 1})

	assert.Equal(t, "base", out.Name)
	assert.Equal(t, 10.0, out.CapacityKWh)
	assert.Equal(t, 1.0, out.CRate)
	require.NotNil(t, out.FixedCost)
	assert.Equal(t, 0.0, *out.FixedCost)
}

func TestListBatteryPresets(t *testing.T) {
	presets, errs, err := ListBatteryPresets(filepath.Join("..", "..", "configs", "batteries"))
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.NotEmpty(t, presets)

	for i := 1; i < len(presets); i++ {
		assert.Less(t, presets[i-1].ID, presets[i].ID)
	}
	for _, p := range presets {
		assert.NoError(t, p.Battery.ToModelParams().Validate(), p.ID)
	}
}

func TestListBatteryPresetsSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.yaml", "battery:\n  capacity_kwh: 3\n")
	writeFile(t, dir, "broken.yaml", "battery: [\n")
	writeFile(t, dir, "notes.txt", "ignored")

	presets, errs, err := ListBatteryPresets(dir)
	require.NoError(t, err)
	require.Len(t, presets, 1)
	assert.Equal(t, "ok", presets[0].ID)
	assert.Equal(t, "ok", presets[0].Battery.Name)
	assert.Len(t, errs, 1)

	b, err := ResolveBatteryPreset(dir, "ok")
	require.NoError(t, err)
	assert.Equal(t, 3.0, b.CapacityKWh)

	_, err = ResolveBatteryPreset(dir, "../ok")
	require.NoError(t, err, "path components are stripped")
	_, err = ResolveBatteryPreset(dir, "missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func ptr[T any](v T) *T { return &v }
