package model

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams(capacity float64) BatteryParams {
	p := DefaultBatteryParams()
	p.CapacityKWh = capacity
	p.Efficiency = 1
	p.CRate = 10
	p.InitialSOC = 0
	return p
}

func TestNewBattery_Validation(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*BatteryParams)
		field string
	}{
		{"negative capacity", func(p *BatteryParams) { p.CapacityKWh = -1 }, "capacity_kwh"},
		{"zero efficiency", func(p *BatteryParams) { p.Efficiency = 0 }, "efficiency"},
		{"efficiency above one", func(p *BatteryParams) { p.Efficiency = 1.01 }, "efficiency"},
		{"zero c-rate", func(p *BatteryParams) { p.CRate = 0 }, "c_rate"},
		{"soc above one", func(p *BatteryParams) { p.InitialSOC = 1.5 }, "initial_soc"},
		{"zero lifetime", func(p *BatteryParams) { p.LifetimeYears = 0 }, "lifetime_years"},
		{"negative cost", func(p *BatteryParams) { p.FixedCost = -1 }, "cost"},
		{"nan soc", func(p *BatteryParams) { p.InitialSOC = math.NaN() }, "initial_soc"},
		{"infinite capacity", func(p *BatteryParams) { p.CapacityKWh = math.Inf(1) }, "capacity_kwh"},
		{"nan capacity", func(p *BatteryParams) { p.CapacityKWh = math.NaN() }, "capacity_kwh"},
		{"infinite c-rate", func(p *BatteryParams) { p.CRate = math.Inf(1) }, "c_rate"},
		{"nan cost", func(p *BatteryParams) { p.VariableCostPerKWh = math.NaN() }, "cost"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := testParams(5)
			c.mut(&p)
			_, err := NewBattery(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, c.field, cfgErr.Field)
		})
	}
}

func TestBattery_NewStartsAtInitialSOC(t *testing.T) {
	b, err := NewBattery(DefaultBatteryParams().WithCapacity(10))
	require.NoError(t, err)
	assert.InDelta(t, 0.33, b.State.SOC, 1e-12)
	assert.InDelta(t, 3.3, b.CurrentKWh(), 1e-12)
	assert.InDelta(t, 6.7, b.AvailableKWh(), 1e-12)
}

func TestBattery_StoreLimitedByHeadroom(t *testing.T) {
	b, err := NewBattery(testParams(2))
	require.NoError(t, err)

	accepted := b.Store(3, time.Hour)
	assert.InDelta(t, 2, accepted, 1e-12)
	assert.InDelta(t, 1, b.State.SOC, 1e-12)

	assert.Zero(t, b.Store(1, time.Hour))
}

func TestBattery_ReleaseLimitedByContent(t *testing.T) {
	p := testParams(2)
	p.InitialSOC = 0.5
	b, err := NewBattery(p)
	require.NoError(t, err)

	delivered := b.Release(5, time.Hour)
	assert.InDelta(t, 1, delivered, 1e-12)
	assert.InDelta(t, 0, b.State.SOC, 1e-12)
}

func TestBattery_RateLimitScalesWithInterval(t *testing.T) {
	p := testParams(10)
	p.CRate = 0.5
	b, err := NewBattery(p)
	require.NoError(t, err)

	// 0.5C on 10 kWh over 15 minutes = 1.25 kWh.
	assert.InDelta(t, 1.25, b.Store(4, 15*time.Minute), 1e-12)
	assert.InDelta(t, 0.125, b.State.SOC, 1e-12)

	assert.InDelta(t, 1.25, b.Release(4, 15*time.Minute), 1e-12)
	assert.InDelta(t, 0, b.State.SOC, 1e-12)
}

func TestBattery_EfficiencyAppliedOncePerOperation(t *testing.T) {
	p := testParams(10)
	p.Efficiency = 0.9
	b, err := NewBattery(p)
	require.NoError(t, err)

	accepted := b.Store(2, time.Hour)
	assert.InDelta(t, 2, accepted, 1e-12)
	assert.InDelta(t, 1.8, b.CurrentKWh(), 1e-12)

	delivered := b.Release(1, time.Hour)
	assert.InDelta(t, 0.9, delivered, 1e-12)
	assert.InDelta(t, 0.8, b.CurrentKWh(), 1e-12)
}

func TestBattery_RoundTripLoss(t *testing.T) {
	for _, eff := range []float64{0.8, 0.95, 1} {
		p := testParams(10)
		p.Efficiency = eff
		b, err := NewBattery(p)
		require.NoError(t, err)

		in := 3.0
		b.Store(in, time.Hour)
		out := b.Release(in, time.Hour)
		if eff < 1 {
			assert.Less(t, out, in, "efficiency %v", eff)
		} else {
			assert.InDelta(t, in, out, 1e-12)
		}
	}
}

func TestBattery_ZeroCapacityIsInert(t *testing.T) {
	b, err := NewBattery(testParams(0))
	require.NoError(t, err)

	assert.Zero(t, b.Store(5, time.Hour))
	assert.Zero(t, b.Release(5, time.Hour))
	assert.Zero(t, b.State.SOC)
	assert.Zero(t, b.AnnualizedCost())
}

func TestBattery_NonPositiveRequestsAreIgnored(t *testing.T) {
	p := testParams(4)
	p.InitialSOC = 0.5
	b, err := NewBattery(p)
	require.NoError(t, err)

	assert.Zero(t, b.Store(-1, time.Hour))
	assert.Zero(t, b.Release(0, time.Hour))
	assert.InDelta(t, 0.5, b.State.SOC, 1e-12)
}

func TestBattery_AnnualizedCost(t *testing.T) {
	p := DefaultBatteryParams().WithCapacity(10)
	b, err := NewBattery(p)
	require.NoError(t, err)
	// (700 * 10 + 1000) / 10
	assert.InDelta(t, 800, b.AnnualizedCost(), 1e-9)
}

func TestBattery_ReserveSOC(t *testing.T) {
	b, err := NewBattery(DefaultBatteryParams().WithCapacity(5))
	require.NoError(t, err)

	day := time.Date(2025, 7, 24, 0, 0, 0, 0, time.UTC)
	cases := map[int]float64{
		0: 0.25, 5: 0.25, 6: 0.05, 12: 0.05, 16: 0.05, 17: 0.50, 19: 0.50, 20: 0.05, 23: 0.05,
	}
	for hour, want := range cases {
		assert.Equal(t, want, b.ReserveSOC(day.Add(time.Duration(hour)*time.Hour)), "hour %d", hour)
	}
}

func TestReserveSchedule_UsesTimestampLocation(t *testing.T) {
	brussels := time.FixedZone("CEST", 2*3600)
	// 15:30 UTC is 17:30 in Brussels summer time.
	ts := time.Date(2025, 7, 24, 15, 30, 0, 0, time.UTC).In(brussels)
	assert.Equal(t, 0.50, DefaultReserveSchedule().At(ts))
}

func TestReserveSchedule_Validate(t *testing.T) {
	s := DefaultReserveSchedule()
	require.NoError(t, s.Validate())

	s.Windows = append(s.Windows, ReserveWindow{StartHour: 20, EndHour: 18, SOC: 0.1})
	assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
}

func TestBattery_SOCHistory(t *testing.T) {
	b, err := NewBattery(testParams(2))
	require.NoError(t, err)

	b.RecordSOC()
	b.Store(1, time.Hour)
	b.RecordSOC()

	h := b.SOCHistory()
	assert.Equal(t, []float64{0, 0.5}, h)

	h[0] = 42
	assert.Equal(t, 0.0, b.SOCHistory()[0])
}
