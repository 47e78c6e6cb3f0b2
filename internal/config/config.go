package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"battery-sizing/internal/data"
	"battery-sizing/internal/model"
	"battery-sizing/internal/optimize"
	"battery-sizing/internal/strategy"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides: BSIZE_OPTIMIZER__GRID_POINTS=40
// sets optimizer.grid_points.
const EnvPrefix = "BSIZE_"

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load battery parameters from a separate YAML (e.g. configs/batteries/*.yaml).
	// Fields set in Battery override the file.
	BatteryFile string          `yaml:"battery_file"`
	Battery     BatteryConfig   `yaml:"battery"`
	Prices      PricesConfig    `yaml:"prices"`
	Policy      PolicyConfig    `yaml:"policy"`
	Optimizer   OptimizerConfig `yaml:"optimizer"`
	Series      SeriesConfig    `yaml:"series"`
	Server      ServerConfig    `yaml:"server"`
	Logging     LoggingConfig   `yaml:"logging"`
}

// BatteryConfig mirrors model.BatteryParams. Pointer fields distinguish
// "unset" from a legitimate zero.
type BatteryConfig struct {
	Name               string                 `yaml:"name" json:"name,omitempty"`
	CapacityKWh        float64                `yaml:"capacity_kwh" json:"capacity_kwh,omitempty"`
	Efficiency         float64                `yaml:"efficiency" json:"efficiency,omitempty"`
	CRate              float64                `yaml:"c_rate" json:"c_rate,omitempty"`
	InitialSOC         *float64               `yaml:"initial_soc" json:"initial_soc,omitempty"`
	FixedCost          *float64               `yaml:"fixed_cost" json:"fixed_cost,omitempty"`
	VariableCostPerKWh *float64               `yaml:"variable_cost_per_kwh" json:"variable_cost_per_kwh,omitempty"`
	LifetimeYears      float64                `yaml:"lifetime_years" json:"lifetime_years,omitempty"`
	Reserve            *model.ReserveSchedule `yaml:"reserve" json:"reserve,omitempty"`
}

type PricesConfig struct {
	ImportPerKWh *float64 `yaml:"import_per_kwh" json:"import_per_kwh,omitempty"`
	ExportPerKWh *float64 `yaml:"export_per_kwh" json:"export_per_kwh,omitempty"`
}

type PolicyConfig struct {
	Name   string         `yaml:"name" json:"name"`
	Params map[string]any `yaml:"params" json:"params,omitempty"`
}

type OptimizerConfig struct {
	// MaxCapacityKWh of zero sizes the sweep from the series profile.
	MaxCapacityKWh float64 `yaml:"max_capacity_kwh"`
	// GridPoints defaults to optimize.DefaultGridPoints when the key is
	// absent; an explicit value below 2 is rejected.
	GridPoints int `yaml:"grid_points"`
	// Workers of zero uses every CPU.
	Workers int `yaml:"workers"`
}

type SeriesConfig struct {
	// Timezone for timestamps without an offset and for reserve hours.
	Timezone           string `yaml:"timezone"`
	DefaultStepMinutes int    `yaml:"default_step_minutes"`
	// EAN selects one meter from multi-meter CSV files.
	EAN string `yaml:"ean"`
	// PV and EV keep only meters with a matching indicator in Fluvius open
	// data. Unset keeps every meter.
	PV *bool `yaml:"pv"`
	EV *bool `yaml:"ev"`
	// From and To bound the series, as dates (2006-01-02) or timestamps.
	// Both are inclusive; empty is open.
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type ServerConfig struct {
	Port              int      `yaml:"port"`
	Env               string   `yaml:"env"`
	BatteryDir        string   `yaml:"battery_dir"`
	SessionTTLMinutes int      `yaml:"session_ttl_minutes"`
	CORSOrigins       []string `yaml:"cors_origins"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads the YAML file at path (optional when empty), applies BSIZE_
// environment overrides, merges battery_file, fills defaults and validates.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	// Keys missing from every source keep these values.
	c := Config{Optimizer: OptimizerConfig{GridPoints: optimize.DefaultGridPoints}}
	if err := k.UnmarshalWithConf("", &c, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if c.BatteryFile != "" {
		batteryPath := c.BatteryFile
		if !filepath.IsAbs(batteryPath) && path != "" {
			// Prefer paths relative to the config file, fall back to the cwd.
			cand := filepath.Join(filepath.Dir(path), batteryPath)
			if _, err := os.Stat(cand); err == nil {
				batteryPath = cand
			}
		}
		loaded, err := LoadBatteryFile(batteryPath)
		if err != nil {
			return nil, err
		}
		c.Battery = MergeBattery(loaded, c.Battery)
	}
	return &c, nil
}

func (c *Config) SetDefaults() {
	c.Policy.SetDefaults()
	c.Series.SetDefaults()
	c.Server.SetDefaults()
	c.Logging.SetDefaults()
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Battery.ToModelParams().Validate(); err != nil {
		return fmt.Errorf("battery config invalid: %w", err)
	}
	if err := c.Prices.ToModel().Validate(); err != nil {
		return fmt.Errorf("prices config invalid: %w", err)
	}
	if _, err := strategy.FromConfig(c.Policy.Name, c.Policy.Params); err != nil {
		return fmt.Errorf("policy config invalid: %w", err)
	}
	if err := c.Optimizer.Validate(); err != nil {
		return err
	}
	if err := c.Series.Validate(); err != nil {
		return err
	}
	return c.Server.Validate()
}

// ToModelParams overlays the configured fields on model.DefaultBatteryParams.
func (b BatteryConfig) ToModelParams() model.BatteryParams {
	p := model.DefaultBatteryParams()
	p.CapacityKWh = b.CapacityKWh
	if b.Efficiency != 0 {
		p.Efficiency = b.Efficiency
	}
	if b.CRate != 0 {
		p.CRate = b.CRate
	}
	if b.InitialSOC != nil {
		p.InitialSOC = *b.InitialSOC
	}
	if b.FixedCost != nil {
		p.FixedCost = *b.FixedCost
	}
	if b.VariableCostPerKWh != nil {
		p.VariableCostPerKWh = *b.VariableCostPerKWh
	}
	if b.LifetimeYears != 0 {
		p.LifetimeYears = b.LifetimeYears
	}
	if b.Reserve != nil {
		p.Reserve = *b.Reserve
	}
	return p
}

func (p PricesConfig) ToModel() model.Prices {
	out := model.DefaultPrices()
	if p.ImportPerKWh != nil {
		out.ImportPerKWh = *p.ImportPerKWh
	}
	if p.ExportPerKWh != nil {
		out.ExportPerKWh = *p.ExportPerKWh
	}
	return out
}

func (p *PolicyConfig) SetDefaults() {
	if strings.TrimSpace(p.Name) == "" {
		p.Name = "reserve"
	}
}

// Factory builds the configured policy.
func (p PolicyConfig) Factory() (strategy.Factory, error) {
	return strategy.FromConfig(p.Name, p.Params)
}

func (o OptimizerConfig) Validate() error {
	if o.MaxCapacityKWh < 0 {
		return &model.ConfigError{Field: "optimizer.max_capacity_kwh", Reason: "must be >= 0"}
	}
	if o.GridPoints < 2 {
		return &model.ConfigError{Field: "optimizer.grid_points", Reason: "must be >= 2"}
	}
	if o.Workers < 0 {
		return &model.ConfigError{Field: "optimizer.workers", Reason: "must be >= 0"}
	}
	return nil
}

func (s *SeriesConfig) SetDefaults() {
	if s.Timezone == "" {
		s.Timezone = "Europe/Brussels"
	}
	if s.DefaultStepMinutes == 0 {
		s.DefaultStepMinutes = 15
	}
}

func (s SeriesConfig) Validate() error {
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return &model.ConfigError{Field: "series.timezone", Reason: err.Error()}
	}
	if s.DefaultStepMinutes < 0 {
		return &model.ConfigError{Field: "series.default_step_minutes", Reason: "must be > 0"}
	}
	_, err := s.Window()
	return err
}

// Window parses From and To in the series timezone.
func (s SeriesConfig) Window() (data.Window, error) {
	w, err := data.ParseWindow(s.From, s.To, s.Location())
	var cfgErr *model.ConfigError
	if errors.As(err, &cfgErr) {
		return data.Window{}, &model.ConfigError{Field: "series." + cfgErr.Field, Reason: cfgErr.Reason}
	}
	return w, err
}

// CSVOptions collects the loader settings for meter exports.
func (s SeriesConfig) CSVOptions() (data.CSVOptions, error) {
	w, err := s.Window()
	if err != nil {
		return data.CSVOptions{}, err
	}
	return data.CSVOptions{
		Location: s.Location(),
		EAN:      s.EAN,
		PV:       s.PV,
		EV:       s.EV,
		Window:   w,
	}, nil
}

// Location resolves Timezone. Call after Validate.
func (s SeriesConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s SeriesConfig) DefaultStep() time.Duration {
	return time.Duration(s.DefaultStepMinutes) * time.Minute
}

func (s *ServerConfig) SetDefaults() {
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.Env == "" {
		s.Env = "development"
	}
	if s.BatteryDir == "" {
		s.BatteryDir = filepath.Join("configs", "batteries")
	}
	if s.SessionTTLMinutes == 0 {
		s.SessionTTLMinutes = 60
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}
}

func (s ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return &model.ConfigError{Field: "server.port", Reason: "must be in [1, 65535]"}
	}
	if s.SessionTTLMinutes < 0 {
		return &model.ConfigError{Field: "server.session_ttl_minutes", Reason: "must be >= 0"}
	}
	return nil
}

func (s ServerConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLMinutes) * time.Minute
}

func (l *LoggingConfig) SetDefaults() {
	if l.Level == "" {
		l.Level = "info"
	}
}
