package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type batteryFileWrapper struct {
	Battery BatteryConfig `yaml:"battery"`
}

// LoadBatteryFile reads a preset of the form `battery: {...}`.
func LoadBatteryFile(path string) (BatteryConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BatteryConfig{}, err
	}
	var w batteryFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return BatteryConfig{}, err
	}
	return w.Battery, nil
}

// MergeBattery overlays set fields from override onto base.
// This is used when loading a battery file and then applying overrides from the request.
func MergeBattery(base, override BatteryConfig) BatteryConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.CapacityKWh != 0 {
		out.CapacityKWh = override.CapacityKWh
	}
	if override.Efficiency != 0 {
		out.Efficiency = override.Efficiency
	}
	if override.CRate != 0 {
		out.CRate = override.CRate
	}
	if override.InitialSOC != nil {
		out.InitialSOC = override.InitialSOC
	}
	if override.FixedCost != nil {
		out.FixedCost = override.FixedCost
	}
	if override.VariableCostPerKWh != nil {
		out.VariableCostPerKWh = override.VariableCostPerKWh
	}
	if override.LifetimeYears != 0 {
		out.LifetimeYears = override.LifetimeYears
	}
	if override.Reserve != nil {
		out.Reserve = override.Reserve
	}
	return out
}

// BatteryPreset is a named battery file in a preset directory.
type BatteryPreset struct {
	ID      string
	File    string
	Battery BatteryConfig
}

// ListBatteryPresets loads every *.yaml file in dir, sorted by ID. Files
// that fail to parse are skipped and returned as errs.
func ListBatteryPresets(dir string) (presets []BatteryPreset, errs []error, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		path := filepath.Join(dir, name)
		b, err := LoadBatteryFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		id := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		if b.Name == "" {
			b.Name = id
		}
		presets = append(presets, BatteryPreset{ID: id, File: path, Battery: b})
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].ID < presets[j].ID })
	return presets, errs, nil
}

// ResolveBatteryPreset finds a preset by ID inside dir.
func ResolveBatteryPreset(dir, id string) (BatteryConfig, error) {
	clean := filepath.Base(filepath.Clean(id))
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, clean+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadBatteryFile(path)
		}
	}
	return BatteryConfig{}, os.ErrNotExist
}
