package config

import (
	"sort"
	"time"
)

type Preset func(c *Config)

var Presets = map[string]Preset{
	"langmuir": func(c *Config) {
		c.Model.AdsorptionRate = 1.0
		c.Model.DesorptionRate = 1.0
		c.Model.DiffusionRate = 0
	},
	"diffusion": func(c *Config) {
		c.Model.AdsorptionRate = 0
		c.Model.DesorptionRate = 0
		c.Model.DiffusionRate = 1.0
		c.Model.InitialCoverage = 0.3
		c.Lattice.Repetitions = [3]int{20, 20, 1}
	},
	"saturating": func(c *Config) {
		c.Model.AdsorptionRate = 5.0
		c.Model.DesorptionRate = 0.1
		c.Model.DiffusionRate = 2.0
		c.Simulation.Steps = 5000
		c.Simulation.DumpInterval = 25
	},
	"parallel": func(c *Config) {
		c.Simulation.Ranks = 4
		c.Trajectory.MaxBufferSize = 64 * 1024
		c.Trajectory.MaxBufferTime = time.Minute
	},
}

// GetPreset returns the default config with the named preset applied, or
// nil when the preset does not exist.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
