package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSteps         = 10000
	DefaultDumpInterval  = 100
	DefaultRanks         = 1
	DefaultSize          = 10
	DefaultMaxBufferSize = 10 * 1024 * 1024
	DefaultMaxBufferTime = 30 * time.Minute
	DefaultCutoff        = 1.1

	EnvPrefix = "LATSIM"
)

type Config struct {
	Simulation SimulationConfig `yaml:"simulation" mapstructure:"simulation"`
	Lattice    LatticeConfig    `yaml:"lattice" mapstructure:"lattice"`
	Model      ModelConfig      `yaml:"model" mapstructure:"model"`
	Trajectory TrajectoryConfig `yaml:"trajectory" mapstructure:"trajectory"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

type SimulationConfig struct {
	Steps        int   `yaml:"steps" mapstructure:"steps"`
	DumpInterval int   `yaml:"dump_interval" mapstructure:"dump_interval"`
	Seed         int64 `yaml:"seed" mapstructure:"seed"`
	Ranks        int   `yaml:"ranks" mapstructure:"ranks"`
}

type LatticeConfig struct {
	Constant    float64      `yaml:"constant" mapstructure:"constant"`
	Repetitions [3]int       `yaml:"repetitions" mapstructure:"repetitions"`
	Basis       [][3]float64 `yaml:"basis" mapstructure:"basis"`
	Periodic    [3]bool      `yaml:"periodic" mapstructure:"periodic"`
	Cutoff      float64      `yaml:"cutoff" mapstructure:"cutoff"`
}

type ModelConfig struct {
	Empty           string  `yaml:"empty" mapstructure:"empty"`
	Species         string  `yaml:"species" mapstructure:"species"`
	InitialCoverage float64 `yaml:"initial_coverage" mapstructure:"initial_coverage"`
	AdsorptionRate  float64 `yaml:"adsorption_rate" mapstructure:"adsorption_rate"`
	DesorptionRate  float64 `yaml:"desorption_rate" mapstructure:"desorption_rate"`
	DiffusionRate   float64 `yaml:"diffusion_rate" mapstructure:"diffusion_rate"`
}

type TrajectoryConfig struct {
	MaxBufferSize int           `yaml:"max_buffer_size" mapstructure:"max_buffer_size"`
	MaxBufferTime time.Duration `yaml:"max_buffer_time" mapstructure:"max_buffer_time"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Steps:        DefaultSteps,
			DumpInterval: DefaultDumpInterval,
			Seed:         1,
			Ranks:        DefaultRanks,
		},
		Lattice: LatticeConfig{
			Constant:    1.0,
			Repetitions: [3]int{DefaultSize, DefaultSize, 1},
			Basis:       [][3]float64{{0, 0, 0}},
			Periodic:    [3]bool{true, true, true},
			Cutoff:      DefaultCutoff,
		},
		Model: ModelConfig{
			Empty:          "*",
			Species:        "A",
			AdsorptionRate: 1.0,
			DesorptionRate: 0.5,
			DiffusionRate:  10.0,
		},
		Trajectory: TrajectoryConfig{
			MaxBufferSize: DefaultMaxBufferSize,
			MaxBufferTime: DefaultMaxBufferTime,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config on top of the defaults. LATSIM_* environment
// variables (e.g. LATSIM_SIMULATION_STEPS) override file values.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Simulation.Steps <= 0 {
		errs = append(errs, fmt.Errorf("simulation.steps must be positive, got %d", c.Simulation.Steps))
	}
	if c.Simulation.DumpInterval <= 0 {
		errs = append(errs, fmt.Errorf("simulation.dump_interval must be positive, got %d", c.Simulation.DumpInterval))
	}
	if c.Simulation.Ranks <= 0 {
		errs = append(errs, fmt.Errorf("simulation.ranks must be positive, got %d", c.Simulation.Ranks))
	}
	if c.Lattice.Constant <= 0 {
		errs = append(errs, fmt.Errorf("lattice.constant must be positive, got %g", c.Lattice.Constant))
	}
	for _, r := range c.Lattice.Repetitions {
		if r <= 0 {
			errs = append(errs, fmt.Errorf("lattice.repetitions must be positive, got %v", c.Lattice.Repetitions))
			break
		}
	}
	if len(c.Lattice.Basis) == 0 {
		errs = append(errs, errors.New("lattice.basis must not be empty"))
	}
	if c.Model.Empty == "" || c.Model.Species == "" || c.Model.Empty == c.Model.Species {
		errs = append(errs, fmt.Errorf("model.empty and model.species must be distinct labels, got %q and %q", c.Model.Empty, c.Model.Species))
	}
	if c.Model.InitialCoverage < 0 || c.Model.InitialCoverage > 1 {
		errs = append(errs, fmt.Errorf("model.initial_coverage must be in [0,1], got %g", c.Model.InitialCoverage))
	}
	if c.Model.AdsorptionRate < 0 || c.Model.DesorptionRate < 0 || c.Model.DiffusionRate < 0 {
		errs = append(errs, errors.New("model rates must not be negative"))
	}
	if c.Trajectory.MaxBufferSize < 0 {
		errs = append(errs, fmt.Errorf("trajectory.max_buffer_size must not be negative, got %d", c.Trajectory.MaxBufferSize))
	}
	return errors.Join(errs...)
}
