// Package config loads and validates run configurations from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ellipsim/internal/sim"
)

const (
	DefaultA      = 2.0
	DefaultB      = 1.0
	DefaultN      = 16
	DefaultMass   = 1.0
	DefaultRadius = 0.02
	DefaultVMax   = 1.0
)

// Config is the full description of one run: curve, ensemble, and the
// controls threaded into the driver.
type Config struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`

	Integrator string `yaml:"integrator"`

	Ensemble EnsembleConfig `yaml:"ensemble"`
	Run      RunConfig      `yaml:"run"`
}

type EnsembleConfig struct {
	N      int     `yaml:"n"`
	Mass   float64 `yaml:"mass"`
	Radius float64 `yaml:"radius"`
	VMax   float64 `yaml:"vmax"`
	Seed   int64   `yaml:"seed"`
}

type RunConfig struct {
	MaxTime             float64 `yaml:"max_time"`
	MaxSteps            int     `yaml:"max_steps"`
	DtMax               float64 `yaml:"dt_max"`
	DtMin               float64 `yaml:"dt_min"`
	Safety              float64 `yaml:"safety"`
	SaveInterval        float64 `yaml:"save_interval"`
	ProjectionInterval  int     `yaml:"projection_interval"`
	ProjectionTolerance float64 `yaml:"projection_tolerance"`
	Workers             int     `yaml:"workers"`
}

func DefaultConfig() *Config {
	run := sim.DefaultConfig()
	return &Config{
		A:          DefaultA,
		B:          DefaultB,
		Integrator: "forestruth",
		Ensemble: EnsembleConfig{
			N:      DefaultN,
			Mass:   DefaultMass,
			Radius: DefaultRadius,
			VMax:   DefaultVMax,
		},
		Run: RunConfig{
			MaxTime:             run.MaxTime,
			MaxSteps:            run.MaxSteps,
			DtMax:               run.DtMax,
			DtMin:               run.DtMin,
			Safety:              run.Safety,
			SaveInterval:        run.SaveInterval,
			ProjectionInterval:  run.ProjectionInterval,
			ProjectionTolerance: run.ProjectionTolerance,
			Workers:             run.Workers,
		},
	}
}

// Load reads path into a config, starting from defaults so partial
// files stay valid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
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

// Validate rejects impossible configurations before anything runs.
// Step-control and tolerance checks live in sim.Config.Validate; this
// covers the curve and ensemble.
func (c *Config) Validate() error {
	if c.A <= 0 || c.B <= 0 {
		return fmt.Errorf("config: semi-axes must be positive, got a=%g b=%g", c.A, c.B)
	}
	if c.B > c.A {
		return fmt.Errorf("config: b=%g exceeds a=%g", c.B, c.A)
	}
	if c.Ensemble.N <= 0 {
		return fmt.Errorf("config: ensemble n must be positive, got %d", c.Ensemble.N)
	}
	if c.Ensemble.Mass <= 0 || c.Ensemble.Radius <= 0 {
		return fmt.Errorf("config: ensemble mass and radius must be positive")
	}
	return c.SimConfig().Validate()
}

// SimConfig converts the run section into the driver's configuration.
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		MaxTime:             c.Run.MaxTime,
		MaxSteps:            c.Run.MaxSteps,
		DtMax:               c.Run.DtMax,
		DtMin:               c.Run.DtMin,
		Safety:              c.Run.Safety,
		SaveInterval:        c.Run.SaveInterval,
		ProjectionInterval:  c.Run.ProjectionInterval,
		ProjectionTolerance: c.Run.ProjectionTolerance,
		Workers:             c.Run.Workers,
	}
}
