// Package config loads lavasim run configuration from YAML.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/lava"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = lava.ErrInvalidConfig

// Config holds a complete run configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Material   MaterialConfig   `yaml:"material"`
	Device     DeviceConfig     `yaml:"device"`
	Output     OutputConfig     `yaml:"output"`
}

// SimulationConfig sizes the particle system and the run.
type SimulationConfig struct {
	GridResolution int     `yaml:"grid_resolution"`
	ParticleCount  int     `yaml:"particle_count"`
	Spacing        float32 `yaml:"spacing"` // grid units between seeded particles
	ParticleMass   float32 `yaml:"particle_mass"`
	TimeStep       float32 `yaml:"time_step"`
	Frames         int     `yaml:"frames"` // frames to run headless
}

// MaterialConfig holds the elastic parameters. A non-empty preset
// overrides lambda and mu.
type MaterialConfig struct {
	Preset  string  `yaml:"preset"`
	Lambda  float32 `yaml:"lambda"`
	Mu      float32 `yaml:"mu"`
	Gravity float32 `yaml:"gravity"`
}

// DeviceConfig selects the backend.
type DeviceConfig struct {
	Backend        string `yaml:"backend"` // empty picks the first available
	SeparateQueues bool   `yaml:"separate_queues"`
	FramesInFlight int    `yaml:"frames_in_flight"`
	Workers        int    `yaml:"workers"`
}

// OutputConfig controls what a run writes.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	PNGEvery  int    `yaml:"png_every"` // 0 disables frame images
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Telemetry bool   `yaml:"telemetry"`
	HUD       bool   `yaml:"hud"`
}

// Load reads configuration from a YAML file merged over the embedded
// defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	return cfg, nil
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// Validate rejects values the simulation cannot run with.
func (c *Config) Validate() error {
	s := c.Simulation
	switch {
	case s.GridResolution < 8:
		return invalid("simulation.grid_resolution %d is below 8", s.GridResolution)
	case s.ParticleCount < 1:
		return invalid("simulation.particle_count %d is below 1", s.ParticleCount)
	case s.Spacing <= 0:
		return invalid("simulation.spacing %g must be positive", s.Spacing)
	case s.ParticleMass <= 0:
		return invalid("simulation.particle_mass %g must be positive", s.ParticleMass)
	case s.TimeStep < 0:
		return invalid("simulation.time_step %g is negative", s.TimeStep)
	case s.Frames < 0:
		return invalid("simulation.frames %d is negative", s.Frames)
	}

	if c.Material.Preset != "" {
		if err := lava.DefaultSimulationConfig().ApplyPreset(lava.Preset(c.Material.Preset)); err != nil {
			return fmt.Errorf("config: material.preset: %w", err)
		}
	}

	d := c.Device
	if d.FramesInFlight < 1 {
		return invalid("device.frames_in_flight %d is below 1", d.FramesInFlight)
	}

	o := c.Output
	switch {
	case o.PNGEvery < 0:
		return invalid("output.png_every %d is negative", o.PNGEvery)
	case o.Width < 1 || o.Height < 1:
		return invalid("output size %dx%d is empty", o.Width, o.Height)
	case (o.PNGEvery > 0 || o.Telemetry) && o.Dir == "":
		return invalid("output.dir is required for images or telemetry")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("config: %w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}

// Tunables builds the runtime tunables. Setters clamp lambda and mu.
func (c *Config) Tunables() (*lava.SimulationConfig, error) {
	t := lava.DefaultSimulationConfig()
	t.TimeStep = c.Simulation.TimeStep
	t.Gravity = c.Material.Gravity
	t.SetElasticLambda(c.Material.Lambda)
	t.SetElasticMu(c.Material.Mu)
	if c.Material.Preset != "" {
		if err := t.ApplyPreset(lava.Preset(c.Material.Preset)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Options returns the construction options described by c.
func (c *Config) Options() []lava.Option {
	return []lava.Option{
		lava.WithGridResolution(c.Simulation.GridResolution),
		lava.WithParticleCount(c.Simulation.ParticleCount),
		lava.WithSpacing(c.Simulation.Spacing),
		lava.WithParticleMass(c.Simulation.ParticleMass),
		lava.WithFramesInFlight(c.Device.FramesInFlight),
		lava.WithWorkers(c.Device.Workers),
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
