package lava

import (
	"fmt"
	"strings"

	"github.com/gogpu/lava/mpm"
)

// Material and integration defaults.
const (
	DefaultTimeStep      = 0.1
	DefaultGravity       = -0.3
	DefaultElasticLambda = 10
	DefaultElasticMu     = 20

	MinElasticLambda = 10
	MaxElasticLambda = 100
	MinElasticMu     = 0.1
	MaxElasticMu     = 20
)

// Preset names a material parameter set.
type Preset string

// Material presets.
const (
	// PresetSolid is an elastic, jelly-like solid.
	PresetSolid Preset = "solid"
	// PresetLiquid has almost no shear stiffness and flows.
	PresetLiquid Preset = "liquid"
)

// Presets lists the known presets.
func Presets() []Preset { return []Preset{PresetSolid, PresetLiquid} }

// SimulationConfig holds the tunables read once per frame when the uniform
// block is built. The simulation keeps a pointer to it, so changes made
// between frames take effect on the next frame. It is not safe to mutate
// concurrently with Simulation.Frame.
type SimulationConfig struct {
	// ElasticLambda is the first Lamé parameter, within [10, 100].
	ElasticLambda float32
	// ElasticMu is the shear modulus, within [0.1, 20].
	ElasticMu float32
	// Gravity is the vertical acceleration in grid units; zero disables it.
	Gravity float32
	// TimeStep is the integration step used while running.
	TimeStep float32
	// Paused makes every frame run with a zero time step.
	Paused bool
}

// DefaultSimulationConfig returns the solid preset with default gravity and
// time step.
func DefaultSimulationConfig() *SimulationConfig {
	return &SimulationConfig{
		ElasticLambda: DefaultElasticLambda,
		ElasticMu:     DefaultElasticMu,
		Gravity:       DefaultGravity,
		TimeStep:      DefaultTimeStep,
	}
}

func clampf(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}

// SetElasticLambda sets lambda clamped to [MinElasticLambda, MaxElasticLambda].
func (c *SimulationConfig) SetElasticLambda(v float32) {
	c.ElasticLambda = clampf(v, MinElasticLambda, MaxElasticLambda)
}

// SetElasticMu sets mu clamped to [MinElasticMu, MaxElasticMu].
func (c *SimulationConfig) SetElasticMu(v float32) {
	c.ElasticMu = clampf(v, MinElasticMu, MaxElasticMu)
}

// TogglePause flips Paused and returns the new value.
func (c *SimulationConfig) TogglePause() bool {
	c.Paused = !c.Paused
	return c.Paused
}

// ApplyPreset sets the material parameters of a preset. Names are
// case-insensitive.
func (c *SimulationConfig) ApplyPreset(p Preset) error {
	switch Preset(strings.ToLower(string(p))) {
	case PresetSolid:
		c.ElasticLambda, c.ElasticMu = 10, 20
	case PresetLiquid:
		c.ElasticLambda, c.ElasticMu = 100, 0.1
	default:
		return fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, p)
	}
	return nil
}

// Uniforms builds the per-frame uniform block. A paused configuration
// yields a zero time step.
func (c *SimulationConfig) Uniforms(particleCount, gridResolution int) mpm.Uniforms {
	dt := c.TimeStep
	if c.Paused {
		dt = 0
	}
	return mpm.Uniforms{
		DT:             dt,
		ParticleCount:  uint32(particleCount),
		ElasticLambda:  c.ElasticLambda,
		ElasticMu:      c.ElasticMu,
		Gravity:        c.Gravity,
		GridResolution: uint32(gridResolution),
	}
}
