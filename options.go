package lava

import (
	"fmt"

	"github.com/gogpu/lava/gpucore"
	"github.com/gogpu/lava/mpm"
)

// DefaultFramesInFlight is the number of frame slots.
const DefaultFramesInFlight = 2

// Option configures a Simulation during creation.
//
// Example:
//
//	sim, err := lava.New(dev, cfg,
//	    lava.WithParticleCount(1024),
//	    lava.WithRenderer(renderer))
type Option func(*options)

// UniformFunc builds the uniform block of a frame. It receives the time
// since the simulation started and the frame slot being written.
type UniformFunc func(elapsed float32, slot int) mpm.Uniforms

type options struct {
	seed           mpm.SeedConfig
	framesInFlight int
	target         gpucore.DrawTarget
	workers        int
	uniformFunc    UniformFunc
}

func defaultOptions() options {
	return options{
		seed:           mpm.DefaultSeedConfig(),
		framesInFlight: DefaultFramesInFlight,
	}
}

func (o *options) validate() error {
	if o.framesInFlight < 1 {
		return fmt.Errorf("%w: frames in flight %d", ErrInvalidConfig, o.framesInFlight)
	}
	if o.seed.GridResolution < 8 {
		return fmt.Errorf("%w: grid resolution %d", ErrInvalidConfig, o.seed.GridResolution)
	}
	if o.seed.ParticleCount < 1 {
		return fmt.Errorf("%w: particle count %d", ErrInvalidConfig, o.seed.ParticleCount)
	}
	return nil
}

// WithGridResolution sets the number of cells along each grid axis.
func WithGridResolution(n int) Option {
	return func(o *options) { o.seed.GridResolution = n }
}

// WithParticleCount sets the number of particles.
func WithParticleCount(n int) Option {
	return func(o *options) { o.seed.ParticleCount = n }
}

// WithSpacing sets the distance between seeded particles in grid units.
func WithSpacing(s float32) Option {
	return func(o *options) { o.seed.Spacing = s }
}

// WithParticleMass sets the mass of every particle.
func WithParticleMass(m float32) Option {
	return func(o *options) { o.seed.Mass = m }
}

// WithFramesInFlight sets the number of frame slots, each with its own
// uniform buffer and prerecorded command lists.
func WithFramesInFlight(n int) Option {
	return func(o *options) { o.framesInFlight = n }
}

// WithRenderer sets the target of the particle draw. Without a renderer the
// graphics queue still performs the ownership handoff every frame.
func WithRenderer(t gpucore.DrawTarget) Option {
	return func(o *options) { o.target = t }
}

// WithWorkers bounds the worker pool of the host kernels.
// Zero or negative uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithUniformFunc replaces the uniform callback. By default uniforms come
// from the SimulationConfig.
func WithUniformFunc(fn UniformFunc) Option {
	return func(o *options) { o.uniformFunc = fn }
}
