package mpm

import (
	"errors"
	"fmt"
	"math"
)

// Default seeding parameters.
const (
	DefaultGridResolution = 64
	DefaultParticleCount  = 4096
	DefaultSpacing        = 0.5
	DefaultParticleMass   = 1.0
)

// ErrSeedBounds is returned when the requested particle block does not fit
// inside the simulation domain.
var ErrSeedBounds = errors.New("mpm: particle block does not fit the grid")

// SeedConfig describes the initial particle block.
type SeedConfig struct {
	GridResolution int
	ParticleCount  int
	// Spacing is the distance between neighbouring particles in grid units.
	Spacing float32
	// Mass is the mass of every particle.
	Mass float32
}

// DefaultSeedConfig returns the 64x64 grid, 4096 particle configuration.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		GridResolution: DefaultGridResolution,
		ParticleCount:  DefaultParticleCount,
		Spacing:        DefaultSpacing,
		Mass:           DefaultParticleMass,
	}
}

// Seed places cfg.ParticleCount particles on a dense square lattice centred
// in the grid. Particles start at rest with C = 0 and F = I. Rest volumes are
// left at zero; call EstimateVolumes afterwards.
func Seed(cfg SeedConfig) (*State, error) {
	if cfg.GridResolution < 8 {
		return nil, fmt.Errorf("mpm: grid resolution %d too small", cfg.GridResolution)
	}
	if cfg.ParticleCount <= 0 {
		return nil, fmt.Errorf("mpm: particle count %d must be positive", cfg.ParticleCount)
	}
	if cfg.Spacing <= 0 || cfg.Mass <= 0 {
		return nil, fmt.Errorf("mpm: spacing %g and mass %g must be positive", cfg.Spacing, cfg.Mass)
	}

	side := int(math.Ceil(math.Sqrt(float64(cfg.ParticleCount))))
	centre := float32(cfg.GridResolution) / 2
	origin := centre - float32(side)*cfg.Spacing/2
	extent := origin + float32(side-1)*cfg.Spacing
	// Keep the block inside the particle wall band used by G2P.
	if origin < 3 || extent > float32(cfg.GridResolution-4) {
		return nil, fmt.Errorf("%w: %d particles at spacing %g need [%g, %g], grid %d",
			ErrSeedBounds, cfg.ParticleCount, cfg.Spacing, origin, extent, cfg.GridResolution)
	}

	st := &State{
		Particles: make([]Particle, cfg.ParticleCount),
		F:         make([]Mat2, cfg.ParticleCount),
		Grid:      NewGrid(cfg.GridResolution),
	}
	for n := range st.Particles {
		i, j := n/side, n%side
		st.Particles[n] = Particle{
			Pos:  Vec2{origin + float32(i)*cfg.Spacing, origin + float32(j)*cfg.Spacing},
			Mass: cfg.Mass,
		}
		st.F[n] = Identity2()
	}
	return st, nil
}

// EstimateVolumes scatters particle mass onto a cleared grid and sets each
// particle's rest volume to mass / density, where density is the
// weight-interpolated grid mass at the particle. The grid is left holding
// the scattered mass.
func EstimateVolumes(ex Executor, st *State, u Uniforms) {
	u.DT = 0
	ClearGrid(st.Grid)
	P2G(ex, st.Grid, st.Particles, st.F, u)
	run(ex, len(st.Particles), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := &st.Particles[i]
			density := Density(st.Grid, p.Pos)
			if density > 0 {
				p.Volume0 = p.Mass / density
			}
		}
	})
}

// Density returns the weight-interpolated grid mass at pos. Cell area is one
// grid unit, so this is also the mass density.
func Density(g *Grid, pos Vec2) float32 {
	var density float32
	newStencil(pos).visit(pos, func(x, y int, w float32, _ Vec2) {
		if g.Contains(x, y) {
			density += g.Cells[g.Index(x, y)].Mass * w
		}
	})
	return density
}
