package mpm

// Particle is one material point.
type Particle struct {
	// C is the affine momentum matrix (APIC).
	C Mat2
	// Pos is the position in grid units.
	Pos Vec2
	// Vel is the velocity in grid units per unit time.
	Vel Vec2
	// Mass is constant for the lifetime of the particle.
	Mass float32
	// Volume0 is the rest volume, written once by EstimateVolumes.
	Volume0 float32
}

// Cell is one background grid node. Vel holds momentum while P2G
// accumulates and velocity after UpdateGrid.
type Cell struct {
	Vel  Vec2
	Mass float32
}

// Uniforms are the per-frame scalar parameters shared by all kernels.
type Uniforms struct {
	DT             float32
	ParticleCount  uint32
	ElasticLambda  float32
	ElasticMu      float32
	Gravity        float32
	GridResolution uint32
}

// Grid is a square grid of cells addressed as x*Resolution + y.
type Grid struct {
	Resolution int
	Cells      []Cell
}

// NewGrid allocates a zeroed grid of resolution x resolution cells.
func NewGrid(resolution int) *Grid {
	return &Grid{Resolution: resolution, Cells: make([]Cell, resolution*resolution)}
}

// Index returns the linear index of cell (x, y).
func (g *Grid) Index(x, y int) int { return x*g.Resolution + y }

// Contains reports whether (x, y) lies on the grid.
func (g *Grid) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Resolution && y < g.Resolution
}

// TotalMass returns the sum of cell masses.
func (g *Grid) TotalMass() float64 {
	var sum float64
	for i := range g.Cells {
		sum += float64(g.Cells[i].Mass)
	}
	return sum
}

// State is the complete simulation state: particles, their deformation
// gradients and the grid. Particles[i] and F[i] describe the same particle.
type State struct {
	Particles []Particle
	F         []Mat2
	Grid      *Grid
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := &State{
		Particles: append([]Particle(nil), s.Particles...),
		F:         append([]Mat2(nil), s.F...),
		Grid:      &Grid{Resolution: s.Grid.Resolution, Cells: append([]Cell(nil), s.Grid.Cells...)},
	}
	return c
}
