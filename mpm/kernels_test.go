package mpm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkExecutor runs chunks sequentially with a fixed chunk count.
type chunkExecutor struct{ chunks int }

func (e chunkExecutor) Chunks(n int) int {
	if n < e.chunks {
		return max(n, 1)
	}
	return e.chunks
}

func (e chunkExecutor) ForRange(n int, fn func(chunk, lo, hi int)) {
	c := e.Chunks(n)
	size := (n + c - 1) / c
	for i := 0; i < c; i++ {
		lo := i * size
		hi := min(lo+size, n)
		if lo >= hi {
			continue
		}
		fn(i, lo, hi)
	}
}

func seeded(t *testing.T, cfg SeedConfig) *State {
	t.Helper()
	st, err := Seed(cfg)
	require.NoError(t, err)
	EstimateVolumes(nil, st, Uniforms{})
	return st
}

func uniforms(st *State, dt, lambda, mu, gravity float32) Uniforms {
	return Uniforms{
		DT:             dt,
		ParticleCount:  uint32(len(st.Particles)),
		ElasticLambda:  lambda,
		ElasticMu:      mu,
		Gravity:        gravity,
		GridResolution: uint32(st.Grid.Resolution),
	}
}

func TestP2GConservesMass(t *testing.T) {
	st := seeded(t, DefaultSeedConfig())
	u := uniforms(st, 0.1, 10, 20, -0.3)

	for step := 0; step < 5; step++ {
		ClearGrid(st.Grid)
		P2G(nil, st.Grid, st.Particles, st.F, u)

		var want float64
		for _, p := range st.Particles {
			want += float64(p.Mass)
		}
		assert.InEpsilon(t, want, st.Grid.TotalMass(), 1e-4, "step %d", step)

		UpdateGrid(nil, st.Grid, u)
		G2P(nil, st.Grid, st.Particles, st.F, u)
	}
}

func TestStepWithZeroTimeStepKeepsRestState(t *testing.T) {
	st := seeded(t, DefaultSeedConfig())
	before := st.Clone()
	u := uniforms(st, 0, 100, 0.1, -0.3)

	for i := 0; i < 3; i++ {
		Step(nil, st, u)
	}

	for i := range st.Particles {
		assert.Equal(t, before.Particles[i].Pos, st.Particles[i].Pos, "particle %d moved", i)
		assert.Equal(t, Vec2{}, st.Particles[i].Vel, "particle %d velocity", i)
		assert.Equal(t, Identity2(), st.F[i], "particle %d deformation", i)
	}
}

func TestSingleParticleWithoutForcesStaysPut(t *testing.T) {
	cfg := DefaultSeedConfig()
	cfg.ParticleCount = 1
	st := seeded(t, cfg)
	start := st.Particles[0].Pos
	u := uniforms(st, 0.1, 0, 0, 0)

	for i := 0; i < 20; i++ {
		Step(nil, st, u)
	}

	assert.Equal(t, start, st.Particles[0].Pos)
	assert.Equal(t, Vec2{}, st.Particles[0].Vel)
	assert.Equal(t, Identity2(), st.F[0])
}

func TestSingleParticleFallsUnderGravity(t *testing.T) {
	cfg := DefaultSeedConfig()
	cfg.ParticleCount = 1
	st := seeded(t, cfg)
	start := st.Particles[0].Pos
	u := uniforms(st, 0.1, 10, 20, -0.3)

	Step(nil, st, u)

	p := st.Particles[0]
	assert.InDelta(t, 0, float64(p.Vel.X), 1e-6)
	assert.InDelta(t, -0.03, float64(p.Vel.Y), 1e-6)
	assert.InDelta(t, float64(start.Y)-0.003, float64(p.Pos.Y), 1e-5)
}

func TestUpdateGridBoundary(t *testing.T) {
	g := NewGrid(16)
	for i := range g.Cells {
		g.Cells[i] = Cell{Vel: Vec2{2, 4}, Mass: 2}
	}
	g.Cells[g.Index(5, 5)] = Cell{Vel: Vec2{3, 3}, Mass: 0}

	UpdateGrid(nil, g, Uniforms{DT: 0.1, Gravity: -1})

	tests := []struct {
		x, y int
		want Vec2
	}{
		{8, 8, Vec2{1, 1.9}},
		{1, 8, Vec2{0, 1.9}},
		{13, 8, Vec2{1, 1.9}},
		{14, 8, Vec2{0, 1.9}},
		{8, 0, Vec2{1, 0}},
		{8, 14, Vec2{1, 0}},
		{0, 15, Vec2{0, 0}},
		{5, 5, Vec2{}},
	}
	for _, tt := range tests {
		got := g.Cells[g.Index(tt.x, tt.y)].Vel
		assert.InDelta(t, float64(tt.want.X), float64(got.X), 1e-6, "cell (%d,%d) x", tt.x, tt.y)
		assert.InDelta(t, float64(tt.want.Y), float64(got.Y), 1e-6, "cell (%d,%d) y", tt.x, tt.y)
	}
}

func TestParallelStepMatchesSerial(t *testing.T) {
	serial := seeded(t, DefaultSeedConfig())
	parallel := serial.Clone()
	u := uniforms(serial, 0.1, 10, 20, -0.3)

	for i := 0; i < 10; i++ {
		Step(nil, serial, u)
		Step(chunkExecutor{chunks: 7}, parallel, u)
	}

	for i := range serial.Particles {
		a, b := serial.Particles[i], parallel.Particles[i]
		assert.InDelta(t, float64(a.Pos.X), float64(b.Pos.X), 1e-3)
		assert.InDelta(t, float64(a.Pos.Y), float64(b.Pos.Y), 1e-3)
	}
}

func TestParallelP2GIsDeterministic(t *testing.T) {
	st := seeded(t, DefaultSeedConfig())
	u := uniforms(st, 0.1, 10, 20, -0.3)
	ex := chunkExecutor{chunks: 5}

	g1 := NewGrid(st.Grid.Resolution)
	g2 := NewGrid(st.Grid.Resolution)
	P2G(ex, g1, st.Particles, st.F, u)
	P2G(ex, g2, st.Particles, st.F, u)
	assert.Equal(t, g1.Cells, g2.Cells)
}

func TestStepStaysFinite(t *testing.T) {
	st := seeded(t, DefaultSeedConfig())
	u := uniforms(st, 0.1, 10, 20, -0.3)

	for i := 0; i < 50; i++ {
		Step(nil, st, u)
	}
	res := float32(st.Grid.Resolution)
	for i, p := range st.Particles {
		require.False(t, math.IsNaN(float64(p.Pos.X)) || math.IsNaN(float64(p.Pos.Y)), "particle %d NaN", i)
		require.GreaterOrEqual(t, p.Pos.X, float32(1))
		require.LessOrEqual(t, p.Pos.X, res-2)
		require.GreaterOrEqual(t, p.Pos.Y, float32(1))
		require.LessOrEqual(t, p.Pos.Y, res-2)
	}
}

func BenchmarkStep(b *testing.B) {
	st, err := Seed(DefaultSeedConfig())
	if err != nil {
		b.Fatal(err)
	}
	EstimateVolumes(nil, st, Uniforms{})
	u := Uniforms{DT: 0.1, ParticleCount: uint32(len(st.Particles)), ElasticLambda: 10, ElasticMu: 20, Gravity: -0.3}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Step(nil, st, u)
	}
}
