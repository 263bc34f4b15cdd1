package mpm

// Executor splits an index range across workers. ForRange calls fn with
// disjoint half-open chunks covering [0, n) and returns once all chunks are
// done. Chunks returns the number of chunks ForRange will produce for n.
type Executor interface {
	ForRange(n int, fn func(chunk, lo, hi int))
	Chunks(n int) int
}

// minCellMass is the mass below which a cell is treated as empty.
const minCellMass = 1e-6

// boundaryMargin is the number of cells at each edge whose normal velocity
// is zeroed by UpdateGrid.
const boundaryMargin = 2

// ClearGrid zeroes mass and velocity of every cell.
func ClearGrid(g *Grid) {
	clear(g.Cells)
}

// P2G scatters particle mass, APIC momentum and the stress force of every
// particle into the grid. The grid must have been cleared. Contributions
// to cells outside the grid are dropped.
//
// With a non-nil executor each chunk accumulates into a private grid and the
// private grids are summed in chunk order, so results do not depend on
// scheduling.
func P2G(ex Executor, g *Grid, ps []Particle, fs []Mat2, u Uniforms) {
	if ex == nil || ex.Chunks(len(ps)) <= 1 {
		scatter(g.Cells, g.Resolution, ps, fs, u)
		return
	}

	partials := make([][]Cell, ex.Chunks(len(ps)))
	ex.ForRange(len(ps), func(chunk, lo, hi int) {
		cells := make([]Cell, len(g.Cells))
		scatter(cells, g.Resolution, ps[lo:hi], fs[lo:hi], u)
		partials[chunk] = cells
	})
	for _, cells := range partials {
		for i := range cells {
			g.Cells[i].Mass += cells[i].Mass
			g.Cells[i].Vel = g.Cells[i].Vel.Add(cells[i].Vel)
		}
	}
}

func scatter(cells []Cell, res int, ps []Particle, fs []Mat2, u Uniforms) {
	for i := range ps {
		p := &ps[i]
		stress, j := NeoHookeanStress(fs[i], u.ElasticLambda, u.ElasticMu)
		volume := p.Volume0 * j
		// Fused force term of the MLS-MPM momentum update.
		force := stress.Scale(-volume * 4 * u.DT)

		st := newStencil(p.Pos)
		st.visit(p.Pos, func(x, y int, w float32, dist Vec2) {
			if x < 0 || y < 0 || x >= res || y >= res {
				return
			}
			q := p.C.MulVec(dist)
			massContrib := w * p.Mass
			c := &cells[x*res+y]
			c.Mass += massContrib
			c.Vel = c.Vel.Add(p.Vel.Add(q).Scale(massContrib))
			c.Vel = c.Vel.Add(force.Scale(w).MulVec(dist))
		})
	}
}

// UpdateGrid converts accumulated momentum into velocity for cells with
// mass, adds gravity and zeroes the velocity component normal to the domain
// walls within boundaryMargin cells of each edge. Empty cells keep zero
// velocity.
func UpdateGrid(ex Executor, g *Grid, u Uniforms) {
	run(ex, len(g.Cells), func(lo, hi int) {
		res := g.Resolution
		for i := lo; i < hi; i++ {
			c := &g.Cells[i]
			if c.Mass <= minCellMass {
				c.Vel = Vec2{}
				continue
			}
			c.Vel = c.Vel.Scale(1 / c.Mass)
			c.Vel.Y += u.DT * u.Gravity

			x, y := i/res, i%res
			if x < boundaryMargin || x > res-boundaryMargin-1 {
				c.Vel.X = 0
			}
			if y < boundaryMargin || y > res-boundaryMargin-1 {
				c.Vel.Y = 0
			}
		}
	})
}

// G2P gathers grid velocities back to the particles, rebuilds C, advects
// positions and updates the deformation gradient.
func G2P(ex Executor, g *Grid, ps []Particle, fs []Mat2, u Uniforms) {
	run(ex, len(ps), func(lo, hi int) {
		res := g.Resolution
		lowPos := float32(1)
		highPos := float32(res - 2)
		wallMin := float32(3)
		wallMax := float32(res - 4)

		for i := lo; i < hi; i++ {
			p := &ps[i]
			var vel Vec2
			var b Mat2

			st := newStencil(p.Pos)
			st.visit(p.Pos, func(x, y int, w float32, dist Vec2) {
				if x < 0 || y < 0 || x >= res || y >= res {
					return
				}
				wv := g.Cells[x*res+y].Vel.Scale(w)
				b = b.Add(Outer(wv, dist))
				vel = vel.Add(wv)
			})

			p.Vel = vel
			p.C = b.Scale(4)
			p.Pos = p.Pos.Add(p.Vel.Scale(u.DT))
			p.Pos.X = clamp(p.Pos.X, lowPos, highPos)
			p.Pos.Y = clamp(p.Pos.Y, lowPos, highPos)

			next := p.Pos.Add(p.Vel)
			if next.X < wallMin {
				p.Vel.X += wallMin - next.X
			}
			if next.X > wallMax {
				p.Vel.X += wallMax - next.X
			}
			if next.Y < wallMin {
				p.Vel.Y += wallMin - next.Y
			}
			if next.Y > wallMax {
				p.Vel.Y += wallMax - next.Y
			}

			fs[i] = Identity2().Add(p.C.Scale(u.DT)).Mul(fs[i])
		}
	})
}

// Step runs one full tick: ClearGrid, P2G, UpdateGrid, G2P.
func Step(ex Executor, st *State, u Uniforms) {
	ClearGrid(st.Grid)
	P2G(ex, st.Grid, st.Particles, st.F, u)
	UpdateGrid(ex, st.Grid, u)
	G2P(ex, st.Grid, st.Particles, st.F, u)
}

func run(ex Executor, n int, fn func(lo, hi int)) {
	if ex == nil {
		fn(0, n)
		return
	}
	ex.ForRange(n, func(_, lo, hi int) { fn(lo, hi) })
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
