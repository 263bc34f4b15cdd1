package mpm

// QuadraticWeights returns the quadratic B-spline weights of the three cells
// around a particle for the signed offset d = frac(pos) - 0.5 along one axis.
// The weights always sum to one.
func QuadraticWeights(d float32) [3]float32 {
	return [3]float32{
		0.5 * (0.5 - d) * (0.5 - d),
		0.75 - d*d,
		0.5 * (0.5 + d) * (0.5 + d),
	}
}

// stencil is the 3x3 interpolation footprint of a particle.
type stencil struct {
	// cx, cy is the integer cell containing the particle.
	cx, cy int
	wx, wy [3]float32
}

func newStencil(pos Vec2) stencil {
	cx, cy := pos.Floor()
	dx := pos.X - float32(cx) - 0.5
	dy := pos.Y - float32(cy) - 0.5
	return stencil{cx: cx, cy: cy, wx: QuadraticWeights(dx), wy: QuadraticWeights(dy)}
}

// visit calls fn for each of the nine neighbouring cells with the cell
// coordinates, the combined weight and the offset from the particle to the
// cell centre.
func (s stencil) visit(pos Vec2, fn func(x, y int, w float32, dist Vec2)) {
	for gx := 0; gx < 3; gx++ {
		for gy := 0; gy < 3; gy++ {
			x := s.cx + gx - 1
			y := s.cy + gy - 1
			dist := Vec2{float32(x) - pos.X + 0.5, float32(y) - pos.Y + 0.5}
			fn(x, y, s.wx[gx]*s.wy[gy], dist)
		}
	}
}
