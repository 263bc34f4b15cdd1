package mpm

import "math"

// Vec2 is a two-component float32 vector.
type Vec2 struct {
	X, Y float32
}

// Add returns a + b.
func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a.X + b.X, a.Y + b.Y} }

// Sub returns a - b.
func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }

// Scale returns a * s.
func (a Vec2) Scale(s float32) Vec2 { return Vec2{a.X * s, a.Y * s} }

// Dot returns the dot product of a and b.
func (a Vec2) Dot(b Vec2) float32 { return a.X*b.X + a.Y*b.Y }

// Floor returns the component-wise floor of a as integer cell coordinates.
func (a Vec2) Floor() (int, int) {
	return int(math.Floor(float64(a.X))), int(math.Floor(float64(a.Y)))
}

// Mat2 is a 2x2 float32 matrix stored column-major, matching the WGSL
// mat2x2<f32> memory layout: [c0.x, c0.y, c1.x, c1.y].
type Mat2 [4]float32

// Identity2 returns the 2x2 identity matrix.
func Identity2() Mat2 { return Mat2{1, 0, 0, 1} }

// At returns the element at row r, column c.
func (m Mat2) At(r, c int) float32 { return m[c*2+r] }

// Det returns the determinant of m.
func (m Mat2) Det() float32 { return m[0]*m[3] - m[2]*m[1] }

// Transpose returns the transpose of m.
func (m Mat2) Transpose() Mat2 { return Mat2{m[0], m[2], m[1], m[3]} }

// Inverse returns the inverse of m. The result is undefined when m is
// singular.
func (m Mat2) Inverse() Mat2 {
	inv := 1 / m.Det()
	return Mat2{m[3] * inv, -m[1] * inv, -m[2] * inv, m[0] * inv}
}

// Add returns m + n.
func (m Mat2) Add(n Mat2) Mat2 {
	return Mat2{m[0] + n[0], m[1] + n[1], m[2] + n[2], m[3] + n[3]}
}

// Sub returns m - n.
func (m Mat2) Sub(n Mat2) Mat2 {
	return Mat2{m[0] - n[0], m[1] - n[1], m[2] - n[2], m[3] - n[3]}
}

// Scale returns m * s.
func (m Mat2) Scale(s float32) Mat2 {
	return Mat2{m[0] * s, m[1] * s, m[2] * s, m[3] * s}
}

// Mul returns the matrix product m * n.
func (m Mat2) Mul(n Mat2) Mat2 {
	return Mat2{
		m[0]*n[0] + m[2]*n[1],
		m[1]*n[0] + m[3]*n[1],
		m[0]*n[2] + m[2]*n[3],
		m[1]*n[2] + m[3]*n[3],
	}
}

// MulVec returns m * v.
func (m Mat2) MulVec(v Vec2) Vec2 {
	return Vec2{m[0]*v.X + m[2]*v.Y, m[1]*v.X + m[3]*v.Y}
}

// Outer returns the outer product a * bᵀ, whose columns are a*b.X and a*b.Y.
func Outer(a, b Vec2) Mat2 {
	return Mat2{a.X * b.X, a.Y * b.X, a.X * b.Y, a.Y * b.Y}
}
