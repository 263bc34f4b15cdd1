package mpm

import "math"

// NeoHookeanStress returns the Cauchy stress of a Neo-Hookean material with
// Lamé parameters lambda and mu for deformation gradient f, together with
// J = det(f):
//
//	stress = (1/J) * (mu*(F - F⁻ᵀ) + lambda*ln(J)*F⁻ᵀ) * Fᵀ
//
// J is not clamped. A non-positive J yields NaN, which propagates into the
// particle state.
func NeoHookeanStress(f Mat2, lambda, mu float32) (Mat2, float32) {
	j := f.Det()
	fInvT := f.Inverse().Transpose()
	term := f.Sub(fInvT).Scale(mu).Add(fInvT.Scale(lambda * float32(math.Log(float64(j)))))
	return term.Mul(f.Transpose()).Scale(1 / j), j
}
