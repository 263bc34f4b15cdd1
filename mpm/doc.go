// Package mpm holds the data model and CPU reference kernels of the
// MLS-MPM (moving least squares material point method) continuum solver.
//
// Particles carry position, velocity, mass, rest volume and an affine
// momentum matrix C. A separate array holds the deformation gradient F of
// every particle. Each simulation tick runs four kernels over a uniform
// background grid:
//
//  1. ClearGrid: zero every cell.
//  2. P2G: scatter mass, momentum and stress forces from particles to the
//     3x3 neighbourhood of grid cells using quadratic B-spline weights.
//  3. UpdateGrid: turn momentum into velocity, apply gravity and zero the
//     boundary components.
//  4. G2P: gather velocities back, rebuild C, advect and update F.
//
// The same kernels run on the GPU as WGSL compute shaders; the functions in
// this package are their host mirrors and are used by the software backend,
// by seeding and by tests. Buffer layouts used on the GPU are defined in
// layout.go.
//
// Grid cells are addressed row-major with x as the major axis:
// index = x*resolution + y.
package mpm
