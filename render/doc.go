// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render draws the particle vertex stream of a simulation into a
// CPU image.
//
// [PointRenderer] implements gpucore.DrawTarget: every draw clears the
// target, plots each particle as a small square colored by speed and
// overlays an optional HUD. Grid coordinates map to pixels with the y axis
// pointing up, so gravity pulls the material toward the bottom edge.
//
// # Usage
//
//	r := render.NewPointRenderer(512, 512, 64)
//	sim, _ := lava.New(dev, cfg, lava.WithRenderer(r))
//	sim.Frame(0)
//	_ = r.SavePNG("frame.png")
//
// # Targets
//
// [PixmapTarget] is the CPU-backed *image.RGBA the renderer draws into.
// Output images can be scaled with [PointRenderer.Scaled].
package render
