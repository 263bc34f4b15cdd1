// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/lava/gpucore"
	"github.com/gogpu/lava/mpm"
)

// DefaultMaxSpeed is the particle speed, in grid units per step, drawn with
// the hottest palette color.
const DefaultMaxSpeed = 1.0

// PointRenderer plots particles as squares into a [PixmapTarget].
type PointRenderer struct {
	target         *PixmapTarget
	gridResolution int
	pointSize      int
	maxSpeed       float32
	palette        Palette
	background     color.RGBA
	hud            *HUD
	draws          int
}

var _ gpucore.DrawTarget = (*PointRenderer)(nil)

// NewPointRenderer creates a renderer for a grid of gridResolution cells
// per axis drawn into a width x height image.
func NewPointRenderer(width, height, gridResolution int) *PointRenderer {
	return &PointRenderer{
		target:         NewPixmapTarget(width, height),
		gridResolution: gridResolution,
		pointSize:      max(1, min(width, height)/(2*max(gridResolution, 1))),
		maxSpeed:       DefaultMaxSpeed,
		palette:        LavaPalette,
		background:     color.RGBA{R: 0x0b, G: 0x0b, B: 0x10, A: 0xff},
	}
}

// SetPointSize sets the side of each particle square in pixels.
func (r *PointRenderer) SetPointSize(px int) { r.pointSize = max(1, px) }

// SetMaxSpeed sets the speed mapped to the end of the palette.
func (r *PointRenderer) SetMaxSpeed(v float32) {
	if v > 0 {
		r.maxSpeed = v
	}
}

// SetPalette replaces the speed palette.
func (r *PointRenderer) SetPalette(p Palette) { r.palette = p }

// SetHUD attaches a HUD drawn over every frame. Pass nil to remove it.
func (r *PointRenderer) SetHUD(h *HUD) { r.hud = h }

// HUD returns the attached HUD, or nil.
func (r *PointRenderer) HUD() *HUD { return r.hud }

// Draws returns the number of completed draws.
func (r *PointRenderer) Draws() int { return r.draws }

// Project maps a grid position to pixel coordinates.
func (r *PointRenderer) Project(p mpm.Vec2) (int, int) {
	w, h := r.target.Width(), r.target.Height()
	res := float32(r.gridResolution)
	x := p.X / res * float32(w)
	y := float32(h) - p.Y/res*float32(h)
	return int(x), int(y)
}

// DrawVertices implements gpucore.DrawTarget. vertices holds count
// particle records of stride bytes.
func (r *PointRenderer) DrawVertices(vertices []byte, count, stride int) error {
	if stride != mpm.ParticleStride {
		return fmt.Errorf("render: vertex stride %d, want %d", stride, mpm.ParticleStride)
	}
	if len(vertices) < count*stride {
		return fmt.Errorf("render: %d vertices need %d bytes, got %d", count, count*stride, len(vertices))
	}

	r.target.Clear(r.background)
	half := r.pointSize / 2
	for i := range count {
		pos := mpm.ParticlePosition(vertices, i)
		vel := mpm.ParticleVelocity(vertices, i)
		speed := float32(math.Sqrt(float64(vel.Dot(vel))))
		x, y := r.Project(pos)
		r.target.FillRect(x-half, y-half, r.pointSize, r.palette.At(speed/r.maxSpeed))
	}
	if r.hud != nil {
		r.hud.Draw(r.target.Image())
	}
	r.draws++
	return nil
}

// Resize changes the output size. The point size is kept.
func (r *PointRenderer) Resize(width, height int) error {
	return r.target.Resize(width, height)
}

// Image returns the last drawn frame. It shares memory with the renderer.
func (r *PointRenderer) Image() *image.RGBA { return r.target.Image() }

// Scaled returns a copy of the last frame scaled to width x height.
func (r *PointRenderer) Scaled(width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	src := r.target.Image()
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// SavePNG writes the last frame to path.
func (r *PointRenderer) SavePNG(path string) error {
	return savePNG(path, r.target.Image())
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("render: encode %s: %w", path, err)
	}
	return f.Close()
}

// SaveScaledPNG writes the last frame scaled to width x height.
func (r *PointRenderer) SaveScaledPNG(path string, width, height int) error {
	return savePNG(path, r.Scaled(width, height))
}
