// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import "image/color"

// Palette maps a normalized value in [0, 1] to a color.
type Palette []color.RGBA

// LavaPalette runs from dark crust through red and orange to a white-hot
// core.
var LavaPalette = Palette{
	{R: 0x3a, G: 0x08, B: 0x04, A: 0xff},
	{R: 0xa3, G: 0x16, B: 0x08, A: 0xff},
	{R: 0xf0, G: 0x5a, B: 0x12, A: 0xff},
	{R: 0xff, G: 0xb3, B: 0x2e, A: 0xff},
	{R: 0xff, G: 0xf4, B: 0xc8, A: 0xff},
}

// At interpolates linearly between the palette stops. Values outside
// [0, 1] are clamped.
func (p Palette) At(t float32) color.RGBA {
	switch {
	case len(p) == 0:
		return color.RGBA{A: 0xff}
	case len(p) == 1 || t <= 0:
		return p[0]
	case t >= 1:
		return p[len(p)-1]
	}
	pos := t * float32(len(p)-1)
	i := int(pos)
	f := pos - float32(i)
	a, b := p[i], p[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(float32(x) + (float32(y)-float32(x))*f + 0.5)
	}
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: lerp(a.A, b.A)}
}
