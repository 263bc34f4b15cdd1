// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DefaultHUDSize is the HUD font size in pixels.
const DefaultHUDSize = 12

var (
	hudFontOnce sync.Once
	hudFont     *opentype.Font
	hudFontErr  error
)

func parsedHUDFont() (*opentype.Font, error) {
	hudFontOnce.Do(func() {
		hudFont, hudFontErr = opentype.Parse(goregular.TTF)
	})
	return hudFont, hudFontErr
}

// HUD draws lines of text in the top-left corner of an image.
type HUD struct {
	face   font.Face
	color  color.RGBA
	lines  []string
	margin int
}

// NewHUD creates a HUD using Go Regular at the given pixel size.
func NewHUD(size float64) (*HUD, error) {
	f, err := parsedHUDFont()
	if err != nil {
		return nil, fmt.Errorf("render: parse HUD font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("render: create HUD face: %w", err)
	}
	return &HUD{
		face:   face,
		color:  color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		margin: 4,
	}, nil
}

// SetLines replaces the HUD text.
func (h *HUD) SetLines(lines ...string) {
	h.lines = append(h.lines[:0], lines...)
}

// Lines returns the current HUD text.
func (h *HUD) Lines() []string { return h.lines }

// Draw renders the lines onto dst.
func (h *HUD) Draw(dst *image.RGBA) {
	if len(h.lines) == 0 {
		return
	}
	m := h.face.Metrics()
	lineHeight := m.Height.Ceil()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(h.color),
		Face: h.face,
	}
	for i, line := range h.lines {
		d.Dot = fixed.P(h.margin, h.margin+m.Ascent.Ceil()+i*lineHeight)
		d.DrawString(line)
	}
}

// Close releases the font face.
func (h *HUD) Close() error {
	return h.face.Close()
}
