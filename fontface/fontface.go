// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package fontface converts vector and bitmap fonts into ssd1306.Font
// descriptors.
//
// Only small faces are supported: a ssd1306.Font glyph is at most 8 pixels
// high.
package fontface

import (
	"errors"
	"fmt"
	"image"

	"github.com/GermanBionicSystems/oled/ssd1306"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// maxHeight is the tallest glyph a ssd1306.Font can hold.
const maxHeight = 8

// FromFace rasterizes the characters first to last of face into a
// monospace font. The cell is as wide as the widest advance and as high as
// the face ascent plus descent.
func FromFace(face font.Face, first, last byte) (*ssd1306.Font, error) {
	if face == nil {
		return nil, errors.New("fontface: nil face")
	}
	if first > last {
		return nil, fmt.Errorf("fontface: invalid range %d-%d", first, last)
	}
	m := face.Metrics()
	ascent := m.Ascent.Ceil()
	h := ascent + m.Descent.Ceil()
	if h <= 0 || h > maxHeight {
		return nil, fmt.Errorf("fontface: face is %d pixels high, at most %d is supported", h, maxHeight)
	}
	w := 0
	for c := int(first); c <= int(last); c++ {
		if adv, ok := face.GlyphAdvance(rune(c)); ok {
			w = max(w, adv.Ceil())
		}
	}
	if w == 0 || w > 255 {
		return nil, fmt.Errorf("fontface: invalid glyph width %d", w)
	}

	f := &ssd1306.Font{
		Width:  uint8(w),
		Height: uint8(h),
		First:  first,
		Last:   last,
		Bitmap: make([]byte, 0, (int(last)-int(first)+1)*w),
	}
	cell := image.NewAlpha(image.Rect(0, 0, w, h))
	d := font.Drawer{Dst: cell, Src: image.Opaque, Face: face}
	for c := int(first); c <= int(last); c++ {
		clear(cell.Pix)
		d.Dot = fixed.P(0, ascent)
		d.DrawString(string(rune(c)))
		for x := 0; x < w; x++ {
			var col byte
			for y := 0; y < h; y++ {
				if cell.AlphaAt(x, y).A >= 0x80 {
					col |= 1 << uint(y)
				}
			}
			f.Bitmap = append(f.Bitmap, col)
		}
	}
	return f, nil
}

// FromTrueType parses a TrueType font and rasterizes ASCII 32 to 126 at size
// points, at 72 DPI so a point is a pixel.
func FromTrueType(ttf []byte, size float64) (*ssd1306.Font, error) {
	tt, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("fontface: %w", err)
	}
	face := truetype.NewFace(tt, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()
	return FromFace(face, 32, 126)
}
