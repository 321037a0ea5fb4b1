// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package imgconv converts arbitrary images into the 1 bit page layout of
// monochrome OLED controllers.
package imgconv

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/MaxHalford/halfgone"
	"github.com/disintegration/imaging"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Opts controls the conversion.
type Opts struct {
	// Dither spreads the quantization error with Floyd-Steinberg instead of
	// thresholding each pixel at half intensity.
	Dither bool
	// Invert lights the dark pixels.
	Invert bool
}

// Convert renders src into a new image of bounds, which must start at {0, 0}
// and be a whole number of 8 pixels pages high.
//
// A src of another size is scaled to fit, keeping its aspect ratio.
func Convert(src image.Image, bounds image.Rectangle, opts *Opts) (*image1bit.VerticalLSB, error) {
	if src == nil {
		return nil, errors.New("imgconv: nil image")
	}
	if bounds.Min != (image.Point{}) || bounds.Empty() || bounds.Dy()%8 != 0 {
		return nil, fmt.Errorf("imgconv: invalid bounds %s", bounds)
	}
	o := Opts{}
	if opts != nil {
		o = *opts
	}

	gray := image.NewGray(bounds)
	if src.Bounds().Size() != bounds.Size() {
		scaled := imaging.Fit(src, bounds.Max.X, bounds.Max.Y, imaging.Lanczos)
		draw.Draw(gray, bounds, scaled, image.Point{}, draw.Src)
	} else {
		draw.Draw(gray, bounds, src, src.Bounds().Min, draw.Src)
	}
	if o.Invert {
		for i, v := range gray.Pix {
			gray.Pix[i] = ^v
		}
	}
	var mono image.Image = gray
	if o.Dither {
		mono = halfgone.FloydSteinbergDitherer{}.Apply(gray)
	}

	dst := image1bit.NewVerticalLSB(bounds)
	draw.Draw(dst, bounds, mono, image.Point{}, draw.Src)
	return dst, nil
}
