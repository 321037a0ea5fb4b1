// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import (
	"image"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// ownership tells who manages the framebuffer memory.
type ownership int

const (
	// owned buffers are allocated by New and dropped by Close.
	owned ownership = iota
	// borrowed buffers come from Opts.Buffer. The caller keeps them alive
	// and may change them behind the driver's back, so they are always
	// flushed whole.
	borrowed
)

// box is an inclusive rectangle in display coordinates.
type box struct {
	x0, y0, x1, y1 int
}

// framebuffer is the GDDRAM mirror.
//
// See page 25 of the datasheet for the GDDRAM pages structure. There are
// H/8 pages, each covering an horizontal band of 8 pixels high (1 byte) for
// W bytes. 8*128 = 1024 bytes total for 128x64 display.
//
// All methods expect the Dev lock to be held and coordinates to be clipped.
type framebuffer struct {
	img   *image1bit.VerticalLSB
	owner ownership
	w, h  int

	dirty    bool
	dirtyBox box
}

func newFramebuffer(w, h int, buf []byte) (*framebuffer, error) {
	r := image.Rect(0, 0, w, h)
	fb := &framebuffer{w: w, h: h, owner: owned}
	if buf != nil {
		if len(buf) != w*h/8 {
			return nil, ErrInvalidSize
		}
		fb.img = &image1bit.VerticalLSB{Pix: buf, Stride: w, Rect: r}
		fb.owner = borrowed
	} else {
		fb.img = image1bit.NewVerticalLSB(r)
	}
	return fb, nil
}

func (f *framebuffer) pix() []byte {
	return f.img.Pix
}

func (f *framebuffer) pages() int {
	return f.h / 8
}

// setPixel sets or clears bit y%8 of byte (y/8)*w+x.
func (f *framebuffer) setPixel(x, y int, on bool) {
	mask := byte(1 << uint(y&7))
	i := (y>>3)*f.w + x
	if on {
		f.img.Pix[i] |= mask
	} else {
		f.img.Pix[i] &^= mask
	}
}

// plot sets the pixel when it is visible.
func (f *framebuffer) plot(x, y int, on bool) {
	if f.visible(x, y) {
		f.setPixel(x, y, on)
	}
}

func (f *framebuffer) visible(x, y int) bool {
	return uint(x) < uint(f.w) && uint(y) < uint(f.h)
}

// hline sets pixels [x0..x1] of row y, clipped.
func (f *framebuffer) hline(x0, x1, y int) {
	if y < 0 || y >= f.h {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 < 0 || x0 >= f.w {
		return
	}
	x0 = max(x0, 0)
	x1 = min(x1, f.w-1)
	for x := x0; x <= x1; x++ {
		f.setPixel(x, y, true)
	}
}

// fill sets the clipped inclusive rectangle one page byte at a time.
func (f *framebuffer) fill(b box) {
	firstPage := b.y0 >> 3
	lastPage := b.y1 >> 3
	// Bits from y0%8 to 7 and from 0 to y1%8.
	firstMask := byte(0xFF << uint(b.y0&7))
	lastMask := byte(0xFF >> uint(7-b.y1&7))
	if firstPage == lastPage {
		firstMask &= lastMask
	}
	for page := firstPage; page <= lastPage; page++ {
		mask := byte(0xFF)
		switch page {
		case firstPage:
			mask = firstMask
		case lastPage:
			mask = lastMask
		}
		row := f.img.Pix[page*f.w+b.x0 : page*f.w+b.x1+1]
		for i := range row {
			row[i] |= mask
		}
	}
}

func (f *framebuffer) clear() {
	clear(f.img.Pix)
	f.markDirty(box{0, 0, f.w - 1, f.h - 1})
}

// markDirty unions b into the dirty box. b may extend past the display.
func (f *framebuffer) markDirty(b box) {
	if !f.dirty {
		f.dirty = true
		f.dirtyBox = b
		return
	}
	d := &f.dirtyBox
	d.x0 = min(d.x0, b.x0)
	d.y0 = min(d.y0, b.y0)
	d.x1 = max(d.x1, b.x1)
	d.y1 = max(d.y1, b.y1)
}

func (f *framebuffer) resetDirty() {
	f.dirty = false
	f.dirtyBox = box{}
}

// clip returns b restricted to the display. ok is false when nothing is
// left.
func (f *framebuffer) clip(b box) (box, bool) {
	b.x0 = max(b.x0, 0)
	b.y0 = max(b.y0, 0)
	b.x1 = min(b.x1, f.w-1)
	b.y1 = min(b.y1, f.h-1)
	return b, b.x0 <= b.x1 && b.y0 <= b.y1
}
