// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import "fmt"

// Clear sets every pixel off and marks the whole display for the next Flush.
func (d *Dev) Clear() error {
	if d == nil {
		return ErrInvalidState
	}
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.fb.clear()
	return nil
}

// DrawPixel sets (on) or clears a single pixel.
//
// Unlike the other primitives, coordinates outside the display are an error.
func (d *Dev) DrawPixel(x, y int, on bool) error {
	if d == nil {
		return ErrInvalidState
	}
	if uint(x) >= uint(d.rect.Dx()) || uint(y) >= uint(d.rect.Dy()) {
		return fmt.Errorf("%w: pixel (%d,%d) outside %s", ErrInvalidArgument, x, y, d.rect.Max)
	}
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.fb.setPixel(x, y, on)
	d.fb.markDirty(box{x, y, x, y})
	return nil
}

// DrawLine draws a straight line between (x0,y0) and (x1,y1), both
// included. Parts outside the display are clipped.
func (d *Dev) DrawLine(x0, y0, x1, y1 int, on bool) error {
	if d == nil {
		return ErrInvalidState
	}
	w, h := d.rect.Dx(), d.rect.Dy()
	// Trivial reject when both ends are past the same edge.
	if (x0 < 0 && x1 < 0) || (y0 < 0 && y1 < 0) || (x0 >= w && x1 >= w) || (y0 >= h && y1 >= h) {
		return nil
	}
	b := box{min(x0, x1), min(y0, y1), max(x0, x1), max(y0, y1)}

	dx, sx := x1-x0, 1
	if dx < 0 {
		dx, sx = -dx, -1
	}
	dy, sy := y1-y0, 1
	if dy < 0 {
		dy, sy = -dy, -1
	}
	e := dx - dy

	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	for {
		d.fb.plot(x0, y0, on)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x0 += sx
		}
		if e2 < dx {
			e += dx
			y0 += sy
		}
	}
	if b, ok := d.fb.clip(b); ok {
		d.fb.markDirty(b)
	}
	return nil
}

// DrawRect draws a w×h rectangle with its top left corner at (x,y).
//
// The rectangle is first shrunk to its visible part; when fill is false the
// four edges of that visible rectangle are drawn.
func (d *Dev) DrawRect(x, y, w, h int, fill bool) error {
	if d == nil {
		return ErrInvalidState
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: rectangle %dx%d", ErrInvalidArgument, w, h)
	}
	c := box{max(x, 0), max(y, 0), min(x+w, d.rect.Dx()) - 1, min(y+h, d.rect.Dy()) - 1}
	if c.x0 > c.x1 || c.y0 > c.y1 {
		return nil
	}

	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	if fill {
		d.fb.fill(c)
	} else {
		for xx := c.x0; xx <= c.x1; xx++ {
			d.fb.setPixel(xx, c.y0, true)
			d.fb.setPixel(xx, c.y1, true)
		}
		for yy := c.y0; yy <= c.y1; yy++ {
			d.fb.setPixel(c.x0, yy, true)
			d.fb.setPixel(c.x1, yy, true)
		}
	}
	d.fb.markDirty(c)
	return nil
}

// DrawCircle draws a circle of radius r centered on (xc,yc).
//
// A radius of 0 draws the single center pixel, which must then be on screen.
func (d *Dev) DrawCircle(xc, yc, r int, fill bool) error {
	if d == nil {
		return ErrInvalidState
	}
	if r < 0 {
		return fmt.Errorf("%w: radius %d", ErrInvalidArgument, r)
	}
	if r == 0 {
		return d.DrawPixel(xc, yc, true)
	}

	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	// Midpoint circle algorithm.
	x, y := r, 0
	e := 1 - r
	for x >= y {
		if fill {
			// Four spans: top/bottom at ±y and at ±x.
			d.fb.hline(xc-x, xc+x, yc+y)
			d.fb.hline(xc-x, xc+x, yc-y)
			d.fb.hline(xc-y, xc+y, yc+x)
			d.fb.hline(xc-y, xc+y, yc-x)
		} else {
			d.fb.plot(xc+x, yc+y, true)
			d.fb.plot(xc+y, yc+x, true)
			d.fb.plot(xc-y, yc+x, true)
			d.fb.plot(xc-x, yc+y, true)
			d.fb.plot(xc-x, yc-y, true)
			d.fb.plot(xc-y, yc-x, true)
			d.fb.plot(xc+y, yc-x, true)
			d.fb.plot(xc+x, yc-y, true)
		}
		y++
		if e < 0 {
			e += 2*y + 1
		} else {
			x--
			e += 2*(y-x) + 1
		}
	}
	// One bounding box mark is sufficient.
	if b, ok := d.fb.clip(box{xc - r, yc - r, xc + r, yc + r}); ok {
		d.fb.markDirty(b)
	}
	return nil
}

// DrawBitmap copies a w×h bitmap with its top left corner at (x,y). Set bits
// turn pixels on and cleared bits turn them off.
//
// bitmap rows are MSB first and padded to a whole byte, so it holds at least
// (w+7)/8*h bytes. Parts outside the display are clipped.
func (d *Dev) DrawBitmap(x, y int, bitmap []byte, w, h int) error {
	if d == nil {
		return ErrInvalidState
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: bitmap %dx%d", ErrInvalidArgument, w, h)
	}
	stride := (w + 7) / 8
	if len(bitmap) < stride*h {
		return fmt.Errorf("%w: bitmap holds %d bytes, %dx%d needs %d", ErrInvalidArgument, len(bitmap), w, h, stride*h)
	}

	// Clip each edge.
	srcX, srcY := 0, 0
	dstX, dstY := x, y
	cw, ch := w, h
	if x < 0 {
		srcX = -x
		dstX = 0
		cw -= srcX
	}
	if y < 0 {
		srcY = -y
		dstY = 0
		ch -= srcY
	}
	if dstX+cw > d.rect.Dx() {
		cw = d.rect.Dx() - dstX
	}
	if dstY+ch > d.rect.Dy() {
		ch = d.rect.Dy() - dstY
	}
	if cw <= 0 || ch <= 0 {
		return nil
	}

	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	for py := 0; py < ch; py++ {
		row := bitmap[(srcY+py)*stride:]
		for px := 0; px < cw; px++ {
			sx := srcX + px
			on := row[sx>>3]&(0x80>>uint(sx&7)) != 0
			d.fb.setPixel(dstX+px, dstY+py, on)
		}
	}
	d.fb.markDirty(box{dstX, dstY, dstX + cw - 1, dstY + ch - 1})
	return nil
}
