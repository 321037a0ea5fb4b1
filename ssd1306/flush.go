// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

// Flush sends the modified part of the framebuffer to the display.
//
// With a driver owned framebuffer, only the pages and columns covering the
// pixels drawn since the last successful Flush are sent, and nothing at all
// when nothing was drawn. When a transfer fails the modified region is kept
// so the next Flush sends it again.
//
// A caller owned framebuffer (Opts.Buffer) is always sent whole and is
// considered clean afterward, even on failure.
func (d *Dev) Flush() error {
	if d == nil {
		return ErrInvalidState
	}
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	return d.flushLocked()
}

func (d *Dev) flushLocked() error {
	fb := d.fb
	if fb.owner == borrowed {
		err := d.setWindow(0, fb.w-1, 0, fb.pages()-1)
		if err == nil {
			err = d.sendData(fb.pix())
		}
		fb.resetDirty()
		return err
	}

	if !fb.dirty {
		return nil
	}
	b, ok := fb.clip(fb.dirtyBox)
	if !ok {
		// Everything drawn was off screen.
		fb.resetDirty()
		return nil
	}
	p0, p1 := b.y0>>3, b.y1>>3
	if err := d.setWindow(b.x0, b.x1, p0, p1); err != nil {
		return err
	}
	pix := fb.pix()
	for page := p0; page <= p1; page++ {
		row := page * fb.w
		if err := d.sendData(pix[row+b.x0 : row+b.x1+1]); err != nil {
			return err
		}
	}
	fb.resetDirty()
	return nil
}

// setWindow selects the GDDRAM area written by the following data, in
// horizontal addressing mode.
func (d *Dev) setWindow(x0, x1, p0, p1 int) error {
	return d.sendCommand([]byte{
		_COLUMNADDR, byte(x0), byte(x1),
		_PAGEADDR, byte(p0), byte(p1),
	})
}
