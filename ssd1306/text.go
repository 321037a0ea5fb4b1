// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import "fmt"

const (
	// textHSpacing is the number of blank columns between glyphs.
	textHSpacing = 1
	// textVSpacing is the number of blank rows between lines of DrawText.
	textVSpacing = 2
	// wrapVSpacing is the number of blank rows between lines of
	// DrawTextWrapped.
	wrapVSpacing = 1
)

// DrawText draws text with its top left corner at (x,y) using the current
// font.
func (d *Dev) DrawText(x, y int, text string, on bool) error {
	return d.DrawTextScaled(x, y, text, on, 1)
}

// DrawTextScaled draws text with every font pixel enlarged to a scale×scale
// block. A scale below 1 is treated as 1.
//
// text is read rune by rune: a multi-byte UTF-8 character takes a single
// cell. '\n' moves to the start of the next line and '\r' is ignored.
// Characters missing from the font are rendered as blanks. Only lit glyph
// pixels are written: set to on, the background is left untouched.
func (d *Dev) DrawTextScaled(x, y int, text string, on bool, scale int) error {
	if d == nil {
		return ErrInvalidState
	}
	scale = max(scale, 1)
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	f := d.font
	if f == nil {
		return fmt.Errorf("%w: no font", ErrInvalidState)
	}
	gh := int(f.Height) * scale
	adv := int(f.Width)*scale + textHSpacing

	cx, cy := x, y
	b := box{x, y, x - 1, y - 1}
	for _, r := range text {
		switch r {
		case '\r':
			continue
		case '\n':
			cx = x
			cy += gh + textVSpacing
			continue
		}
		d.drawGlyph(f, cx, cy, r, on, scale)
		cx += adv
		b.x1 = max(b.x1, cx-1)
		b.y1 = max(b.y1, cy+gh-1)
	}
	if b, ok := d.fb.clip(b); ok {
		d.fb.markDirty(b)
	}
	return nil
}

// DrawTextWrapped draws text word-wrapped inside the w×h rectangle with its
// top left corner at (x,y).
func (d *Dev) DrawTextWrapped(x, y, w, h int, text string, on bool) error {
	return d.DrawTextWrappedScaled(x, y, w, h, text, on, 1)
}

// DrawTextWrappedScaled draws text word-wrapped inside the w×h rectangle with
// its top left corner at (x,y), each font pixel enlarged to a scale×scale
// block.
//
// Lines break on spaces and on '\n'. Spaces at the start of a line are
// skipped. A word wider than the rectangle is broken between characters.
// Text that doesn't fit above the bottom edge is dropped.
func (d *Dev) DrawTextWrappedScaled(x, y, w, h int, text string, on bool, scale int) error {
	if d == nil {
		return ErrInvalidState
	}
	if w <= 0 || h <= 0 || scale < 1 {
		return fmt.Errorf("%w: wrap box %dx%d scale %d", ErrInvalidArgument, w, h, scale)
	}
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	f := d.font
	if f == nil {
		return fmt.Errorf("%w: no font", ErrInvalidState)
	}
	gh := int(f.Height) * scale
	l := wrapper{
		d:     d,
		f:     f,
		on:    on,
		scale: scale,
		x:     x,
		w:     w,
		xEnd:  x + w,
		yEnd:  y + h,
		gh:    gh,
		adv:   int(f.Width)*scale + textHSpacing,
		ladv:  gh + wrapVSpacing,
		cx:    x,
		cy:    y,
	}
	l.layout([]rune(text))
	if l.touched {
		if b, ok := d.fb.clip(l.b); ok {
			d.fb.markDirty(b)
		}
	}
	return nil
}

// wrapper is the state of one DrawTextWrappedScaled call.
type wrapper struct {
	d     *Dev
	f     *Font
	on    bool
	scale int

	x, w       int // left edge and width of the box
	xEnd, yEnd int // right and bottom edges, excluded
	gh         int // scaled glyph height
	adv        int // horizontal advance per character
	ladv       int // vertical advance per line

	cx, cy  int // cursor
	touched bool
	b       box
}

// layout runs the greedy wrap: a word that fits is drawn in place, a word
// that fits on an empty line is drawn after a line break, and a longer word
// is broken between characters.
func (l *wrapper) layout(p []rune) {
	i, n := 0, len(p)
	for i < n && l.fits() {
		if l.cx == l.x {
			for i < n && p[i] == ' ' {
				i++
			}
			if i == n {
				return
			}
		}
		if p[i] == '\n' {
			l.newline()
			i++
			continue
		}

		start := i
		for i < n && p[i] != ' ' && p[i] != '\n' {
			i++
		}
		word := p[start:i]
		if len(word) == 0 {
			// A run of spaces in the middle of a line: emit one or wrap.
			if l.cx+l.adv <= l.xEnd {
				l.put(' ')
				i++
			} else {
				l.newline()
			}
			continue
		}

		px := len(word)*l.adv - textHSpacing
		switch {
		case l.cx+px <= l.xEnd:
			l.putAll(word)
			i = l.trailingSpace(p, i)
		case px <= l.w:
			l.newline()
			if !l.fits() {
				return
			}
			l.putAll(word)
			i = l.trailingSpace(p, i)
		default:
			for _, r := range word {
				if l.cx+l.adv > l.xEnd {
					l.newline()
				}
				if !l.fits() {
					return
				}
				l.put(r)
			}
			if i < n && p[i] == ' ' {
				i++
			}
		}
	}
}

// trailingSpace draws the space following a word when it fits on the line.
// Otherwise it is left to the leading space skip of the next line.
func (l *wrapper) trailingSpace(p []rune, i int) int {
	if i < len(p) && p[i] == ' ' && l.cx+l.adv <= l.xEnd {
		l.put(' ')
		i++
	}
	return i
}

func (l *wrapper) fits() bool {
	return l.cy+l.gh <= l.yEnd
}

func (l *wrapper) newline() {
	l.cx = l.x
	l.cy += l.ladv
}

func (l *wrapper) putAll(word []rune) {
	for _, r := range word {
		l.put(r)
	}
}

func (l *wrapper) put(r rune) {
	l.d.drawGlyph(l.f, l.cx, l.cy, r, l.on, l.scale)
	cell := box{l.cx, l.cy, l.cx + l.adv - 1, l.cy + l.gh - 1}
	if !l.touched {
		l.touched = true
		l.b = cell
	} else {
		l.b.x0 = min(l.b.x0, cell.x0)
		l.b.y0 = min(l.b.y0, cell.y0)
		l.b.x1 = max(l.b.x1, cell.x1)
		l.b.y1 = max(l.b.y1, cell.y1)
	}
	l.cx += l.adv
}

// drawGlyph rasterizes r at (x0,y0) column by column. It requires the lock.
func (d *Dev) drawGlyph(f *Font, x0, y0 int, r rune, on bool, scale int) {
	for cx, col := range f.glyph(r) {
		if col == 0 {
			continue
		}
		for ry := 0; ry < int(f.Height) && ry < 8; ry++ {
			if col&(1<<uint(ry)) == 0 {
				continue
			}
			bx, by := x0+cx*scale, y0+ry*scale
			for sx := 0; sx < scale; sx++ {
				for sy := 0; sy < scale; sy++ {
					d.fb.plot(bx+sx, by+sy, on)
				}
			}
		}
	}
}
