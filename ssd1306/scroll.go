// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import "fmt"

// FrameRate determines scrolling speed.
type FrameRate byte

// Possible frame rates. The value determines the number of refreshes between
// movement. The lower value, the higher speed.
const (
	FrameRate2   FrameRate = 7
	FrameRate3   FrameRate = 4
	FrameRate4   FrameRate = 5
	FrameRate5   FrameRate = 0
	FrameRate25  FrameRate = 6
	FrameRate64  FrameRate = 1
	FrameRate128 FrameRate = 2
	FrameRate256 FrameRate = 3
)

// Orientation is used for scrolling.
type Orientation byte

// Possible orientations for scrolling.
const (
	Left    Orientation = 0x27
	Right   Orientation = 0x26
	UpRight Orientation = 0x29
	UpLeft  Orientation = 0x2A
)

const (
	_ACTIVATESCROLL   = 0x2F
	_DEACTIVATESCROLL = 0x2E
)

// Scroll starts the hardware scrolling of the band from startLine to
// endLine, excluded.
//
// Both startLine and endLine must be multiples of 8. Use -1 for endLine to
// extend to the bottom of the display. The controller scrolls GDDRAM content
// in place; call StopScroll before drawing again.
func (d *Dev) Scroll(o Orientation, rate FrameRate, startLine, endLine int) error {
	if d == nil {
		return ErrInvalidState
	}
	h := d.rect.Dy()
	if endLine == -1 {
		endLine = h
	}
	if startLine >= endLine {
		return fmt.Errorf("%w: startLine (%d) must be lower than endLine (%d)", ErrInvalidArgument, startLine, endLine)
	}
	if startLine&7 != 0 || startLine < 0 || startLine >= h {
		return fmt.Errorf("%w: startLine %d", ErrInvalidArgument, startLine)
	}
	if endLine&7 != 0 || endLine > h {
		return fmt.Errorf("%w: endLine %d", ErrInvalidArgument, endLine)
	}
	if rate > FrameRate2 {
		return fmt.Errorf("%w: frame rate %d", ErrInvalidArgument, rate)
	}
	startPage := byte(startLine / 8)
	endPage := byte(endLine/8) - 1
	switch o {
	case Left, Right:
		// page 28
		// <op>, dummy, <start page>, <rate>,  <end page>, <dummy>, <dummy>, <ENABLE>
		return d.command(byte(o), 0x00, startPage, byte(rate), endPage, 0x00, 0xFF, _ACTIVATESCROLL)
	case UpRight, UpLeft:
		// page 29
		// <op>, dummy, <start page>, <rate>,  <end page>, <offset>, <ENABLE>
		return d.command(byte(o), 0x00, startPage, byte(rate), endPage, 0x01, _ACTIVATESCROLL)
	}
	return fmt.Errorf("%w: orientation %#x", ErrInvalidArgument, byte(o))
}

// StopScroll stops any scrolling previously set.
//
// The scrolled GDDRAM content is not restored; the next Flush only rewrites
// the modified area, so call Clear or redraw to resynchronize the display.
func (d *Dev) StopScroll() error {
	return d.command(_DEACTIVATESCROLL)
}

// SetDisplayStartLine causes the display to start from startLine, effectively
// scrolling the screen to that position.
//
// startLine must be between 0 and 63.
func (d *Dev) SetDisplayStartLine(startLine byte) error {
	if startLine > 63 {
		return fmt.Errorf("%w: startLine %d", ErrInvalidArgument, startLine)
	}
	return d.command(_SETSTARTLINE | startLine)
}
