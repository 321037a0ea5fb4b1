// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package termpanel emulates a SSD1306 controller and renders its display to
// a terminal using ANSI color codes.
//
// Useful while you are waiting for your super nice OLED panel to come by
// mail. A Panel implements ssd1306.Bus so it can be handed to ssd1306.New:
//
//	p := termpanel.New(nil)
//	dev, err := ssd1306.New(p, nil)
//	...
//	err = dev.Flush()
//	err = p.Refresh()
package termpanel

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/GermanBionicSystems/oled/ssd1306"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// GDDRAM geometry of the controller.
const (
	ramW     = 128
	ramPages = 8
)

// Opts represents the options available for this emulator.
type Opts struct {
	// W and H are the visible area; they default to 128x64.
	W, H int
	// Out receives the rendering; it defaults to a colorable stdout.
	Out io.Writer
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// Lit and Unlit default to white and black.
	Lit, Unlit color.Color

	_ struct{}
}

// State is the emulated panel configuration.
type State struct {
	On       bool
	Inverted bool
	Contrast byte
	// Mode is the memory addressing mode: 0 horizontal, 1 vertical, 2 page.
	Mode byte
	// Multiplex is the number of active rows.
	Multiplex int
	// SegRemap and ComScanDec are set by 0xA1 and 0xC8.
	SegRemap   bool
	ComScanDec bool
	// StartLine is the GDDRAM row shown on the first display row.
	StartLine int
	// Scrolling is set while hardware scrolling is active. The emulator
	// doesn't move GDDRAM content.
	Scrolling bool
}

// Panel is a SSD1306 emulator that outputs to the console.
type Panel struct {
	mu      sync.Mutex
	out     io.Writer
	w, h    int
	palette ansi256.Palette
	lit     color.NRGBA
	unlit   color.NRGBA

	ram   [ramW * ramPages]byte
	state State
	// Address window and pointer.
	col0, col1   int
	page0, page1 int
	col, page    int
	// pending holds a command whose arguments did not arrive yet.
	pending []byte
	closed  bool
	lines   int
	buf     bytes.Buffer
}

// New returns a Panel that displays at the console.
func New(opts *Opts) *Panel {
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	if o.Lit == nil {
		o.Lit = color.White
	}
	if o.Unlit == nil {
		o.Unlit = color.Black
	}
	p := &Panel{
		out:   o.Out,
		w:     o.W,
		h:     o.H,
		lit:   color.NRGBAModel.Convert(o.Lit).(color.NRGBA),
		unlit: color.NRGBAModel.Convert(o.Unlit).(color.NRGBA),
	}
	if p.out == nil {
		p.out = colorable.NewColorableStdout()
	}
	if p.w <= 0 || p.w > ramW {
		p.w = ramW
	}
	if p.h <= 0 || p.h > 8*ramPages {
		p.h = 8 * ramPages
	}
	pal := o.Palette
	if pal == nil {
		pal = ansi256.Default
	}
	p.palette = *pal
	p.powerOn()
	return p
}

func (p *Panel) String() string {
	return fmt.Sprintf("termpanel{%dx%d}", p.w, p.h)
}

// SendCommand implements ssd1306.Bus.
//
// Commands and their arguments may be split across calls.
func (p *Panel) SendCommand(c []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errClosed
	}
	for _, b := range c {
		p.pending = append(p.pending, b)
		if len(p.pending) == 1+argCount(p.pending[0]) {
			p.execute(p.pending)
			p.pending = p.pending[:0]
		}
	}
	return nil
}

// SendData implements ssd1306.Bus.
//
// Bytes are written at the address pointer, which advances according to the
// addressing mode and wraps inside the column and page window.
func (p *Panel) SendData(d []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errClosed
	}
	for _, b := range d {
		p.ram[p.page*ramW+p.col] = b
		p.advance()
	}
	return nil
}

// Reset implements ssd1306.Bus. It restores the power on state; GDDRAM
// content is kept, like on the hardware.
func (p *Panel) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errClosed
	}
	p.powerOn()
	return nil
}

// Close implements ssd1306.Bus.
//
// It resets the terminal attributes so it is not corrupted.
func (p *Panel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	_, err := io.WriteString(p.out, "\033[0m\n")
	return err
}

// State returns the current panel configuration.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Pixel returns the GDDRAM bit backing (x,y), regardless of the display
// state. Coordinates outside GDDRAM return false.
func (p *Panel) Pixel(x, y int) bool {
	if uint(x) >= ramW || uint(y) >= 8*ramPages {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ram[(y/8)*ramW+x]&(1<<uint(y&7)) != 0
}

// Refresh renders the visible area to the output, above the previous
// rendering when there was one.
func (p *Panel) Refresh() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errClosed
	}
	// This code is designed to minimize the amount of memory allocated per call.
	p.buf.Reset()
	if p.lines != 0 {
		fmt.Fprintf(&p.buf, "\033[%dA", p.lines)
	}
	lit := p.palette.Block(p.lit)
	unlit := p.palette.Block(p.unlit)
	for y := 0; y < p.h; y++ {
		_, _ = p.buf.WriteString("\r\033[0m")
		for x := 0; x < p.w; x++ {
			if p.shown(x, y) {
				_, _ = p.buf.WriteString(lit)
			} else {
				_, _ = p.buf.WriteString(unlit)
			}
		}
		_, _ = p.buf.WriteString("\033[0m\n")
	}
	p.lines = p.h
	_, err := p.buf.WriteTo(p.out)
	return err
}

// shown tells if the pixel at display position (x,y) is lit.
func (p *Panel) shown(x, y int) bool {
	s := &p.state
	if !s.On || y >= s.Multiplex {
		return false
	}
	// The panel is wired with SEG127 on the left and COM63 on top, which the
	// remapped configuration undoes.
	cx, cy := x, y
	if !s.SegRemap {
		cx = ramW - 1 - x
	}
	if !s.ComScanDec {
		cy = s.Multiplex - 1 - y
	}
	cy = (cy + s.StartLine) % (8 * ramPages)
	lit := p.ram[(cy/8)*ramW+cx]&(1<<uint(cy&7)) != 0
	return lit != s.Inverted
}

func (p *Panel) powerOn() {
	p.state = State{Contrast: 0x7F, Mode: 2, Multiplex: 8 * ramPages}
	p.col0, p.col1 = 0, ramW-1
	p.page0, p.page1 = 0, ramPages-1
	p.col, p.page = 0, 0
	p.pending = p.pending[:0]
}

func (p *Panel) advance() {
	switch p.state.Mode {
	case 0:
		if p.col++; p.col > p.col1 {
			p.col = p.col0
			if p.page++; p.page > p.page1 {
				p.page = p.page0
			}
		}
	case 1:
		if p.page++; p.page > p.page1 {
			p.page = p.page0
			if p.col++; p.col > p.col1 {
				p.col = p.col0
			}
		}
	default:
		if p.col++; p.col >= ramW {
			p.col = 0
		}
	}
}

// argCount returns the number of argument bytes following command c.
func argCount(c byte) int {
	switch c {
	case 0x20, 0x81, 0x8D, 0xA8, 0xD3, 0xD5, 0xD9, 0xDA, 0xDB:
		return 1
	case 0x21, 0x22, 0xA3:
		return 2
	case 0x29, 0x2A:
		return 5
	case 0x26, 0x27:
		return 6
	}
	return 0
}

func (p *Panel) execute(c []byte) {
	s := &p.state
	switch op := c[0]; {
	case op <= 0x0F:
		// Page mode lower column nibble.
		p.col = p.col&0xF0 | int(op&0x0F)
	case op <= 0x1F:
		p.col = int(op&0x0F)<<4 | p.col&0x0F
	case op == 0x20:
		s.Mode = c[1] & 3
		if s.Mode == 3 {
			s.Mode = 2
		}
	case op == 0x21:
		p.col0, p.col1 = int(c[1]&0x7F), int(c[2]&0x7F)
		p.col = p.col0
	case op == 0x22:
		p.page0, p.page1 = int(c[1]&7), int(c[2]&7)
		p.page = p.page0
	case op == 0x2E || op == 0x2F:
		s.Scrolling = op == 0x2F
	case op >= 0x40 && op <= 0x7F:
		s.StartLine = int(op - 0x40)
	case op == 0x81:
		s.Contrast = c[1]
	case op == 0xA0 || op == 0xA1:
		s.SegRemap = op == 0xA1
	case op == 0xA6 || op == 0xA7:
		s.Inverted = op == 0xA7
	case op == 0xA8:
		s.Multiplex = min(int(c[1]&0x3F)+1, 8*ramPages)
	case op == 0xAE || op == 0xAF:
		s.On = op == 0xAF
	case op >= 0xB0 && op <= 0xB7:
		p.page = int(op & 7)
	case op == 0xC0 || op == 0xC8:
		s.ComScanDec = op == 0xC8
	}
}

var errClosed = errors.New("termpanel: closed")

var _ ssd1306.Bus = &Panel{}
var _ fmt.Stringer = &Panel{}
