// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

var errFake = errors.New("fake failure")

type record struct {
	cmd  []byte
	data []byte
}

// fakeBus records the traffic of a Dev.
type fakeBus struct {
	mu     sync.Mutex
	ops    []record
	resets int
	closed int

	failCmd   bool
	failReset bool
	failClose bool
	// failData fails the n-th SendData call (1 based) when not zero.
	failData int
	nData    int
}

func (b *fakeBus) SendCommand(c []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failCmd {
		return errFake
	}
	b.ops = append(b.ops, record{cmd: append([]byte(nil), c...)})
	return nil
}

func (b *fakeBus) SendData(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nData++
	if b.failData != 0 && b.nData == b.failData {
		return errFake
	}
	b.ops = append(b.ops, record{data: append([]byte(nil), p...)})
	return nil
}

func (b *fakeBus) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets++
	if b.failReset {
		return errFake
	}
	return nil
}

func (b *fakeBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	if b.failClose {
		return errFake
	}
	return nil
}

// take returns the recorded operations and forgets them.
func (b *fakeBus) take() []record {
	b.mu.Lock()
	defer b.mu.Unlock()
	ops := b.ops
	b.ops = nil
	return ops
}

func diffOps(got, want []record) string {
	return cmp.Diff(got, want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{}))
}

// newTestDev returns a Dev whose initial full screen refresh was already
// flushed and recorded traffic discarded.
func newTestDev(t *testing.T, opts *Opts) (*Dev, *fakeBus) {
	t.Helper()
	b := &fakeBus{}
	d, err := New(b, opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	b.take()
	return d, b
}

func initSeq(h, comPins byte) []byte {
	return []byte{
		0xAE, 0x20, 0x00, 0xA8, h - 1, 0xD3, 0x00, 0x40, 0xA1, 0xC8, 0xDA, comPins,
		0x81, 0x7F, 0xA4, 0xA6, 0xD5, 0x80, 0xD9, 0xF1, 0xDB, 0x40, 0x8D, 0x14, 0xAF,
	}
}

func TestNew_invalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts Opts
		want error
	}{
		{"zero width", Opts{W: 0, H: 64}, ErrInvalidArgument},
		{"zero height", Opts{W: 128, H: 0}, ErrInvalidArgument},
		{"negative width", Opts{W: -8, H: 64}, ErrInvalidArgument},
		{"wide", Opts{W: 136, H: 64}, ErrInvalidArgument},
		{"tall", Opts{W: 128, H: 72}, ErrInvalidArgument},
		{"not paged", Opts{W: 128, H: 60}, ErrInvalidArgument},
		{"short buffer", Opts{W: 128, H: 64, Buffer: make([]byte, 1023)}, ErrInvalidSize},
		{"long buffer", Opts{W: 128, H: 32, Buffer: make([]byte, 1024)}, ErrInvalidSize},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := &fakeBus{}
			d, err := New(b, &tc.opts)
			if !errors.Is(err, tc.want) {
				t.Fatalf("New() = %v, want %v", err, tc.want)
			}
			if d != nil {
				t.Fatal("expected nil Dev")
			}
			if b.resets != 0 || len(b.ops) != 0 {
				t.Fatal("validation failures must not touch the bus")
			}
		})
	}
	if _, err := New(nil, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("New(nil) = %v", err)
	}
}

func TestNew_initSequence(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts *Opts
		want []byte
	}{
		{"default", nil, initSeq(64, 0x12)},
		{"128x32", &Opts{W: 128, H: 32}, initSeq(32, 0x02)},
		{"64x48", &Opts{W: 64, H: 48}, initSeq(48, 0x12)},
		{
			"mirrored",
			&Opts{W: 128, H: 16, MirrorHorizontal: true, MirrorVertical: true},
			[]byte{
				0xAE, 0x20, 0x00, 0xA8, 15, 0xD3, 0x00, 0x40, 0xA0, 0xC0, 0xDA, 0x02,
				0x81, 0x7F, 0xA4, 0xA6, 0xD5, 0x80, 0xD9, 0xF1, 0xDB, 0x40, 0x8D, 0x14, 0xAF,
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := &fakeBus{}
			if _, err := New(b, tc.opts); err != nil {
				t.Fatal(err)
			}
			if b.resets != 1 {
				t.Fatalf("resets = %d", b.resets)
			}
			if diff := diffOps(b.take(), []record{{cmd: tc.want}}); diff != "" {
				t.Errorf("New() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestNew_busFailure(t *testing.T) {
	for _, tc := range []struct {
		name string
		bus  *fakeBus
	}{
		{"reset", &fakeBus{failReset: true}},
		{"init", &fakeBus{failCmd: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d, err := New(tc.bus, nil)
			if !errors.Is(err, ErrIO) || !errors.Is(err, errFake) {
				t.Fatalf("New() = %v", err)
			}
			if d != nil {
				t.Fatal("expected nil Dev")
			}
			if tc.bus.closed != 1 {
				t.Fatalf("bus must be closed on failure, closed = %d", tc.bus.closed)
			}
		})
	}
}

func TestDev_String(t *testing.T) {
	d, _ := newTestDev(t, &Opts{W: 128, H: 32})
	if d.String() == "" {
		t.Fatal("empty String()")
	}
	if got := d.Bounds(); got != image.Rect(0, 0, 128, 32) {
		t.Fatalf("Bounds() = %v", got)
	}
	if d.ColorModel() != image1bit.BitModel {
		t.Fatal("unexpected ColorModel()")
	}
}

func TestDrawPixel(t *testing.T) {
	d, _ := newTestDev(t, nil)
	if err := d.DrawPixel(3, 10, true); err != nil {
		t.Fatal(err)
	}
	// Page 1, column 3, bit 2.
	if got := d.fb.pix()[128+3]; got != 0x04 {
		t.Fatalf("byte = %#x", got)
	}
	if diff := cmp.Diff(d.fb.dirtyBox, box{3, 10, 3, 10}, cmp.AllowUnexported(box{})); diff != "" {
		t.Fatal(diff)
	}
	if err := d.DrawPixel(3, 10, false); err != nil {
		t.Fatal(err)
	}
	if got := d.fb.pix()[128+3]; got != 0 {
		t.Fatalf("byte = %#x", got)
	}
	for _, p := range []image.Point{{-1, 0}, {0, -1}, {128, 0}, {0, 64}} {
		if err := d.DrawPixel(p.X, p.Y, true); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("DrawPixel(%v) = %v", p, err)
		}
	}
}

func TestClear(t *testing.T) {
	d, b := newTestDev(t, &Opts{W: 16, H: 16})
	if err := d.DrawRect(0, 0, 16, 16, true); err != nil {
		t.Fatal(err)
	}
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	b.take()
	if err := d.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	want := []record{
		{cmd: []byte{0x21, 0, 15, 0x22, 0, 1}},
		{data: make([]byte, 16)},
		{data: make([]byte, 16)},
	}
	if diff := diffOps(b.take(), want); diff != "" {
		t.Errorf("Flush() difference (-got +want):\n%s", diff)
	}
}

func TestFlush_firstAndIdle(t *testing.T) {
	b := &fakeBus{}
	d, err := New(b, &Opts{W: 128, H: 32})
	if err != nil {
		t.Fatal(err)
	}
	b.take()
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	want := []record{{cmd: []byte{0x21, 0, 127, 0x22, 0, 3}}}
	for i := 0; i < 4; i++ {
		want = append(want, record{data: make([]byte, 128)})
	}
	if diff := diffOps(b.take(), want); diff != "" {
		t.Errorf("first Flush() difference (-got +want):\n%s", diff)
	}
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	if ops := b.take(); len(ops) != 0 {
		t.Fatalf("idle Flush() sent %d operations", len(ops))
	}
}

func TestFlush_endToEnd(t *testing.T) {
	b := &fakeBus{}
	d, err := New(b, &Opts{W: 128, H: 64})
	if err != nil {
		t.Fatal(err)
	}
	b.take()
	if err := d.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawRect(10, 10, 20, 20, true); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawCircle(64, 32, 10, false); err != nil {
		t.Fatal(err)
	}
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	ops := b.take()
	// Clear marked the whole display.
	if diff := diffOps(ops[:1], []record{{cmd: []byte{0x21, 0, 127, 0x22, 0, 7}}}); diff != "" {
		t.Fatalf("window difference (-got +want):\n%s", diff)
	}
	if len(ops) != 9 {
		t.Fatalf("got %d operations, want 9", len(ops))
	}
	for i, op := range ops[1:] {
		if diff := cmp.Diff(op.data, d.fb.pix()[i*128:(i+1)*128]); diff != "" {
			t.Fatalf("page %d difference (-got +want):\n%s", i, diff)
		}
	}
	if d.fb.dirty {
		t.Fatal("dirty after successful Flush")
	}
}

func TestFlush_window(t *testing.T) {
	d, b := newTestDev(t, nil)
	if err := d.DrawRect(10, 10, 20, 20, true); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawCircle(64, 32, 10, false); err != nil {
		t.Fatal(err)
	}
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	// Union of (10,10)-(29,29) and (54,22)-(74,42).
	want := []record{{cmd: []byte{0x21, 10, 74, 0x22, 1, 5}}}
	for page := 1; page <= 5; page++ {
		want = append(want, record{data: d.fb.pix()[page*128+10 : page*128+75]})
	}
	if diff := diffOps(b.take(), want); diff != "" {
		t.Errorf("Flush() difference (-got +want):\n%s", diff)
	}
}

func TestFlush_retry(t *testing.T) {
	d, b := newTestDev(t, nil)
	if err := d.DrawLine(0, 0, 0, 20, true); err != nil {
		t.Fatal(err)
	}
	b.failData = b.nData + 2
	if err := d.Flush(); !errors.Is(err, ErrIO) {
		t.Fatalf("Flush() = %v", err)
	}
	if !d.fb.dirty {
		t.Fatal("a failed Flush must keep the dirty box")
	}
	b.take()
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	want := []record{
		{cmd: []byte{0x21, 0, 0, 0x22, 0, 2}},
		{data: []byte{0xFF}},
		{data: []byte{0xFF}},
		{data: []byte{0x1F}},
	}
	if diff := diffOps(b.take(), want); diff != "" {
		t.Errorf("Flush() difference (-got +want):\n%s", diff)
	}
}

func TestFlush_offScreen(t *testing.T) {
	d, b := newTestDev(t, nil)
	// The outline stays outside the display.
	if err := d.DrawCircle(-100, -100, 5, false); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawText(200, 0, "hidden", true); err != nil {
		t.Fatal(err)
	}
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	if ops := b.take(); len(ops) != 0 {
		t.Fatalf("Flush() sent %d operations", len(ops))
	}
}

func TestFlush_borrowed(t *testing.T) {
	buf := make([]byte, 32*16/8)
	b := &fakeBus{}
	d, err := New(b, &Opts{W: 32, H: 16, Buffer: buf})
	if err != nil {
		t.Fatal(err)
	}
	b.take()
	if err := d.DrawPixel(0, 0, true); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0x01 {
		t.Fatal("Dev must draw in the caller buffer")
	}
	// Outside modification.
	buf[63] = 0xAA
	want := []record{
		{cmd: []byte{0x21, 0, 31, 0x22, 0, 1}},
		{data: buf},
	}
	for i := 0; i < 2; i++ {
		if err := d.Flush(); err != nil {
			t.Fatal(err)
		}
		if diff := diffOps(b.take(), want); diff != "" {
			t.Errorf("Flush() #%d difference (-got +want):\n%s", i, diff)
		}
	}
	b.failData = b.nData + 1
	if err := d.Flush(); !errors.Is(err, ErrIO) {
		t.Fatalf("Flush() = %v", err)
	}
	if d.fb.dirty {
		t.Fatal("borrowed buffers are clean after any Flush")
	}
}

func TestDrawRect_fillMatchesPixels(t *testing.T) {
	const w, h = 24, 32
	for y := -3; y < h+2; y += 2 {
		for hgt := 1; hgt < 20; hgt += 3 {
			for _, x := range []int{-2, 0, 5, 20} {
				for _, wid := range []int{1, 3, 9} {
					filled, _ := newTestDev(t, &Opts{W: w, H: h})
					pixels, _ := newTestDev(t, &Opts{W: w, H: h})
					if err := filled.DrawRect(x, y, wid, hgt, true); err != nil {
						t.Fatal(err)
					}
					for yy := y; yy < y+hgt; yy++ {
						for xx := x; xx < x+wid; xx++ {
							if xx >= 0 && xx < w && yy >= 0 && yy < h {
								if err := pixels.DrawPixel(xx, yy, true); err != nil {
									t.Fatal(err)
								}
							}
						}
					}
					if diff := cmp.Diff(filled.fb.pix(), pixels.fb.pix()); diff != "" {
						t.Fatalf("DrawRect(%d, %d, %d, %d) difference (-fill +pixels):\n%s", x, y, wid, hgt, diff)
					}
				}
			}
		}
	}
}

func TestDrawRect_outline(t *testing.T) {
	d, _ := newTestDev(t, &Opts{W: 16, H: 8})
	if err := d.DrawRect(1, 1, 3, 3, false); err != nil {
		t.Fatal(err)
	}
	// Columns 1 and 3 have rows 1-3 lit, column 2 rows 1 and 3.
	want := []byte{0, 0x0E, 0x0A, 0x0E, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if diff := cmp.Diff(d.fb.pix(), want); diff != "" {
		t.Fatalf("difference (-got +want):\n%s", diff)
	}

	// The outline of the visible part (0,0)-(2,2) is drawn.
	d, _ = newTestDev(t, &Opts{W: 16, H: 8})
	if err := d.DrawRect(-2, -2, 5, 5, false); err != nil {
		t.Fatal(err)
	}
	want = []byte{0x07, 0x05, 0x07, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if diff := cmp.Diff(d.fb.pix(), want); diff != "" {
		t.Fatalf("difference (-got +want):\n%s", diff)
	}

	if err := d.DrawRect(0, 0, 0, 5, true); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("DrawRect() = %v", err)
	}
}

func TestDrawLine(t *testing.T) {
	d, _ := newTestDev(t, &Opts{W: 8, H: 8})
	if err := d.DrawLine(0, 0, 7, 7, true); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}
	if diff := cmp.Diff(d.fb.pix(), want); diff != "" {
		t.Fatalf("diagonal difference (-got +want):\n%s", diff)
	}
	// Reversed direction clears the same pixels.
	if err := d.DrawLine(7, 7, 0, 0, false); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(d.fb.pix(), make([]byte, 8)); diff != "" {
		t.Fatalf("clear difference (-got +want):\n%s", diff)
	}

	d, _ = newTestDev(t, &Opts{W: 8, H: 8})
	// Crosses the display horizontally from far outside.
	if err := d.DrawLine(-100, 3, 100, 3, true); err != nil {
		t.Fatal(err)
	}
	for i, v := range d.fb.pix() {
		if v != 0x08 {
			t.Fatalf("column %d = %#x", i, v)
		}
	}
	if diff := cmp.Diff(d.fb.dirtyBox, box{0, 3, 7, 3}, cmp.AllowUnexported(box{})); diff != "" {
		t.Fatal(diff)
	}

	d, _ = newTestDev(t, &Opts{W: 8, H: 8})
	if err := d.DrawLine(10, 0, 20, 5, true); err != nil {
		t.Fatal(err)
	}
	if d.fb.dirty {
		t.Fatal("rejected line marked dirty")
	}
}

func TestDrawCircle(t *testing.T) {
	d, _ := newTestDev(t, &Opts{W: 32, H: 32})
	if err := d.DrawCircle(16, 16, 5, false); err != nil {
		t.Fatal(err)
	}
	img := d.fb.img
	for _, p := range []image.Point{{21, 16}, {11, 16}, {16, 21}, {16, 11}} {
		if !img.BitAt(p.X, p.Y) {
			t.Errorf("%v should be on", p)
		}
	}
	if img.BitAt(16, 16) {
		t.Error("outline center should be off")
	}
	// 8-way symmetry.
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if img.BitAt(x, y) != img.BitAt(32-x, y) || img.BitAt(x, y) != img.BitAt(y, x) {
				t.Fatalf("asymmetry at (%d,%d)", x, y)
			}
		}
	}

	d, _ = newTestDev(t, &Opts{W: 32, H: 32})
	if err := d.DrawCircle(16, 16, 5, true); err != nil {
		t.Fatal(err)
	}
	img = d.fb.img
	if !img.BitAt(16, 16) || !img.BitAt(19, 19) {
		t.Error("filled circle should cover its inside")
	}
	if img.BitAt(22, 16) || img.BitAt(20, 20) {
		t.Error("filled circle should not cover its outside")
	}

	// Partially out of screen.
	if err := d.DrawCircle(0, 0, 40, true); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawCircle(0, 0, -1, true); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("DrawCircle() = %v", err)
	}
}

func TestDrawCircle_zeroRadius(t *testing.T) {
	d, _ := newTestDev(t, &Opts{W: 8, H: 8})
	if err := d.DrawCircle(2, 3, 0, false); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(d.fb.pix(), []byte{0, 0, 0x08, 0, 0, 0, 0, 0}); diff != "" {
		t.Fatalf("difference (-got +want):\n%s", diff)
	}
	if err := d.DrawCircle(9, 3, 0, false); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("DrawCircle() = %v", err)
	}
}

func TestDrawBitmap(t *testing.T) {
	d, _ := newTestDev(t, &Opts{W: 16, H: 8})
	// 10x2: row 0 is 1010 0101 11, row 1 is all set.
	bitmap := []byte{0xA5, 0xC0, 0xFF, 0xFF}
	if err := d.DrawBitmap(0, 0, bitmap, 10, 2); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x03, 0x02, 0x03, 0x02, 0x02, 0x03, 0x02, 0x03, 0x03, 0x03, 0, 0, 0, 0, 0, 0}
	if diff := cmp.Diff(d.fb.pix(), want); diff != "" {
		t.Fatalf("difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(d.fb.dirtyBox, box{0, 0, 9, 1}, cmp.AllowUnexported(box{})); diff != "" {
		t.Fatal(diff)
	}

	// Clipped on the left and bottom: source columns 4..9 of row 0 land on
	// row 7.
	d, _ = newTestDev(t, &Opts{W: 16, H: 8})
	if err := d.DrawBitmap(-4, 7, bitmap, 10, 2); err != nil {
		t.Fatal(err)
	}
	want = []byte{0, 0x80, 0, 0x80, 0x80, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if diff := cmp.Diff(d.fb.pix(), want); diff != "" {
		t.Fatalf("difference (-got +want):\n%s", diff)
	}

	// Set bits draw, cleared bits erase.
	d, _ = newTestDev(t, &Opts{W: 16, H: 8})
	if err := d.DrawRect(0, 0, 16, 8, true); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawBitmap(0, 0, []byte{0x00}, 1, 1); err != nil {
		t.Fatal(err)
	}
	if d.fb.pix()[0] != 0xFE {
		t.Fatalf("byte = %#x", d.fb.pix()[0])
	}

	d, _ = newTestDev(t, &Opts{W: 16, H: 8})
	if err := d.DrawBitmap(16, 0, bitmap, 10, 2); err != nil {
		t.Fatal(err)
	}
	if d.fb.dirty {
		t.Fatal("invisible bitmap marked dirty")
	}
	if err := d.DrawBitmap(0, 0, bitmap, 10, 3); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("DrawBitmap() = %v", err)
	}
	if err := d.DrawBitmap(0, 0, nil, 1, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("DrawBitmap() = %v", err)
	}
}

func TestDraw(t *testing.T) {
	d, b := newTestDev(t, &Opts{W: 16, H: 16})
	if err := d.Draw(image.Rect(0, 0, 4, 8), &image.Uniform{color.White}, image.Point{}); err != nil {
		t.Fatal(err)
	}
	want := []record{
		{cmd: []byte{0x21, 0, 3, 0x22, 0, 0}},
		{data: []byte{0xFF, 0xFF, 0xFF, 0xFF}},
	}
	if diff := diffOps(b.take(), want); diff != "" {
		t.Errorf("Draw() difference (-got +want):\n%s", diff)
	}

	// Full frame fast path.
	img := image1bit.NewVerticalLSB(d.Bounds())
	img.SetBit(15, 15, image1bit.On)
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(d.fb.pix(), img.Pix); diff != "" {
		t.Fatalf("difference (-got +want):\n%s", diff)
	}
	if err := d.Draw(d.Bounds(), nil, image.Point{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Draw() = %v", err)
	}
}

func TestWrite(t *testing.T) {
	d, b := newTestDev(t, &Opts{W: 8, H: 8})
	if _, err := d.Write(make([]byte, 7)); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("Write() = %v", err)
	}
	pix := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	n, err := d.Write(pix)
	if err != nil || n != 8 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	want := []record{
		{cmd: []byte{0x21, 0, 7, 0x22, 0, 0}},
		{data: pix},
	}
	if diff := diffOps(b.take(), want); diff != "" {
		t.Errorf("Write() difference (-got +want):\n%s", diff)
	}
}

func TestPanelCommands(t *testing.T) {
	d, b := newTestDev(t, nil)
	if err := d.Invert(true); err != nil {
		t.Fatal(err)
	}
	if err := d.Invert(false); err != nil {
		t.Fatal(err)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	// The display is transparently turned back on.
	if err := d.SetContrast(0x20); err != nil {
		t.Fatal(err)
	}
	want := []record{
		{cmd: []byte{0xA7}},
		{cmd: []byte{0xA6}},
		{cmd: []byte{0xAE}},
		{cmd: []byte{0xAF, 0x81, 0x20}},
	}
	if diff := diffOps(b.take(), want); diff != "" {
		t.Errorf("difference (-got +want):\n%s", diff)
	}
}

func TestClose(t *testing.T) {
	d, b := newTestDev(t, nil)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if b.closed != 1 {
		t.Fatalf("closed = %d", b.closed)
	}
	for name, err := range map[string]error{
		"Close":         d.Close(),
		"Clear":         d.Clear(),
		"SetFont":       d.SetFont(&Font5x7),
		"DrawPixel":     d.DrawPixel(0, 0, true),
		"DrawLine":      d.DrawLine(0, 0, 5, 5, true),
		"DrawRect":      d.DrawRect(0, 0, 5, 5, true),
		"DrawCircle":    d.DrawCircle(5, 5, 3, true),
		"DrawBitmap":    d.DrawBitmap(0, 0, []byte{0xFF}, 8, 1),
		"DrawText":      d.DrawText(0, 0, "hi", true),
		"DrawTextWrap":  d.DrawTextWrapped(0, 0, 64, 64, "hi", true),
		"Flush":         d.Flush(),
		"Halt":          d.Halt(),
		"SetContrast":   d.SetContrast(1),
		"Invert":        d.Invert(true),
		"Draw":          d.Draw(d.Bounds(), &image.Uniform{color.White}, image.Point{}),
	} {
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("%s() after Close = %v", name, err)
		}
	}
	if ops := b.take(); len(ops) != 0 {
		t.Fatalf("%d operations after Close", len(ops))
	}
	if b.closed != 1 {
		t.Fatalf("closed = %d", b.closed)
	}
}

func TestClose_busFailure(t *testing.T) {
	d, b := newTestDev(t, nil)
	b.failClose = true
	if err := d.Close(); !errors.Is(err, ErrIO) {
		t.Fatalf("Close() = %v", err)
	}
	if err := d.Clear(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("teardown must complete, Clear() = %v", err)
	}
}

func TestNilDev(t *testing.T) {
	var d *Dev
	if err := d.Close(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Close() = %v", err)
	}
	if err := d.Flush(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Flush() = %v", err)
	}
	if err := d.DrawPixel(0, 0, true); !errors.Is(err, ErrInvalidState) {
		t.Errorf("DrawPixel() = %v", err)
	}
	if err := d.DrawText(0, 0, "x", true); !errors.Is(err, ErrInvalidState) {
		t.Errorf("DrawText() = %v", err)
	}
	if err := d.SetContrast(0); !errors.Is(err, ErrInvalidState) {
		t.Errorf("SetContrast() = %v", err)
	}
}

func TestConcurrentUse(t *testing.T) {
	d, _ := newTestDev(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = d.DrawRect(i*30, j, 10, 10, j&1 == 0)
				_ = d.DrawText(i*30, 40, "abc", true)
				_ = d.DrawCircle(64, 32, j%30, false)
				if err := d.Flush(); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	if d.fb.dirty {
		t.Fatal("dirty after final Flush")
	}
}
