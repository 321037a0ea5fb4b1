// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

// The SSD1306 is a family of OLED displays. Some have SPI enabled.
//
// https://hallard.me/adafruit-oled-display-driver-for-pi/
//
// https://learn.adafruit.com/ssd1306-oled-displays-with-raspberry-pi-and-beaglebone-black?view=all

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	_CHARGEPUMP          = 0x8D
	_COLUMNADDR          = 0x21
	_COMSCANDEC          = 0xC8
	_COMSCANINC          = 0xC0
	_DISPLAYALLON_RESUME = 0xA4
	_DISPLAYOFF          = 0xAE
	_DISPLAYON           = 0xAF
	_INVERTDISPLAY       = 0xA7
	_MEMORYMODE          = 0x20
	_NORMALDISPLAY       = 0xA6
	_PAGEADDR            = 0x22
	_SEGREMAP            = 0xA0
	_SETCOMPINS          = 0xDA
	_SETCONTRAST         = 0x81
	_SETDISPLAYCLOCKDIV  = 0xD5
	_SETDISPLAYOFFSET    = 0xD3
	_SETMULTIPLEX        = 0xA8
	_SETPRECHARGE        = 0xD9
	_SETSEGMENTREMAP     = 0xA1
	_SETSTARTLINE        = 0x40
	_SETVCOMDETECT       = 0xDB
)

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	W:    128,
	H:    64,
	Addr: 0x3c,
}

// Opts defines the options for the device.
type Opts struct {
	W int
	H int
	// Buffer is an optional caller owned framebuffer of exactly W*H/8 bytes,
	// in the format of image1bit.VerticalLSB.Pix.
	//
	// The driver draws into it but cannot know when other code modifies it,
	// so Flush always sends the whole buffer. The caller must not modify it
	// concurrently with Dev operations and keeps it alive until Close.
	Buffer []byte
	// MirrorVertical corresponds to the COM remap configuration in the OLED panel
	// hardware. Try toggling this if the display is flipped vertically.
	MirrorVertical bool
	// MirrorHorizontal corresponds to the SEG remap configuration in the OLED panel
	// hardware. Try toggling this if the display is flipped horizontally.
	MirrorHorizontal bool
	// The I2C address of the display. Only used by NewI2C.
	Addr uint16
}

// NewI2C returns a Dev object that communicates over I²C to a SSD1306 display
// controller.
//
// rst is the optional RES line; pass nil when it is not wired.
func NewI2C(b i2c.Bus, rst gpio.PinOut, opts *Opts) (*Dev, error) {
	d, err := newDev(opts)
	if err != nil {
		return nil, err
	}
	addr := d.opts.Addr
	if addr == 0x00 {
		addr = DefaultOpts.Addr
	}
	bus, err := bindI2C(b, addr, rst)
	if err != nil {
		return nil, err
	}
	if err := d.start(bus); err != nil {
		return nil, err
	}
	return d, nil
}

// NewSPI returns a Dev object that communicates over SPI to a SSD1306 display
// controller.
//
// # Wiring
//
// Connect SDA to SPI_MOSI, SCK to SPI_CLK, CS to SPI_CS.
//
// Only 4-wire SPI mode is supported: dc must be a GPIO pin. rst is the
// optional RES line; pass nil when it is not wired.
func NewSPI(p spi.Port, dc, rst gpio.PinOut, opts *Opts) (*Dev, error) {
	d, err := newDev(opts)
	if err != nil {
		return nil, err
	}
	bus, err := bindSPI(p, dc, rst)
	if err != nil {
		return nil, err
	}
	if err := d.start(bus); err != nil {
		return nil, err
	}
	return d, nil
}

// New returns a Dev driving the controller through an already bound Bus.
//
// The Dev takes ownership of b: it is closed on Close or when initialization
// fails.
func New(b Bus, opts *Opts) (*Dev, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil bus", ErrInvalidArgument)
	}
	d, err := newDev(opts)
	if err != nil {
		return nil, err
	}
	if err := d.start(b); err != nil {
		return nil, err
	}
	return d, nil
}

// Dev is an open handle to the display controller.
//
// All methods are safe for concurrent use. Each one holds the Dev lock for
// its whole duration so drawing and flushing never interleave.
type Dev struct {
	// Immutable.
	opts Opts
	rect image.Rectangle

	mu sync.Mutex
	// Communication
	bus         Bus
	fb          *framebuffer
	font        *Font
	halted      bool
	initialized bool
}

func (d *Dev) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bus == nil {
		return fmt.Sprintf("ssd1306.Dev{closed, %s}", d.rect.Max)
	}
	return fmt.Sprintf("ssd1306.Dev{%v, %s}", d.bus, d.rect.Max)
}

// ColorModel implements display.Drawer.
//
// It is a one bit color model, as implemented by image1bit.Bit.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw implements display.Drawer.
//
// It draws synchronously, once this function returns, the display is updated.
// It means that on slow bus (I²C), it may be preferable to defer Draw() calls
// to a background goroutine.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if d == nil {
		return ErrInvalidState
	}
	if src == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidArgument)
	}
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	if img, ok := src.(*image1bit.VerticalLSB); ok && r == d.rect && img.Rect == d.rect && sp.X == 0 && sp.Y == 0 {
		// Exact size, full frame, image1bit encoding: fast path!
		copy(d.fb.pix(), img.Pix)
	} else {
		r = r.Intersect(d.rect)
		if r.Empty() {
			return nil
		}
		draw.Src.Draw(d.fb.img, r, src, sp)
	}
	d.fb.markDirty(box{r.Min.X, r.Min.Y, r.Max.X - 1, r.Max.Y - 1})
	return d.flushLocked()
}

// Write writes a buffer of pixels to the display.
//
// The format is unsual as each byte represent 8 vertical pixels at a time. The
// format is horizontal bands of 8 pixels high.
//
// This function accepts the content of image1bit.VerticalLSB.Pix.
func (d *Dev) Write(pixels []byte) (int, error) {
	if d == nil {
		return 0, ErrInvalidState
	}
	if n := d.rect.Dx() * d.rect.Dy() / 8; len(pixels) != n {
		return 0, fmt.Errorf("%w; expected %d bytes, got %d bytes", ErrInvalidSize, n, len(pixels))
	}
	if err := d.lock(); err != nil {
		return 0, err
	}
	defer d.mu.Unlock()
	copy(d.fb.pix(), pixels)
	d.fb.markDirty(box{0, 0, d.rect.Dx() - 1, d.rect.Dy() - 1})
	if err := d.flushLocked(); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// SetContrast changes the screen contrast.
//
// Note: values other than 0xff do not seem useful...
func (d *Dev) SetContrast(level byte) error {
	return d.command(_SETCONTRAST, level)
}

// Invert the display (black on white vs white on black).
func (d *Dev) Invert(blackOnWhite bool) error {
	b := byte(_NORMALDISPLAY)
	if blackOnWhite {
		b = _INVERTDISPLAY
	}
	return d.command(b)
}

// Halt turns off the display.
//
// Sending any other command afterward reenables the display.
func (d *Dev) Halt() error {
	if d == nil {
		return ErrInvalidState
	}
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.halted = false
	if err := d.sendCommand([]byte{_DISPLAYOFF}); err != nil {
		return err
	}
	d.halted = true
	return nil
}

// SetFont installs the font used by the text operations.
//
// f is shared, not copied, and must not be modified afterward. nil removes
// the font; text operations then fail with ErrInvalidState.
func (d *Dev) SetFont(f *Font) error {
	if d == nil {
		return ErrInvalidState
	}
	if err := d.lock(); err != nil {
		return err
	}
	d.font = f
	d.mu.Unlock()
	return nil
}

// Close shuts the driver down: the Dev becomes unusable, the bus is closed
// and the framebuffer released.
//
// Teardown always completes. A failure to close the bus is reported
// afterward.
func (d *Dev) Close() error {
	if d == nil {
		return ErrInvalidArgument
	}
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.initialized = false
	err := d.bus.Close()
	d.bus = nil
	d.fb = nil
	d.font = nil
	if err != nil {
		return ioError("unbind", err)
	}
	return nil
}

// newDev validates opts and allocates the framebuffer. No I/O happens.
func newDev(opts *Opts) (*Dev, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.W < 1 || o.W > 128 {
		return nil, fmt.Errorf("%w: width %d", ErrInvalidArgument, o.W)
	}
	if o.H < 8 || o.H > 64 || o.H&7 != 0 {
		return nil, fmt.Errorf("%w: height %d", ErrInvalidArgument, o.H)
	}
	fb, err := newFramebuffer(o.W, o.H, o.Buffer)
	if err != nil {
		return nil, fmt.Errorf("%w; expected %d bytes, got %d bytes", err, o.W*o.H/8, len(o.Buffer))
	}
	return &Dev{
		opts: o,
		rect: image.Rect(0, 0, o.W, o.H),
		fb:   fb,
		font: &Font5x7,
	}, nil
}

// start resets and initializes the controller through b. b is closed on
// failure.
func (d *Dev) start(b Bus) error {
	d.bus = b
	err := b.Reset()
	if err != nil {
		err = ioError("reset", err)
	} else if err = b.SendCommand(getInitCmd(&d.opts)); err != nil {
		err = ioError("init", err)
	}
	if err != nil {
		_ = b.Close()
		d.bus = nil
		return err
	}
	// The first flush covers the whole display.
	d.fb.markDirty(box{0, 0, d.opts.W - 1, d.opts.H - 1})
	d.initialized = true
	return nil
}

func getInitCmd(opts *Opts) []byte {
	// Set COM output scan direction; C0 means normal; C8 means reversed
	comScan := byte(_COMSCANDEC)
	if opts.MirrorVertical {
		comScan = _COMSCANINC
	}
	// See page 40.
	columnAddr := byte(_SETSEGMENTREMAP)
	if opts.MirrorHorizontal {
		columnAddr = _SEGREMAP
	}
	// Sequential COM pins for short screens, alternative otherwise.
	comPins := byte(0x12)
	if opts.H == 16 || opts.H == 32 {
		comPins = 0x02
	}

	// Initialize the device by fully resetting all values.
	// Page 64 has the full recommended flow.
	// Page 28 lists all the commands.
	return []byte{
		_DISPLAYOFF,       // Display off
		_MEMORYMODE, 0x00, // Set memory addressing mode to horizontal
		_SETMULTIPLEX, byte(opts.H - 1), // Set multiplex ratio (number of lines to display)
		_SETDISPLAYOFFSET, 0x00, // Set display offset; 0
		_SETSTARTLINE,        // Start display start line; 0
		columnAddr,           // Set segment remap; RESET is column 127.
		comScan,              //
		_SETCOMPINS, comPins, // Set COM pins hardware configuration; see page 40
		_SETCONTRAST, 0x7F, // Set contrast
		_DISPLAYALLON_RESUME,      // Set display to use GDDRAM content
		_NORMALDISPLAY,            // Set normal display (_INVERTDISPLAY for inverted 0=lit, 1=dark)
		_SETDISPLAYCLOCKDIV, 0x80, // Set osc frequency and divide ratio; power on reset value.
		_SETPRECHARGE, 0xF1, // Set pre-charge period; 0x22 for external VCC
		_SETVCOMDETECT, 0x40, // Set Vcomh deselect level; page 32
		_CHARGEPUMP, 0x14, // Enable charge pump regulator; page 62
		_DISPLAYON, // Display on
	}
}

// lock acquires the Dev lock. It fails, without holding the lock, when the
// Dev was closed.
func (d *Dev) lock() error {
	d.mu.Lock()
	if !d.initialized {
		d.mu.Unlock()
		return ErrInvalidState
	}
	return nil
}

// command sends a single command with its arguments.
func (d *Dev) command(c ...byte) error {
	if d == nil {
		return ErrInvalidState
	}
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mu.Unlock()
	return d.sendCommand(c)
}

// sendCommand requires the lock.
func (d *Dev) sendCommand(c []byte) error {
	if d.halted {
		// Transparently enable the display.
		c = append([]byte{_DISPLAYON}, c...)
		d.halted = false
	}
	if err := d.bus.SendCommand(c); err != nil {
		return ioError("command", err)
	}
	return nil
}

// sendData requires the lock.
func (d *Dev) sendData(p []byte) error {
	if err := d.bus.SendData(p); err != nil {
		return ioError("data", err)
	}
	return nil
}

var _ display.Drawer = &Dev{}
