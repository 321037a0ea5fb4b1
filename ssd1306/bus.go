// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Bus moves command and pixel bytes to the controller.
//
// Implementations split a write into bursts the underlying protocol accepts
// and return the first failure. A Bus has no knowledge of drawing; Dev owns
// the Bus it is created with and closes it on Close.
type Bus interface {
	// SendCommand sends a stream of command bytes.
	SendCommand(c []byte) error
	// SendData sends a stream of GDDRAM bytes.
	SendData(p []byte) error
	// Reset pulses the hardware reset line. It is a no-op when there is none.
	Reset() error
	// Close releases the bus resources. Closing a closed Bus succeeds.
	Close() error
}

const (
	i2cCmd  = 0x00 // I²C transaction has stream of command bytes
	i2cData = 0x40 // I²C transaction has stream of data bytes

	// i2cBurst is the maximum payload per I²C transaction, excluding the
	// control byte.
	i2cBurst = 32
	// spiBurst is used when the SPI connection doesn't report its limit.
	spiBurst = 4096

	resetPulse = 10 * time.Millisecond
)

// i2cBus addresses the controller on an I²C bus; the first byte of each
// transaction selects command or data.
type i2cBus struct {
	mu  sync.Mutex
	dev *i2c.Dev
	rst gpio.PinOut
	buf [1 + i2cBurst]byte
}

// bindI2C registers the device on the bus. rst may be nil.
func bindI2C(b i2c.Bus, addr uint16, rst gpio.PinOut) (*i2cBus, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil I²C bus", ErrInvalidArgument)
	}
	if rst == gpio.INVALID {
		rst = nil
	}
	if rst != nil {
		// Keep the controller out of reset.
		if err := rst.Out(gpio.High); err != nil {
			return nil, ioError("reset line", err)
		}
	}
	// Maximum clock speed is 1/2.5µs = 400KHz.
	return &i2cBus{dev: &i2c.Dev{Bus: b, Addr: addr}, rst: rst}, nil
}

func (b *i2cBus) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev == nil {
		return "i2c{closed}"
	}
	return b.dev.String()
}

func (b *i2cBus) SendCommand(c []byte) error {
	return b.send(i2cCmd, c)
}

func (b *i2cBus) SendData(p []byte) error {
	return b.send(i2cData, p)
}

func (b *i2cBus) send(ctrl byte, p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev == nil {
		return errClosedBus
	}
	for len(p) != 0 {
		n := copy(b.buf[1:], p)
		b.buf[0] = ctrl
		if err := b.dev.Tx(b.buf[:1+n], nil); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (b *i2cBus) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return pulseReset(b.rst)
}

func (b *i2cBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev == nil {
		return nil
	}
	err := releaseReset(b.rst)
	b.dev = nil
	b.rst = nil
	return err
}

// spiBus talks to the controller in 4-wire SPI mode: the D/C line selects
// command (Low) or data (High) while chip select is driven by the port.
type spiBus struct {
	mu  sync.Mutex
	c   spi.Conn
	dc  gpio.PinOut
	rst gpio.PinOut
	max int
}

// bindSPI connects to the port. dc is required, rst may be nil.
func bindSPI(p spi.Port, dc, rst gpio.PinOut) (*spiBus, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil SPI port", ErrInvalidArgument)
	}
	if dc == gpio.INVALID {
		return nil, fmt.Errorf("%w: use nil for dc to use 3-wire mode, do not use gpio.INVALID", ErrInvalidArgument)
	}
	if dc == nil {
		return nil, fmt.Errorf("%w: 3-wire SPI mode is not yet implemented", ErrInvalidArgument)
	}
	if rst == gpio.INVALID {
		rst = nil
	}
	if err := dc.Out(gpio.Low); err != nil {
		return nil, ioError("dc line", err)
	}
	if rst != nil {
		if err := rst.Out(gpio.High); err != nil {
			_ = releaseReset(dc)
			return nil, ioError("reset line", err)
		}
	}
	// The SSD1306 can operate at up to 3.3Mhz, which is much higher than I²C.
	c, err := p.Connect(3300*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		_ = releaseReset(dc)
		_ = releaseReset(rst)
		return nil, ioError("spi connect", err)
	}
	limit := spiBurst
	if l, ok := c.(conn.Limits); ok {
		if m := l.MaxTxSize(); m > 0 {
			limit = m
		}
	}
	return &spiBus{c: c, dc: dc, rst: rst, max: limit}, nil
}

func (b *spiBus) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.c == nil {
		return "spi{closed}"
	}
	return fmt.Sprintf("%s, %s", b.c, b.dc)
}

func (b *spiBus) SendCommand(c []byte) error {
	return b.send(gpio.Low, c)
}

func (b *spiBus) SendData(p []byte) error {
	return b.send(gpio.High, p)
}

func (b *spiBus) send(l gpio.Level, p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.c == nil {
		return errClosedBus
	}
	if len(p) == 0 {
		return nil
	}
	eh := errorHandler{c: b.c}
	eh.out(b.dc, l)
	for len(p) != 0 {
		n := len(p)
		if n > b.max {
			n = b.max
		}
		eh.tx(p[:n])
		p = p[n:]
	}
	return eh.err
}

func (b *spiBus) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return pulseReset(b.rst)
}

func (b *spiBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.c == nil {
		return nil
	}
	err := releaseReset(b.rst)
	b.c = nil
	b.dc = nil
	b.rst = nil
	return err
}

// errorHandler latches the first error of a sequence of pin and bus
// operations; later operations are skipped.
type errorHandler struct {
	c   conn.Conn
	err error
}

func (eh *errorHandler) out(p gpio.PinOut, l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = p.Out(l)
}

func (eh *errorHandler) tx(w []byte) {
	if eh.err != nil {
		return
	}
	eh.err = eh.c.Tx(w, nil)
}

var errClosedBus = errors.New("bus is closed")

func pulseReset(rst gpio.PinOut) error {
	if rst == nil {
		return nil
	}
	if err := rst.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(resetPulse)
	if err := rst.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(resetPulse)
	return nil
}

// releaseReset puts a control line back in a neutral state when the pin
// supports input mode.
func releaseReset(rst gpio.PinOut) error {
	if rst == nil {
		return nil
	}
	if in, ok := rst.(gpio.PinIn); ok {
		return in.In(gpio.PullNoChange, gpio.NoEdge)
	}
	return nil
}
