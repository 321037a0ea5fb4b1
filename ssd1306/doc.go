// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ssd1306 controls a monochrome OLED display via a SSD1306
// controller.
//
// The Dev owns a 1 bit per pixel framebuffer in the controller's page format
// (see package image1bit) and offers drawing primitives on it: pixels,
// lines, rectangles, circles, bitmaps and text in a monospace bitmap font,
// optionally word-wrapped in a box. Nothing reaches the display until Flush.
//
// The driver does differential updates: it tracks the rectangle modified
// since the last Flush and only sends the pages and columns covering it, to
// economize bus bandwidth. This is especially important when using I²C as
// the bus default speed (often 100kHz) is slow enough to saturate the bus at
// less than 10 frames per second.
//
// The device can be driven on either I²C or SPI with 4 wires. Changing
// between protocol is likely done through resistor soldering, for boards that
// support both. Any other transport implementing Bus can be used with New.
//
// Some boards expose a RES / Reset pin. If present, it must normally be
// High. When set to Low (Ground), it enables the reset circuitry. Pass it to
// NewI2C or NewSPI to have the driver pulse it before initialization.
//
// # Datasheets
//
// Product page:
//
// http://www.solomon-systech.com/en/product/display-ic/oled-driver-controller/ssd1306/
//
// https://cdn-shop.adafruit.com/datasheets/SSD1306.pdf
//
// "DM-OLED096-624": https://drive.google.com/file/d/0B5lkVYnewKTGaEVENlYwbDkxSGM/view
package ssd1306
