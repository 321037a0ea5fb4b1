// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package oled is a container for the SSD1306 OLED driver and its tooling.
//
// The driver lives in ssd1306. termpanel emulates the controller in a
// terminal, imgconv and fontface prepare images and fonts for it, and
// cmd/ssd1306 is a demo program.
package oled
