// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import (
	"errors"
	"fmt"
)

// Error kinds returned by Dev. Use errors.Is to test for them.
var (
	// ErrInvalidArgument is returned for a missing required argument, a
	// non-positive dimension or radius and out of range pixel coordinates.
	ErrInvalidArgument = errors.New("ssd1306: invalid argument")
	// ErrInvalidSize is returned when a caller supplied buffer does not match
	// the display size. It is also an ErrInvalidArgument.
	ErrInvalidSize = fmt.Errorf("%w: buffer size mismatch", ErrInvalidArgument)
	// ErrInvalidState is returned when the Dev is nil or closed, or when text
	// is drawn without a font.
	ErrInvalidState = errors.New("ssd1306: invalid state")
	// ErrIO wraps every transport failure.
	ErrIO = errors.New("ssd1306: I/O failure")
)

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
