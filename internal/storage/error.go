// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrFloppySize is returned if a floppy image has no known format
	// size.
	ErrFloppySize = errors.New("not a known floppy format size")

	// ErrNotISO9660 is returned if a CD-ROM image lacks the ISO 9660
	// signature.
	ErrNotISO9660 = errors.New("missing ISO 9660 signature")

	// ErrImageTooSmall is returned if an image is smaller than one
	// sector.
	ErrImageTooSmall = errors.New("image smaller than one sector")

	// ErrNotMounted is returned if a drive has no mounted media.
	ErrNotMounted = errors.New("no media mounted")

	// ErrReadOnly is returned for writes to a write protected image.
	ErrReadOnly = errors.New("image is write protected")

	// ErrOutOfRange is returned if a transfer extends past the end of
	// the image.
	ErrOutOfRange = errors.New("sector range beyond end of image")

	// ErrBadSlot is returned for drive slots outside the supported
	// range.
	ErrBadSlot = errors.New("invalid drive slot")
)

// ImageError wraps any error occurred while opening or validating a
// disk image.
type ImageError struct {
	Path string
	Err  error
}

// Error implements the [error] interface.
func (e *ImageError) Error() string {
	return fmt.Sprintf("image %s: %v", e.Path, e.Err)
}

// Is implements the [errors.Is] interface.
func (*ImageError) Is(other error) bool {
	_, ok := other.(*ImageError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *ImageError) Unwrap() error {
	return e.Err
}
