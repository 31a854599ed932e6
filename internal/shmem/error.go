// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package shmem

import (
	"errors"
	"fmt"
)

var (
	// ErrRegionTooSmall is returned if a backing file cannot hold the
	// full shared memory layout.
	ErrRegionTooSmall = errors.New("region smaller than required layout")

	// ErrRegisterUnaligned is returned for register offsets that are
	// not 32 bit aligned.
	ErrRegisterUnaligned = errors.New("register offset not 32 bit aligned")
)

// MapError wraps any error occurred while mapping a shared memory
// region.
type MapError struct {
	Path string
	Err  error
}

// Error implements the [error] interface.
func (e *MapError) Error() string {
	return fmt.Sprintf("map %s: %v", e.Path, e.Err)
}

// Is implements the [errors.Is] interface.
func (*MapError) Is(other error) bool {
	_, ok := other.(*MapError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *MapError) Unwrap() error {
	return e.Err
}
