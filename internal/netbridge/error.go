// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package netbridge

import (
	"errors"
	"fmt"
)

// ErrNoDevice is returned if no backing device is attached.
var ErrNoDevice = errors.New("no network device attached")

// TAPError wraps failures while setting up the host TAP interface.
type TAPError struct {
	Name string
	Err  error
}

// Error implements the [error] interface.
func (e *TAPError) Error() string {
	return fmt.Sprintf("tap %s: %v", e.Name, e.Err)
}

// Is implements the [errors.Is] interface.
func (e *TAPError) Is(other error) bool {
	_, ok := other.(*TAPError)

	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *TAPError) Unwrap() error {
	return e.Err
}
