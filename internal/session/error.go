// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned if an operation does not fit the
	// session's current state, like starting a running session.
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrMemorySize is returned for a configured guest memory size
	// outside the supported range.
	ErrMemorySize = errors.New("guest memory size out of range")

	// ErrNotRunning is returned if input injection or a guest command is
	// attempted while no guest is up.
	ErrNotRunning = errors.New("session is not running")
)

// InvalidStateError reports an operation attempted in a state that does not
// allow it.
type InvalidStateError struct {
	Op    string
	State State
}

// Error implements the [error] interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.State)
}

// Is implements the [errors.Is] interface.
func (*InvalidStateError) Is(other error) bool {
	_, ok := other.(*InvalidStateError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (*InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// HandshakeError wraps any error occurred during the init handshake
// with the guest.
type HandshakeError struct {
	Err error
}

// Error implements the [error] interface.
func (e *HandshakeError) Error() string {
	return "init handshake: " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*HandshakeError) Is(other error) bool {
	_, ok := other.(*HandshakeError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// ConfigError wraps the validation error for a single configuration
// field.
type ConfigError struct {
	Field string
	Err   error
}

// Error implements the [error] interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config field %s: %v", e.Field, e.Err)
}

// Is implements the [errors.Is] interface.
func (*ConfigError) Is(other error) bool {
	_, ok := other.(*ConfigError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
