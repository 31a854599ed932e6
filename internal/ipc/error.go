// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ipc

import (
	"errors"
	"fmt"

	"github.com/risingsunproject/sunpci/internal/proto"
)

var (
	// ErrTimeout is returned if no response arrived within the caller's
	// deadline. The sequence number is retired so a late response is
	// dropped instead of misdelivered.
	ErrTimeout = errors.New("response timed out")

	// ErrWouldBlock is returned by a zero timeout receive when the
	// response has not arrived yet.
	ErrWouldBlock = errors.New("response not ready")

	// ErrTransportClosed is returned if the transport's drain worker has
	// shut down.
	ErrTransportClosed = errors.New("transport closed")

	// ErrMessageTooLarge is returned if header plus payload exceed the
	// maximum message size.
	ErrMessageTooLarge = errors.New("message exceeds maximum size")

	// ErrRingFull is returned if the outbound ring has no room for the
	// complete frame.
	ErrRingFull = errors.New("ring has insufficient space")

	// ErrSequenceUnknown is returned if a receive refers to a sequence
	// number that no pending call owns.
	ErrSequenceUnknown = errors.New("no pending call for sequence")

	// ErrDispatcherBound is returned if a handler is registered for a
	// dispatcher ID that already has one.
	ErrDispatcherBound = errors.New("dispatcher already has a handler")

	// ErrDispatcherUnknown is returned for dispatcher IDs outside the
	// defined range.
	ErrDispatcherUnknown = errors.New("dispatcher ID out of range")
)

// StatusError is returned by [Transport.Transact] if the guest's
// response carried a non-success status code. The frame itself arrived
// intact, so the response payload is still handed to the caller.
type StatusError struct {
	Status proto.Status
}

// Error implements the [error] interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("guest returned status %#04x", uint16(e.Status))
}

// Is implements the [errors.Is] interface.
func (*StatusError) Is(other error) bool {
	_, ok := other.(*StatusError)
	return ok
}

// DispatchError wraps any error occurred while handling an inbound
// guest request.
type DispatchError struct {
	Dispatcher fmt.Stringer
	Command    uint16
	Err        error
}

// Error implements the [error] interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s command %#04x: %v",
		e.Dispatcher, e.Command, e.Err)
}

// Is implements the [errors.Is] interface.
func (*DispatchError) Is(other error) bool {
	_, ok := other.(*DispatchError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *DispatchError) Unwrap() error {
	return e.Err
}
