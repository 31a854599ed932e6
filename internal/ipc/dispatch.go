// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ipc

import (
	"context"
	"sync"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// Handler processes guest initiated requests for one dispatcher ID.
//
// The returned payload is sent back verbatim with the returned status.
// Handlers returning an error additionally have the error logged; the
// status still goes on the wire, so a handler failing an individual
// request should return [proto.StatusError] rather than an error.
type Handler interface {
	Handle(
		ctx context.Context,
		command uint16,
		payload []byte,
	) (proto.Status, []byte, error)
}

// HandlerFunc adapts a function to the [Handler] interface.
type HandlerFunc func(
	ctx context.Context,
	command uint16,
	payload []byte,
) (proto.Status, []byte, error)

// Handle implements the [Handler] interface.
func (f HandlerFunc) Handle(
	ctx context.Context,
	command uint16,
	payload []byte,
) (proto.Status, []byte, error) {
	return f(ctx, command, payload)
}

// Registry maps dispatcher IDs to their [Handler]s. Registration
// usually happens during session setup, but channel creation may bind
// handlers while the transport is live, so lookups are guarded.
type Registry struct {
	mu       sync.RWMutex
	handlers [proto.NumDispatchers]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register binds a handler to a dispatcher ID.
func (r *Registry) Register(id proto.DispatcherID, h Handler) error {
	if int(id) >= len(r.handlers) {
		return ErrDispatcherUnknown
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handlers[id] != nil {
		return ErrDispatcherBound
	}

	r.handlers[id] = h

	return nil
}

// Unregister removes the handler for a dispatcher ID, if any.
func (r *Registry) Unregister(id proto.DispatcherID) {
	if int(id) >= len(r.handlers) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[id] = nil
}

// Lookup returns the handler bound to a dispatcher ID, or nil.
func (r *Registry) Lookup(id proto.DispatcherID) Handler {
	if int(id) >= len(r.handlers) {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.handlers[id]
}
