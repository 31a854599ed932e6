// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package channel

import (
	"strings"
	"sync"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// MaxChannels bounds the number of simultaneously active channels.
const MaxChannels = 16

// Well known channel names. Matching is case insensitive.
const (
	NameInt13     = "NewInt13Dispatcher"
	NameVGA       = "VGADispatcher"
	NameVideo     = "VideoDispatcher"
	NameNetwork   = "NetworkDispatcher"
	NameFSD       = "FSDDispatcher"
	NameClipboard = "ClipboardDispatcher"
)

var wellKnown = []struct {
	name       string
	dispatcher proto.DispatcherID
}{
	{NameInt13, proto.DispStorage},
	{NameVGA, proto.DispVGA},
	{NameVideo, proto.DispVideo},
	{NameNetwork, proto.DispNetwork},
	{NameFSD, proto.DispFSD},
	{NameClipboard, proto.DispClipboard},
}

// DecodeName converts a UTF-16LE channel name into ASCII. Code units
// above 127 become '?', a NUL terminates the name early.
func DecodeName(name []uint16, lenBytes uint32) string {
	numChars := int(lenBytes / 2)
	if numChars > len(name) {
		numChars = len(name)
	}

	var b strings.Builder

	for i := 0; i < numChars; i++ {
		switch cu := name[i]; {
		case cu == 0:
			return b.String()
		case cu > 127:
			b.WriteByte('?')
		default:
			b.WriteByte(byte(cu))
		}
	}

	return b.String()
}

// DispatcherForName resolves a channel name against the well known
// table.
func DispatcherForName(name string) (proto.DispatcherID, error) {
	for _, known := range wellKnown {
		if strings.EqualFold(name, known.name) {
			return known.dispatcher, nil
		}
	}

	return 0, ErrNameUnknown
}

// Channel is one active slot of a [Registry].
type Channel struct {
	ID         uint32
	Dispatcher proto.DispatcherID
	Flags      uint32
	Name       string
}

// Registry hands out channel handles for well known names.
type Registry struct {
	mu       sync.Mutex
	nextID   uint32
	channels [MaxChannels]*Channel
}

// NewRegistry returns an empty registry. Channel IDs start at 1 so a
// zero handle is never valid.
func NewRegistry() *Registry {
	return &Registry{nextID: 1}
}

// Create opens a channel for a well known name.
//
// Creating a name that already has a non exclusive channel returns the
// existing channel. An exclusive existing channel fails with
// [ErrExclusive].
func (r *Registry) Create(name string, flags uint32) (Channel, error) {
	dispatcher, err := DispatcherForName(name)
	if err != nil {
		return Channel{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var free = -1

	for i, ch := range r.channels {
		if ch == nil {
			if free < 0 {
				free = i
			}

			continue
		}

		if strings.EqualFold(ch.Name, name) {
			if ch.Flags&proto.ChannelFlagExclusive != 0 {
				return Channel{}, ErrExclusive
			}

			return *ch, nil
		}
	}

	if free < 0 {
		return Channel{}, ErrNoSlots
	}

	ch := &Channel{
		ID:         r.nextID,
		Dispatcher: dispatcher,
		Flags:      flags,
		Name:       name,
	}
	r.nextID++
	r.channels[free] = ch

	return *ch, nil
}

// Delete closes a channel by handle.
func (r *Registry) Delete(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, ch := range r.channels {
		if ch != nil && ch.ID == id {
			r.channels[i] = nil
			return nil
		}
	}

	return ErrNotFound
}

// Lookup returns the channel with the given handle.
func (r *Registry) Lookup(id uint32) (Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range r.channels {
		if ch != nil && ch.ID == id {
			return *ch, nil
		}
	}

	return Channel{}, ErrNotFound
}

// Dispatcher returns the dispatcher ID a channel is bound to.
func (r *Registry) Dispatcher(id uint32) (proto.DispatcherID, error) {
	ch, err := r.Lookup(id)
	if err != nil {
		return 0, err
	}

	return ch.Dispatcher, nil
}
