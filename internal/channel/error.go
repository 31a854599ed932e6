// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package channel

import "errors"

var (
	// ErrNameUnknown is returned if a channel name is not in the well
	// known table.
	ErrNameUnknown = errors.New("unknown channel name")

	// ErrExclusive is returned if a channel with the requested name
	// exists and was created exclusive.
	ErrExclusive = errors.New("channel is exclusive")

	// ErrNoSlots is returned if all channel slots are taken.
	ErrNoSlots = errors.New("no free channel slot")

	// ErrNotFound is returned if no active channel has the given
	// handle.
	ErrNotFound = errors.New("channel not found")

	// ErrWrongDispatcher is returned if an operation is attempted on a
	// channel bound to a different dispatcher than required.
	ErrWrongDispatcher = errors.New("channel bound to wrong dispatcher")

	// ErrBadDrive is returned for NT drive slots outside the mapped
	// range.
	ErrBadDrive = errors.New("invalid NT drive slot")
)
