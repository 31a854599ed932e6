// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package video

import "errors"

var (
	// ErrNoSlots is returned if the surface table is full.
	ErrNoSlots = errors.New("no free surface slot")

	// ErrNotFound is returned if no surface has the given handle.
	ErrNotFound = errors.New("surface not found")
)
