// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package fsd

import "errors"

var (
	// ErrBadPath is returned for guest paths without a drive letter
	// or escaping their share root.
	ErrBadPath = errors.New("invalid guest path")

	// ErrNotMounted is returned for drive letters without a mapped
	// host directory.
	ErrNotMounted = errors.New("drive letter not mounted")
)
