// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ring

import "errors"

var (
	// ErrSizeInvalid is returned if a buffer region is not a power of
	// two of at least 64 bytes.
	ErrSizeInvalid = errors.New("ring size must be a power of two >= 64")

	// ErrInsufficientSpace is returned if a write does not fit into the
	// free space of the buffer.
	ErrInsufficientSpace = errors.New("not enough space in ring")

	// ErrSkipBeyondUsed is returned if a skip exceeds the buffered
	// data.
	ErrSkipBeyondUsed = errors.New("skip exceeds buffered data")
)
