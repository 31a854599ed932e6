// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package audio

import "errors"

var (
	// ErrRegionSize is returned if the shared area is too small for
	// the ring header and slot buffers.
	ErrRegionSize = errors.New("audio region too small")

	// ErrNotInitialized is returned for commands sent before the ring
	// was set up.
	ErrNotInitialized = errors.New("audio device not initialized")
)
