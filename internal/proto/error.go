// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package proto

import "errors"

var (
	// ErrBadMagic is returned if a header does not start with [Magic].
	ErrBadMagic = errors.New("bad frame magic")

	// ErrShortHeader is returned if fewer than [HeaderSize] bytes are
	// available for a header.
	ErrShortHeader = errors.New("short frame header")

	// ErrShortPayload is returned if a payload is too short for the
	// structure being decoded.
	ErrShortPayload = errors.New("short payload")

	// ErrPayloadTooLarge is returned if a payload exceeds
	// [MaxPayload].
	ErrPayloadTooLarge = errors.New("payload exceeds protocol maximum")
)
