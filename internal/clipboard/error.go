// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package clipboard

import "errors"

var (
	// ErrEmpty is returned when pushing clipboard content without
	// data.
	ErrEmpty = errors.New("empty clipboard content")

	// ErrUnavailable is returned if the host system clipboard can not
	// be accessed.
	ErrUnavailable = errors.New("system clipboard unavailable")

	// ErrGuestDenied is returned if the guest rejects a clipboard
	// query.
	ErrGuestDenied = errors.New("guest rejected clipboard request")
)
