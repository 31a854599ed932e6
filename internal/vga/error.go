// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vga

import "errors"

// ErrInvalidMode is returned for mode requests with a zero dimension.
var ErrInvalidMode = errors.New("invalid display mode")
