// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package vga tracks the guest display state. It keeps the current
// mode, palette and text cursor, and coalesces dirty screen regions
// reported by the guest or by surface blits into a single bounding
// rectangle that a renderer fetches and clears in one step.
package vga
