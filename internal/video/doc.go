// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package video implements the accelerated drawing dispatcher. The
// guest display driver allocates surfaces in the shared framebuffer
// and issues blit and flip operations against them. Operations that
// touch the visible surface are forwarded to the display state as
// dirty regions.
package video
