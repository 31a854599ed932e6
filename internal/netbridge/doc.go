// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package netbridge connects the guest's emulated network adapter to
// a host TAP interface. Guest frames are written to the TAP device,
// frames arriving on it are filtered against the adapter's receive
// configuration, queued, and announced with a data ready interrupt.
package netbridge
