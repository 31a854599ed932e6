// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package proto defines the binary message protocol spoken over the
// shared-memory rings between the host and the x86 guest.
//
// All multi-byte fields are little-endian unless a structure says
// otherwise; the SCSI structures follow SCSI convention and are
// big-endian.
package proto
