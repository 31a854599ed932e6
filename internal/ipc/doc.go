// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ipc moves protocol frames between host and guest over a pair
// of ring buffers.
//
// The command ring carries host to guest traffic, the response ring
// guest to host traffic. Responses to host commands and guest
// initiated requests share the response ring. A single drain worker
// owns the consumer side of that ring, tells the two frame kinds apart
// by sequence number and either resolves the pending call or hands the
// frame to a registered dispatcher handler.
package ipc
