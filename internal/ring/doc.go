// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ring implements the byte-addressed circular buffers used for
// IPC between the host and the x86 guest on the card.
//
// A [Buffer] lives in a window of the card's shared memory. The
// producer cursor (head) and consumer cursor (tail) may additionally be
// mirrored into hardware scratchpad registers so the guest, which runs
// in a different address space without any shared lock, can observe the
// host's progress and vice versa.
package ring
