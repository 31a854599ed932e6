// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session assembles the bridge out of its parts and drives its
// lifecycle.
//
// A [Session] owns the shared memory region, both message rings, the
// transport and the dispatcher handlers. [Session.Start] brings the
// transport workers up and performs the init handshake with the guest,
// [Session.Stop] tears everything down again. The session moves through
// a small state machine (Stopped, Starting, Running, Stopping, Error)
// and rejects operations that do not fit the current state.
package session
