// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package shmem maps the shared memory window both sides of the bridge
// communicate through.
//
// The window holds the command ring, the response ring, a bulk data
// area and a register page emulating the bridge chip's scratchpad and
// doorbell registers. Ring cursors live in scratchpad registers so the
// peer observes them without parsing ring contents. All register
// access is 32 bit atomic, the page is shared between processes.
package shmem
