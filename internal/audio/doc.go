// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package audio plays guest sound output. The guest fills fixed size
// PCM slot buffers in a shared ring inside the bulk area and signals
// completed slots over the audio dispatcher. The host drains the ring
// into an output backend, by default the system sound device.
package audio
