// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package clipboard synchronizes clipboard content between host and
// guest. The guest pushes its clipboard over the dispatcher when it
// changes, the host forwards new local content to the guest and can
// query the guest clipboard on demand.
package clipboard
