// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package channel implements the named channel layer the NT guest
// drivers use instead of raw dispatcher IDs.
//
// A guest creates a channel by UTF-16 name and receives a numeric
// handle. Names map onto dispatcher IDs through a fixed table of well
// known channels. The storage channel additionally accepts the NT
// guest's own disk packet format, which is translated to canonical
// storage requests.
package channel
