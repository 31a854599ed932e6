// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package fsd redirects guest drive letters to host directories. The
// guest sees an ordinary DOS network drive, paths and attributes are
// translated between the two worlds. Operation results carry errno
// style codes the guest driver maps back to DOS errors.
package fsd
