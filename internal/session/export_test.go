// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import "time"

// SetTimeouts overrides the handshake and command timeouts so failure
// paths do not stall the tests.
func (s *Session) SetTimeouts(init, cmd time.Duration) {
	s.initTimeout = init
	s.cmdTimeout = cmd
}
