// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
)

// ErrHelp is returned when usage output was requested.
var ErrHelp = errors.New("help requested")

// ErrReadBuildInfo is returned if the binary carries no build info.
var ErrReadBuildInfo = errors.New("build info not available")

// ParseArgsError wraps errors that occur during argument parsing.
type ParseArgsError struct {
	err error
	msg string
}

func (e *ParseArgsError) Error() string {
	if e.err == nil {
		return e.msg
	}

	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

func (e *ParseArgsError) Is(other error) bool {
	_, ok := other.(*ParseArgsError)

	return ok
}

func (e *ParseArgsError) Unwrap() error {
	return e.err
}
