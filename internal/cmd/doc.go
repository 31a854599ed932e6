// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmd implements the sunpcid daemon command. It parses the
// command line, assembles a session with the configured peripherals
// and runs it until a shutdown signal arrives.
package cmd
