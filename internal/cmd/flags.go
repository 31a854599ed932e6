// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/risingsunproject/sunpci/internal/session"
)

// Share maps a guest drive letter to a host directory.
type Share struct {
	Letter byte
	Dir    string
}

// Flags holds the parsed daemon configuration.
type Flags struct {
	Session   session.Config
	TAP       string
	Disks     []string
	CDROM     string
	Shares    []Share
	Audio     bool
	Clipboard bool

	versionFlag bool
	debugFlag   bool
}

func parseArgs(args []string, output io.Writer) (*Flags, error) {
	flags := &Flags{
		Session: session.Config{MemoryMB: 64},
	}

	fs := flag.NewFlagSet(args[0]+" [flags...]", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.Func(
		"memory",
		"guest memory in MB",
		func(value string) error {
			_, err := fmt.Sscanf(value, "%d", &flags.Session.MemoryMB)

			return err
		},
	)

	fs.StringVar(
		&flags.Session.ShmemPath,
		"shmem",
		"",
		"backing file for the shared memory region",
	)

	fs.StringVar(
		&flags.TAP,
		"tap",
		"",
		"TAP interface name for guest networking",
	)

	fs.Func(
		"disk",
		"hard disk image, repeatable, first is the boot drive",
		func(value string) error {
			flags.Disks = append(flags.Disks, value)

			return nil
		},
	)

	fs.StringVar(
		&flags.CDROM,
		"cdrom",
		"",
		"ISO image for the CD-ROM drive",
	)

	fs.Func(
		"share",
		"drive letter share as LETTER=DIR, repeatable",
		func(value string) error {
			share, err := parseShare(value)
			if err != nil {
				return err
			}

			flags.Shares = append(flags.Shares, share)

			return nil
		},
	)

	fs.BoolVar(
		&flags.Audio,
		"audio",
		false,
		"enable sound output on the host",
	)

	fs.BoolVar(
		&flags.Clipboard,
		"clipboard",
		true,
		"synchronize guest and host clipboard",
	)

	fs.BoolVar(
		&flags.debugFlag,
		"debug",
		false,
		"enable debug logging",
	)

	fs.BoolVar(
		&flags.versionFlag,
		"version",
		false,
		"print version and exit",
	)

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, ErrHelp
		}

		return nil, &ParseArgsError{msg: "parse args", err: err}
	}

	if err := flags.Session.Validate(); err != nil {
		return nil, &ParseArgsError{msg: "session config", err: err}
	}

	return flags, nil
}

func parseShare(value string) (Share, error) {
	letter, dir, found := strings.Cut(value, "=")
	if !found || len(letter) != 1 || dir == "" {
		return Share{}, fmt.Errorf("share %q: want LETTER=DIR", value)
	}

	return Share{Letter: letter[0], Dir: dir}, nil
}

func (f *Flags) logLevel() slog.Level {
	if f.debugFlag {
		return slog.LevelDebug
	}

	return slog.LevelInfo
}
