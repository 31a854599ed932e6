// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/risingsunproject/sunpci/internal/audio"
	"github.com/risingsunproject/sunpci/internal/clipboard"
	"github.com/risingsunproject/sunpci/internal/fsd"
	"github.com/risingsunproject/sunpci/internal/netbridge"
	"github.com/risingsunproject/sunpci/internal/proto"
	"github.com/risingsunproject/sunpci/internal/session"
	"github.com/risingsunproject/sunpci/internal/shmem"
)

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// assemble registers the configured peripherals with the session and
// returns a cleanup for resources that outlive a stop.
func assemble(
	flags *Flags,
	s *session.Session,
	log *slog.Logger,
) (func(), error) {
	registry := s.Registry()
	cleanups := make([]func(), 0, 4)

	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	var out audio.Output
	if flags.Audio {
		out = audio.NewOtoOutput()
	}

	audioHandler, err := audio.NewHandler(
		s.Shmem().Bulk(), shmem.BulkOffset, out, log,
	)
	if err != nil {
		return cleanup, err
	}

	if err := registry.Register(proto.DispAudio, audioHandler); err != nil {
		return cleanup, err
	}

	if flags.TAP != "" {
		tap, err := netbridge.OpenTAP(flags.TAP)
		if err != nil {
			return cleanup, err
		}

		bridge := netbridge.NewHandler(tap, s.Transport(), log)
		cleanups = append(cleanups, func() { _ = bridge.Close() })

		err = registry.Register(proto.DispNetwork, bridge)
		if err != nil {
			return cleanup, err
		}
	}

	if flags.Clipboard {
		bridge := clipboard.NewBridge(
			clipboard.NewSystemProvider(), s.Transport(), log,
		)

		err := registry.Register(proto.DispClipboard, bridge)
		if err != nil {
			return cleanup, err
		}
	}

	if len(flags.Shares) > 0 {
		redirector := fsd.NewRedirector(log)
		cleanups = append(cleanups, func() { _ = redirector.Close() })

		for _, share := range flags.Shares {
			err := redirector.Mount(share.Letter, share.Dir)
			if err != nil {
				return cleanup, fmt.Errorf(
					"share %c: %w", share.Letter, err,
				)
			}
		}

		if err := registry.Register(proto.DispFSD, redirector); err != nil {
			return cleanup, err
		}
	}

	return cleanup, nil
}

func mountMedia(flags *Flags, s *session.Session) error {
	for slot, path := range flags.Disks {
		err := s.Storage().MountDisk(uint32(slot), path, 0)
		if err != nil {
			return fmt.Errorf("disk %s: %w", path, err)
		}
	}

	if flags.CDROM != "" {
		if err := s.Storage().MountCDROM(flags.CDROM); err != nil {
			return fmt.Errorf("cdrom %s: %w", flags.CDROM, err)
		}
	}

	return nil
}

func run(ctx context.Context, flags *Flags, log *slog.Logger) error {
	s, err := session.New(flags.Session, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Warn("Session close failed", slog.Any("error", err))
		}
	}()

	cleanup, err := assemble(flags, s, log)
	defer cleanup()

	if err != nil {
		return err
	}

	if err := mountMedia(flags, s); err != nil {
		return err
	}

	if err := s.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	log.Info("Shutting down")

	stopCtx, cancel := context.WithTimeout(
		context.WithoutCancel(ctx), session.DefaultTimeout,
	)
	defer cancel()

	return s.Stop(stopCtx)
}

func handleParseArgsError(log *slog.Logger, err error) int {
	if errors.Is(err, ErrHelp) {
		return 0
	}

	log.Error(err.Error())

	return -1
}

// Run is the main entry point for the daemon command.
func Run(ctx context.Context, args []string, cfg IO) int {
	flags, err := parseArgs(args, cfg.Stderr)
	if err != nil {
		return handleParseArgsError(newLogger(cfg.Stderr, slog.LevelInfo), err)
	}

	log := newLogger(cfg.Stderr, flags.logLevel())

	if flags.versionFlag {
		buildInfo, ok := debug.ReadBuildInfo()
		if !ok {
			log.Error(ErrReadBuildInfo.Error())
			return -1
		}

		fmt.Fprintf(cfg.Stdout, "Version: %s\n", buildInfo.Main.Version)

		return 0
	}

	if err := run(ctx, flags, log); err != nil {
		log.Error(err.Error())
		return -1
	}

	return 0
}
