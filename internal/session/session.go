// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/risingsunproject/sunpci/internal/channel"
	"github.com/risingsunproject/sunpci/internal/ipc"
	"github.com/risingsunproject/sunpci/internal/proto"
	"github.com/risingsunproject/sunpci/internal/ring"
	"github.com/risingsunproject/sunpci/internal/shmem"
	"github.com/risingsunproject/sunpci/internal/storage"
	"github.com/risingsunproject/sunpci/internal/vga"
	"github.com/risingsunproject/sunpci/internal/video"
)

// HostVersion is the protocol version the host announces in the init
// handshake.
const HostVersion uint32 = 0x00010000

// Guest memory configuration bounds in megabytes.
const (
	MinMemoryMB = 1
	MaxMemoryMB = 256
)

// Command timeouts. The init handshake gets more headroom since the
// guest side may still be booting its driver.
const (
	DefaultTimeout = 5 * time.Second
	InitTimeout    = 10 * time.Second

	doorbellPollInterval = time.Millisecond
)

// State is the session lifecycle state.
type State uint32

// Session states.
const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateError
)

// String implements [fmt.Stringer].
func (s State) String() string {
	names := [...]string{
		"stopped", "starting", "running", "stopping", "error",
	}

	if int(s) < len(names) {
		return names[s]
	}

	return "unknown"
}

// Config carries the per-session settings validated on start.
type Config struct {
	// MemoryMB is the guest memory size in megabytes.
	MemoryMB uint32

	// ShmemPath is the backing file for the shared memory region. Empty
	// selects a private anonymous mapping, which only loopback tests
	// and the daemon's self test use.
	ShmemPath string
}

// Validate checks the configuration without touching any state.
func (c Config) Validate() error {
	if c.MemoryMB < MinMemoryMB || c.MemoryMB > MaxMemoryMB {
		return &ConfigError{Field: "MemoryMB", Err: ErrMemorySize}
	}

	return nil
}

// Session is one virtual machine instance. It owns the shared memory
// region, the rings carved out of it, the transport and all dispatcher
// handlers.
type Session struct {
	log *slog.Logger
	cfg Config

	region    *shmem.Region
	cmdRing   *ring.Buffer
	rspRing   *ring.Buffer
	transport *ipc.Transport
	registry  *ipc.Registry
	channels  *channel.Registry
	emulator  *storage.Emulator
	core      *channel.CoreHandler
	display   *vga.Handler

	initTimeout time.Duration
	cmdTimeout  time.Duration

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	eg     *errgroup.Group
	guest  proto.CoreInitReply
}

// New validates the configuration, maps the shared memory region and
// assembles the transport stack. The session starts out stopped.
func New(cfg Config, log *slog.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		region *shmem.Region
		err    error
	)

	if cfg.ShmemPath == "" {
		region, err = shmem.OpenAnonymous()
	} else {
		region, err = shmem.Open(cfg.ShmemPath)
	}

	if err != nil {
		return nil, err
	}

	cmdRing, err := ring.New(region.CmdRing())
	if err != nil {
		_ = region.Close()
		return nil, err
	}

	rspRing, err := ring.New(region.RspRing())
	if err != nil {
		_ = region.Close()
		return nil, err
	}

	regs := region.Regs()
	cmdRing.MirrorCursors(regs, shmem.RegCmdHead, shmem.RegCmdTail)
	rspRing.MirrorCursors(regs, shmem.RegRspHead, shmem.RegRspTail)

	s := &Session{
		log:         log,
		cfg:         cfg,
		region:      region,
		cmdRing:     cmdRing,
		rspRing:     rspRing,
		registry:    ipc.NewRegistry(),
		channels:    channel.NewRegistry(),
		emulator:    storage.NewEmulator(log),
		initTimeout: InitTimeout,
		cmdTimeout:  DefaultTimeout,
	}

	s.transport = ipc.NewTransport(cmdRing, rspRing, regs, s.registry, log)

	s.core = channel.NewCoreHandler(s.channels, HostVersion, log)
	s.core.SetDataHandler(
		channel.NewNTDiskTranslator(s.channels, s.emulator, log),
	)

	if err := s.registry.Register(proto.DispCore, s.core); err != nil {
		_ = region.Close()
		return nil, err
	}

	if err := s.registry.Register(
		proto.DispStorage, storage.NewHandler(s.emulator),
	); err != nil {
		_ = region.Close()
		return nil, err
	}

	s.display = vga.NewHandler(log)

	if err := s.registry.Register(proto.DispVGA, s.display); err != nil {
		_ = region.Close()
		return nil, err
	}

	if err := s.registry.Register(
		proto.DispVideo, video.NewHandler(s.display, log),
	); err != nil {
		_ = region.Close()
		return nil, err
	}

	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// GuestInfo returns the guest's init handshake reply. It is zero until
// the session has reached the running state once.
func (s *Session) GuestInfo() proto.CoreInitReply {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.guest
}

// Registry exposes the dispatcher registry so supplemental subsystems
// can bind their handlers before the session starts.
func (s *Session) Registry() *ipc.Registry {
	return s.registry
}

// Transport exposes the message transport for subsystems that push
// host initiated commands.
func (s *Session) Transport() *ipc.Transport {
	return s.transport
}

// Display exposes the guest display state for renderers and for the
// video dispatcher's dirty region reporting.
func (s *Session) Display() *vga.Handler {
	return s.display
}

// Storage exposes the drive emulator for mount and eject control.
func (s *Session) Storage() *storage.Emulator {
	return s.emulator
}

// Shmem exposes the shared memory region. The loopback guest used by
// the daemon's self test attaches through it.
func (s *Session) Shmem() *shmem.Region {
	return s.region
}

// Start brings the transport workers up and performs the init
// handshake. It is rejected unless the session is stopped. A failed
// handshake leaves the session in the error state.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.state != StateStopped && s.state != StateError {
		state := s.state
		s.mu.Unlock()

		return stateError(state, "start")
	}

	s.state = StateStarting
	s.mu.Unlock()

	s.log.Info("Starting session",
		slog.Uint64("memory_mb", uint64(s.cfg.MemoryMB)))

	// Fresh rings for a fresh guest, cursors zeroed on both sides.
	s.cmdRing.Reset()
	s.cmdRing.PublishHead()
	s.cmdRing.PublishTail()
	s.rspRing.Reset()
	s.rspRing.PublishHead()
	s.rspRing.PublishTail()

	regs := s.region.Regs()
	regs.Write32(shmem.RegVersion, HostVersion)
	regs.Write32(shmem.RegStatus, 0)

	s.transport.Reopen()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	eg, runCtx := errgroup.WithContext(runCtx)

	eg.Go(func() error {
		return s.transport.Run(runCtx)
	})

	eg.Go(func() error {
		return s.pollDoorbell(runCtx)
	})

	s.mu.Lock()
	s.cancel = cancel
	s.eg = eg
	s.mu.Unlock()

	guest, err := s.handshake(ctx)
	if err != nil {
		s.fail(err)
		return err
	}

	s.emulator.SetNotifier(s.transport)
	regs.Write32(shmem.RegStatus, shmem.StatusRunning)

	s.mu.Lock()
	s.guest = guest
	s.state = StateRunning
	s.mu.Unlock()

	s.log.Info("Session running",
		slog.Uint64("guest_version", uint64(guest.GuestVersion)),
		slog.Uint64("features", uint64(guest.Features)))

	return nil
}

// handshake sends the init command and decodes the guest's reply.
func (s *Session) handshake(ctx context.Context) (proto.CoreInitReply, error) {
	req := proto.CoreInitRequest{HostVersion: HostVersion}

	_, payload, err := s.transport.Transact(
		ctx, proto.DispCore, proto.CoreInit, req.Encode(nil), s.initTimeout,
	)
	if err != nil {
		return proto.CoreInitReply{}, &HandshakeError{Err: err}
	}

	reply, err := proto.DecodeCoreInitReply(payload)
	if err != nil {
		return proto.CoreInitReply{}, &HandshakeError{Err: err}
	}

	return reply, nil
}

// fail tears the workers down and parks the session in the error
// state. A later Start may recover it.
func (s *Session) fail(err error) {
	s.log.Error("Session start failed", slog.Any("error", err))

	s.teardown()

	s.mu.Lock()
	s.state = StateError
	s.mu.Unlock()
}

// Stop shuts the guest down and tears the transport workers down. It
// is rejected unless the session is running. Stopping an already
// stopped session is a no-op.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()

	switch s.state {
	case StateStopped:
		s.mu.Unlock()
		return nil
	case StateRunning:
	default:
		state := s.state
		s.mu.Unlock()

		return stateError(state, "stop")
	}

	s.state = StateStopping
	s.mu.Unlock()

	s.log.Info("Stopping session")

	s.emulator.SetNotifier(nil)

	// Best effort. A guest that is already gone will not answer.
	_, _, err := s.transport.Transact(
		ctx, proto.DispCore, proto.CoreShutdown, nil, s.cmdTimeout,
	)
	if err != nil {
		s.log.Warn("Guest did not acknowledge shutdown",
			slog.Any("error", err))
	}

	s.teardown()

	s.region.Regs().Write32(shmem.RegStatus, shmem.StatusHalted)

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	return nil
}

// Reset stops the session and starts it again with fresh rings.
func (s *Session) Reset(ctx context.Context) error {
	if s.State() != StateRunning {
		return stateError(s.State(), "reset")
	}

	s.region.Regs().Ring(ipc.DoorbellReset)

	if err := s.Stop(ctx); err != nil {
		return err
	}

	return s.Start(ctx)
}

// Close stops a running session and unmaps the shared memory region.
func (s *Session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	if err := s.Stop(ctx); err != nil && !errors.Is(err, ErrInvalidState) {
		return err
	}

	return s.region.Close()
}

// teardown cancels the workers and waits for them.
func (s *Session) teardown() {
	s.mu.Lock()
	cancel := s.cancel
	eg := s.eg
	s.cancel = nil
	s.eg = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("Session worker failed", slog.Any("error", err))
	}
}

// pollDoorbell watches the guest doorbell register and wakes the drain
// worker when the guest rang. Reset requests from the guest are logged
// and surfaced as a halted status, the control plane decides whether
// to restart.
func (s *Session) pollDoorbell(ctx context.Context) error {
	regs := s.region.Regs()

	ticker := time.NewTicker(doorbellPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		bits := regs.TakeGuestDoorbell()
		if bits == 0 {
			continue
		}

		if bits&(ipc.DoorbellCmdReady|ipc.DoorbellRspReady) != 0 {
			s.transport.Notify()
		}

		if bits&ipc.DoorbellVGAUpdate != 0 {
			mode := s.display.Mode()
			s.display.MarkDirty(proto.VGARect{
				Width:  mode.Width,
				Height: mode.Height,
			})
		}

		if bits&ipc.DoorbellReset != 0 {
			s.log.Warn("Guest requested reset")
			regs.Write32(shmem.RegStatus, shmem.StatusHalted)
		}
	}
}

// InjectKey posts a keyboard scancode event to the guest.
func (s *Session) InjectKey(event proto.KeyEvent) error {
	return s.inject(proto.InputKeyboard, event.Encode(nil))
}

// InjectMouse posts a mouse state event to the guest.
func (s *Session) InjectMouse(event proto.MouseEvent) error {
	return s.inject(proto.InputMouseMove, event.Encode(nil))
}

func (s *Session) inject(command uint16, payload []byte) error {
	if s.State() != StateRunning {
		return ErrNotRunning
	}

	_, err := s.transport.Post(proto.DispInput, command, payload)

	return err
}

func stateError(state State, op string) error {
	return &InvalidStateError{Op: op, State: state}
}
