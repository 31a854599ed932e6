// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ipc

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/risingsunproject/sunpci/internal/proto"
	"github.com/risingsunproject/sunpci/internal/ring"
)

// Doorbell bits shared with the guest interrupt handler.
const (
	DoorbellCmdReady  uint32 = 1 << 0
	DoorbellRspReady  uint32 = 1 << 1
	DoorbellVGAUpdate uint32 = 1 << 2
	DoorbellReset     uint32 = 1 << 7
)

// Doorbell signals the guest that new data is available.
type Doorbell interface {
	Ring(bits uint32)
}

// staleSeqMax bounds the set of retired sequence numbers kept around
// to drop late responses.
const staleSeqMax = 64

type pendingCall struct {
	done    chan struct{}
	status  proto.Status
	payload []byte
	err     error

	// delivered flips when the first matching response closes done.
	// Guarded by the transport mutex, it keeps a duplicated response
	// frame from closing the channel a second time.
	delivered bool
}

// Transport frames messages onto the command ring and drains the
// response ring.
//
// All methods are safe for concurrent use. Run must be started before
// any call expects a response.
type Transport struct {
	log      *slog.Logger
	cmd      *ring.Buffer
	rsp      *ring.Buffer
	bell     Doorbell
	registry *Registry

	sequence atomic.Uint32

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[uint32]*pendingCall
	staleSet map[uint32]struct{}
	staleLog [staleSeqMax]uint32
	staleIdx int
	closed   bool

	notify chan struct{}

	resyncs    atomic.Uint64
	staleDrops atomic.Uint64
}

// NewTransport wires a transport onto its rings. The registry receives
// guest initiated requests and may be shared with other components
// that register handlers later.
func NewTransport(
	cmd, rsp *ring.Buffer,
	bell Doorbell,
	registry *Registry,
	log *slog.Logger,
) *Transport {
	return &Transport{
		log:      log,
		cmd:      cmd,
		rsp:      rsp,
		bell:     bell,
		registry: registry,
		pending:  make(map[uint32]*pendingCall),
		staleSet: make(map[uint32]struct{}),
		notify:   make(chan struct{}, 1),
	}
}

// Notify wakes the drain worker. Call it from the interrupt path when
// the guest rings its side of the doorbell.
func (t *Transport) Notify() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Resyncs reports how many bytes were skipped to find a frame
// boundary.
func (t *Transport) Resyncs() uint64 {
	return t.resyncs.Load()
}

// SendCommand frames a request to the guest and registers the returned
// sequence number for a later [Transport.ReceiveResponse].
func (t *Transport) SendCommand(
	dispatcher proto.DispatcherID,
	command uint16,
	payload []byte,
) (uint32, error) {
	if len(payload) > proto.MaxPayload {
		return 0, ErrMessageTooLarge
	}

	seq := t.sequence.Add(1)

	hdr := proto.RequestHeader{
		Dispatcher: dispatcher,
		Command:    command,
		Sequence:   seq,
		PayloadLen: uint32(len(payload)),
	}

	call := &pendingCall{done: make(chan struct{})}

	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		return 0, ErrTransportClosed
	}

	t.pending[seq] = call
	t.mu.Unlock()

	if err := t.send(hdr.Encode(nil), payload); err != nil {
		t.retire(seq)
		return 0, err
	}

	return seq, nil
}

// Post frames a request whose response is not awaited. The sequence
// number is retired up front so a response the guest may send anyway
// is dropped.
func (t *Transport) Post(
	dispatcher proto.DispatcherID,
	command uint16,
	payload []byte,
) (uint32, error) {
	if len(payload) > proto.MaxPayload {
		return 0, ErrMessageTooLarge
	}

	seq := t.sequence.Add(1)

	hdr := proto.RequestHeader{
		Dispatcher: dispatcher,
		Command:    command,
		Sequence:   seq,
		PayloadLen: uint32(len(payload)),
	}

	t.mu.Lock()
	t.addStale(seq)
	t.mu.Unlock()

	if err := t.send(hdr.Encode(nil), payload); err != nil {
		return 0, err
	}

	return seq, nil
}

// SendResponse answers a guest initiated request.
func (t *Transport) SendResponse(
	sequence uint32,
	status proto.Status,
	payload []byte,
) error {
	if len(payload) > proto.MaxPayload {
		return ErrMessageTooLarge
	}

	hdr := proto.ResponseHeader{
		Status:     status,
		Sequence:   sequence,
		PayloadLen: uint32(len(payload)),
	}

	return t.send(hdr.Encode(nil), payload)
}

// send writes one complete frame to the command ring. The frame is
// never split across ring writes, so the guest sees it atomically.
func (t *Transport) send(hdr, payload []byte) error {
	frame := hdr
	if len(payload) > 0 {
		frame = append(frame, payload...)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.cmd.SyncTail()

	if err := t.cmd.Write(frame); err != nil {
		return ErrRingFull
	}

	t.cmd.PublishHead()
	t.bell.Ring(DoorbellCmdReady)

	return nil
}

// ReceiveResponse waits for the response to a previously sent command.
//
// A zero timeout polls: it returns [ErrWouldBlock] if the response has
// not arrived and leaves the call pending. A positive timeout blocks
// and retires the sequence number on expiry, so a late response is
// dropped by the drain worker.
func (t *Transport) ReceiveResponse(
	sequence uint32,
	timeout time.Duration,
) (proto.Status, []byte, error) {
	t.mu.Lock()
	call, ok := t.pending[sequence]
	t.mu.Unlock()

	if !ok {
		return 0, nil, ErrSequenceUnknown
	}

	if timeout == 0 {
		select {
		case <-call.done:
		default:
			return 0, nil, ErrWouldBlock
		}
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-call.done:
		case <-timer.C:
			t.retire(sequence)
			return 0, nil, ErrTimeout
		}
	}

	t.retire(sequence)

	return call.status, call.payload, call.err
}

// Transact sends a command and waits for its response.
func (t *Transport) Transact(
	ctx context.Context,
	dispatcher proto.DispatcherID,
	command uint16,
	payload []byte,
	timeout time.Duration,
) (proto.Status, []byte, error) {
	seq, err := t.SendCommand(dispatcher, command, payload)
	if err != nil {
		return 0, nil, err
	}

	t.mu.Lock()
	call := t.pending[seq]
	t.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-call.done:
	case <-timer.C:
		t.retire(seq)
		return 0, nil, ErrTimeout
	case <-ctx.Done():
		t.retire(seq)
		return 0, nil, ctx.Err()
	}

	t.retire(seq)

	// A refusal is an error to a transact caller, but the payload may
	// still carry detail worth decoding.
	if call.err == nil && call.status != proto.StatusSuccess {
		return call.status, call.payload, &StatusError{Status: call.status}
	}

	return call.status, call.payload, call.err
}

// retire removes a pending call and remembers its sequence number so a
// response arriving afterwards is dropped. The stale log is a fixed
// size ring, old entries age out as new ones are retired.
func (t *Transport) retire(sequence uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[sequence]; !ok {
		return
	}

	delete(t.pending, sequence)
	t.addStale(sequence)
}

// addStale remembers a sequence number in the stale log. The log is a
// fixed size ring, old entries age out as new ones are added. Callers
// hold t.mu.
func (t *Transport) addStale(sequence uint32) {
	delete(t.staleSet, t.staleLog[t.staleIdx])
	t.staleLog[t.staleIdx] = sequence
	t.staleSet[sequence] = struct{}{}
	t.staleIdx = (t.staleIdx + 1) % staleSeqMax
}

// Reopen clears the closed state left behind by a finished drain
// worker. Call it before starting [Transport.Run] again.
func (t *Transport) Reopen() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = false
}

// Run drains the response ring until ctx is done. On return all
// pending calls fail with [ErrTransportClosed].
func (t *Transport) Run(ctx context.Context) error {
	defer t.close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.notify:
			t.drain(ctx)
		}
	}
}

func (t *Transport) close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true

	for seq, call := range t.pending {
		call.err = ErrTransportClosed
		close(call.done)
		delete(t.pending, seq)
	}
}

// drain consumes every complete frame currently in the response ring.
// Incomplete frames stay put until the next doorbell.
func (t *Transport) drain(ctx context.Context) {
	var hdrBuf [proto.HeaderSize]byte

	t.rsp.SyncHead()

	for {
		if t.rsp.Peek(hdrBuf[:]) < proto.HeaderSize {
			break
		}

		// Resync byte by byte until a frame boundary lines up.
		if binary.LittleEndian.Uint32(hdrBuf[0:4]) != proto.Magic {
			_ = t.rsp.Skip(1)
			t.resyncs.Add(1)

			continue
		}

		payloadLen, err := proto.PeekPayloadLen(hdrBuf[:])
		if err != nil || payloadLen > proto.MaxPayload {
			_ = t.rsp.Skip(1)
			t.resyncs.Add(1)

			continue
		}

		frameLen := proto.HeaderSize + payloadLen
		if t.rsp.Used() < frameLen {
			break
		}

		frame := make([]byte, frameLen)
		_ = t.rsp.Read(frame)
		t.rsp.PublishTail()

		t.deliver(ctx, frame)
	}

	t.rsp.PublishTail()
}

// deliver routes one complete frame. A frame whose sequence number
// belongs to a pending call is its response, anything else is a guest
// initiated request.
func (t *Transport) deliver(ctx context.Context, frame []byte) {
	seq, _ := proto.PeekSequence(frame)

	t.mu.Lock()

	if call, ok := t.pending[seq]; ok {
		if call.delivered {
			t.mu.Unlock()
			t.staleDrops.Add(1)
			t.log.Debug("Dropped duplicate response",
				slog.Uint64("sequence", uint64(seq)))

			return
		}

		call.delivered = true
		t.mu.Unlock()

		hdr, err := proto.DecodeResponseHeader(frame)
		if err != nil {
			call.err = err
		} else {
			call.status = hdr.Status
			call.payload = frame[proto.HeaderSize:]
		}

		close(call.done)

		return
	}

	if _, stale := t.staleSet[seq]; stale {
		t.mu.Unlock()
		t.staleDrops.Add(1)
		t.log.Debug("Dropped late response",
			slog.Uint64("sequence", uint64(seq)))

		return
	}

	t.mu.Unlock()

	t.dispatch(ctx, frame)
}

func (t *Transport) dispatch(ctx context.Context, frame []byte) {
	hdr, err := proto.DecodeRequestHeader(frame)
	if err != nil {
		t.log.Warn("Discarded malformed request", slog.Any("error", err))
		return
	}

	handler := t.registry.Lookup(hdr.Dispatcher)
	if handler == nil {
		t.log.Warn("Request for unbound dispatcher",
			slog.String("dispatcher", hdr.Dispatcher.String()))

		_ = t.SendResponse(hdr.Sequence, proto.StatusInvalidDispatcher, nil)

		return
	}

	status, payload, err := handler.Handle(
		ctx, hdr.Command, frame[proto.HeaderSize:],
	)
	if err != nil {
		dispErr := &DispatchError{
			Dispatcher: hdr.Dispatcher,
			Command:    hdr.Command,
			Err:        err,
		}
		t.log.Error("Handler failed", slog.Any("error", dispErr))
	}

	if sendErr := t.SendResponse(hdr.Sequence, status, payload); sendErr != nil {
		t.log.Error("Failed to send response",
			slog.Uint64("sequence", uint64(hdr.Sequence)),
			slog.Any("error", sendErr))
	}
}
