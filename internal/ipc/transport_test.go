// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ipc_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risingsunproject/sunpci/internal/ipc"
	"github.com/risingsunproject/sunpci/internal/proto"
	"github.com/risingsunproject/sunpci/internal/ring"
)

type fakeDoorbell struct {
	rings atomic.Uint32
}

func (d *fakeDoorbell) Ring(bits uint32) {
	d.rings.Or(bits)
}

type harness struct {
	cmd       *ring.Buffer
	rsp       *ring.Buffer
	bell      *fakeDoorbell
	registry  *ipc.Registry
	transport *ipc.Transport
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cmd, err := ring.New(make([]byte, 4096))
	require.NoError(t, err)

	rsp, err := ring.New(make([]byte, 4096))
	require.NoError(t, err)

	h := &harness{
		cmd:      cmd,
		rsp:      rsp,
		bell:     &fakeDoorbell{},
		registry: ipc.NewRegistry(),
	}

	h.transport = ipc.NewTransport(
		cmd, rsp, h.bell, h.registry,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.transport.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return h
}

// guestReadRequest plays the guest consuming one host frame from the
// command ring.
func (h *harness) guestReadRequest(t *testing.T) (proto.RequestHeader, []byte) {
	t.Helper()

	var hdrBuf [proto.HeaderSize]byte

	require.Equal(t, proto.HeaderSize, h.cmd.Read(hdrBuf[:]))

	hdr, err := proto.DecodeRequestHeader(hdrBuf[:])
	require.NoError(t, err)

	payload := make([]byte, hdr.PayloadLen)
	if hdr.PayloadLen > 0 {
		require.EqualValues(t, hdr.PayloadLen, h.cmd.Read(payload))
	}

	return hdr, payload
}

// guestWriteResponse plays the guest answering a host command.
func (h *harness) guestWriteResponse(
	t *testing.T,
	seq uint32,
	status proto.Status,
	payload []byte,
) {
	t.Helper()

	hdr := proto.ResponseHeader{
		Status:     status,
		Sequence:   seq,
		PayloadLen: uint32(len(payload)),
	}

	require.NoError(t, h.rsp.Write(hdr.Encode(nil)))
	if len(payload) > 0 {
		require.NoError(t, h.rsp.Write(payload))
	}

	h.transport.Notify()
}

// guestWriteRequest plays the guest initiating a request of its own.
func (h *harness) guestWriteRequest(
	t *testing.T,
	dispatcher proto.DispatcherID,
	command uint16,
	seq uint32,
	payload []byte,
) {
	t.Helper()

	hdr := proto.RequestHeader{
		Dispatcher: dispatcher,
		Command:    command,
		Sequence:   seq,
		PayloadLen: uint32(len(payload)),
	}

	require.NoError(t, h.rsp.Write(hdr.Encode(nil)))
	if len(payload) > 0 {
		require.NoError(t, h.rsp.Write(payload))
	}

	h.transport.Notify()
}

func TestTransportCommandResponse(t *testing.T) {
	h := newHarness(t)

	seq, err := h.transport.SendCommand(
		proto.DispCore, proto.CorePing, []byte("hello"),
	)
	require.NoError(t, err)
	assert.NotZero(t, h.bell.rings.Load()&ipc.DoorbellCmdReady)

	hdr, payload := h.guestReadRequest(t)
	assert.Equal(t, proto.DispCore, hdr.Dispatcher)
	assert.Equal(t, proto.CorePing, hdr.Command)
	assert.Equal(t, seq, hdr.Sequence)
	assert.Equal(t, []byte("hello"), payload)

	h.guestWriteResponse(t, seq, proto.StatusSuccess, []byte("pong"))

	status, got, err := h.transport.ReceiveResponse(seq, time.Second)
	require.NoError(t, err)
	assert.Equal(t, proto.StatusSuccess, status)
	assert.Equal(t, []byte("pong"), got)
}

func TestTransportSequencesIncrease(t *testing.T) {
	h := newHarness(t)

	first, err := h.transport.SendCommand(proto.DispCore, proto.CorePing, nil)
	require.NoError(t, err)

	second, err := h.transport.SendCommand(proto.DispCore, proto.CorePing, nil)
	require.NoError(t, err)

	assert.Greater(t, second, first)
}

func TestTransportOutOfOrderResponses(t *testing.T) {
	h := newHarness(t)

	first, err := h.transport.SendCommand(proto.DispCore, proto.CorePing, nil)
	require.NoError(t, err)

	second, err := h.transport.SendCommand(proto.DispCore, proto.CoreGetVersion, nil)
	require.NoError(t, err)

	// Guest answers the second command first.
	h.guestWriteResponse(t, second, proto.StatusSuccess, []byte{2})
	h.guestWriteResponse(t, first, proto.StatusSuccess, []byte{1})

	_, got, err := h.transport.ReceiveResponse(first, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, got)

	_, got, err = h.transport.ReceiveResponse(second, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, got)
}

func TestTransportReceiveWouldBlock(t *testing.T) {
	h := newHarness(t)

	seq, err := h.transport.SendCommand(proto.DispCore, proto.CorePing, nil)
	require.NoError(t, err)

	_, _, err = h.transport.ReceiveResponse(seq, 0)
	assert.ErrorIs(t, err, ipc.ErrWouldBlock)

	// The call stays pending, a later receive still works.
	h.guestWriteResponse(t, seq, proto.StatusSuccess, nil)

	_, _, err = h.transport.ReceiveResponse(seq, time.Second)
	assert.NoError(t, err)
}

func TestTransportTimeoutDropsLateResponse(t *testing.T) {
	h := newHarness(t)

	seq, err := h.transport.SendCommand(proto.DispCore, proto.CorePing, nil)
	require.NoError(t, err)

	_, _, err = h.transport.ReceiveResponse(seq, 10*time.Millisecond)
	assert.ErrorIs(t, err, ipc.ErrTimeout)

	// The late response must not be misrouted to a new call or treated
	// as a guest request.
	h.guestWriteResponse(t, seq, proto.StatusSuccess, nil)

	assert.Eventually(t, func() bool {
		return h.rsp.Used() == 0
	}, time.Second, time.Millisecond)

	_, _, err = h.transport.ReceiveResponse(seq, 0)
	assert.ErrorIs(t, err, ipc.ErrSequenceUnknown)
}

func TestTransportDuplicateResponse(t *testing.T) {
	h := newHarness(t)

	seq, err := h.transport.SendCommand(proto.DispCore, proto.CorePing, nil)
	require.NoError(t, err)

	// A misbehaving guest may replay a response frame. Only the first
	// copy resolves the call, the duplicate must be dropped without
	// taking the drain worker down.
	h.guestWriteResponse(t, seq, proto.StatusSuccess, []byte{0xca})
	h.guestWriteResponse(t, seq, proto.StatusSuccess, []byte{0xca})

	status, _, err := h.transport.ReceiveResponse(seq, time.Second)
	require.NoError(t, err)
	assert.Equal(t, proto.StatusSuccess, status)

	assert.Eventually(t, func() bool {
		return h.rsp.Used() == 0
	}, time.Second, time.Millisecond)

	// The transport must still complete a fresh round trip.
	seq, err = h.transport.SendCommand(proto.DispCore, proto.CorePing, nil)
	require.NoError(t, err)

	h.guestWriteResponse(t, seq, proto.StatusSuccess, nil)

	status, _, err = h.transport.ReceiveResponse(seq, time.Second)
	require.NoError(t, err)
	assert.Equal(t, proto.StatusSuccess, status)
}

func TestTransportTransactStatusError(t *testing.T) {
	h := newHarness(t)

	type result struct {
		status proto.Status
		err    error
	}

	resCh := make(chan result, 1)
	go func() {
		status, _, err := h.transport.Transact(
			context.Background(), proto.DispCore, proto.CorePing, nil,
			time.Second,
		)
		resCh <- result{status: status, err: err}
	}()

	require.Eventually(t, func() bool {
		return h.cmd.Used() >= proto.HeaderSize
	}, time.Second, time.Millisecond)

	hdr, _ := h.guestReadRequest(t)
	h.guestWriteResponse(t, hdr.Sequence, proto.StatusBusy, nil)

	res := <-resCh
	assert.ErrorIs(t, res.err, &ipc.StatusError{})
	assert.Equal(t, proto.StatusBusy, res.status)
}

func TestTransportMaxFrameFits(t *testing.T) {
	cmd, err := ring.New(make([]byte, proto.MaxMessageSize))
	require.NoError(t, err)

	rsp, err := ring.New(make([]byte, proto.MaxMessageSize))
	require.NoError(t, err)

	tr := ipc.NewTransport(
		cmd, rsp, &fakeDoorbell{}, ipc.NewRegistry(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	// A maximal payload must fit the ring despite its one empty slot.
	_, err = tr.SendCommand(
		proto.DispCore, proto.CorePing, make([]byte, proto.MaxPayload),
	)
	require.NoError(t, err)
	assert.EqualValues(t, proto.HeaderSize+proto.MaxPayload, cmd.Used())

	_, err = tr.SendCommand(
		proto.DispCore, proto.CorePing, make([]byte, proto.MaxPayload+1),
	)
	assert.ErrorIs(t, err, ipc.ErrMessageTooLarge)
}

func TestTransportResync(t *testing.T) {
	h := newHarness(t)

	seq, err := h.transport.SendCommand(proto.DispCore, proto.CorePing, nil)
	require.NoError(t, err)

	// Garbage before a valid frame forces byte-wise resync.
	require.NoError(t, h.rsp.Write([]byte{0xde, 0xad, 0xbe, 0xef, 0x00}))
	h.guestWriteResponse(t, seq, proto.StatusSuccess, []byte("ok"))

	status, payload, err := h.transport.ReceiveResponse(seq, time.Second)
	require.NoError(t, err)
	assert.Equal(t, proto.StatusSuccess, status)
	assert.Equal(t, []byte("ok"), payload)
	assert.EqualValues(t, 5, h.transport.Resyncs())
}

func TestTransportPartialFrame(t *testing.T) {
	h := newHarness(t)

	seq, err := h.transport.SendCommand(proto.DispCore, proto.CorePing, nil)
	require.NoError(t, err)

	// Header announces 4 payload bytes but only 2 arrive at first.
	hdr := proto.ResponseHeader{
		Status:     proto.StatusSuccess,
		Sequence:   seq,
		PayloadLen: 4,
	}
	require.NoError(t, h.rsp.Write(hdr.Encode(nil)))
	require.NoError(t, h.rsp.Write([]byte{1, 2}))
	h.transport.Notify()

	_, _, err = h.transport.ReceiveResponse(seq, 20*time.Millisecond)
	assert.ErrorIs(t, err, ipc.ErrTimeout)

	// Frame handling resumes once the rest lands. The sequence was
	// retired by the timeout, so only the ring state is observable.
	require.NoError(t, h.rsp.Write([]byte{3, 4}))
	h.transport.Notify()

	assert.Eventually(t, func() bool {
		return h.rsp.Used() == 0
	}, time.Second, time.Millisecond)
}

func TestTransportDispatchGuestRequest(t *testing.T) {
	h := newHarness(t)

	handled := make(chan []byte, 1)

	err := h.registry.Register(proto.DispStorage, ipc.HandlerFunc(
		func(_ context.Context, command uint16, payload []byte) (proto.Status, []byte, error) {
			assert.Equal(t, proto.StorageRead, command)
			handled <- append([]byte(nil), payload...)

			return proto.StatusSuccess, []byte("data"), nil
		},
	))
	require.NoError(t, err)

	h.guestWriteRequest(t, proto.DispStorage, proto.StorageRead, 9000, []byte("req"))

	select {
	case payload := <-handled:
		assert.Equal(t, []byte("req"), payload)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	// The host answer lands on the command ring with the guest's
	// sequence number.
	var rspHdr proto.ResponseHeader

	require.Eventually(t, func() bool {
		var buf [proto.HeaderSize]byte
		if h.cmd.Peek(buf[:]) < proto.HeaderSize {
			return false
		}

		var err error
		rspHdr, err = proto.DecodeResponseHeader(buf[:])

		return err == nil
	}, time.Second, time.Millisecond)

	assert.EqualValues(t, 9000, rspHdr.Sequence)
	assert.Equal(t, proto.StatusSuccess, rspHdr.Status)
}

func TestTransportPostDropsResponse(t *testing.T) {
	h := newHarness(t)

	seq, err := h.transport.Post(proto.DispInput, proto.InputKeyboard,
		[]byte{0x1c, 0x00})
	require.NoError(t, err)

	hdr, payload := h.guestReadRequest(t)
	assert.Equal(t, seq, hdr.Sequence)
	assert.Equal(t, []byte{0x1c, 0x00}, payload)

	// A guest that answers anyway must not confuse the dispatcher.
	h.guestWriteResponse(t, seq, proto.StatusSuccess, nil)

	require.Eventually(t, func() bool {
		return h.rsp.Used() == 0
	}, time.Second, time.Millisecond)

	_, _, err = h.transport.ReceiveResponse(seq, 0)
	assert.ErrorIs(t, err, ipc.ErrSequenceUnknown)
}

func TestTransportUnboundDispatcher(t *testing.T) {
	h := newHarness(t)

	h.guestWriteRequest(t, proto.DispAudio, 1, 77, nil)

	var rspHdr proto.ResponseHeader

	require.Eventually(t, func() bool {
		var buf [proto.HeaderSize]byte
		if h.cmd.Peek(buf[:]) < proto.HeaderSize {
			return false
		}

		var err error
		rspHdr, err = proto.DecodeResponseHeader(buf[:])

		return err == nil
	}, time.Second, time.Millisecond)

	assert.EqualValues(t, 77, rspHdr.Sequence)
	assert.Equal(t, proto.StatusInvalidDispatcher, rspHdr.Status)
}

func TestRegistryRejectsDoubleBind(t *testing.T) {
	registry := ipc.NewRegistry()

	noop := ipc.HandlerFunc(
		func(context.Context, uint16, []byte) (proto.Status, []byte, error) {
			return proto.StatusSuccess, nil, nil
		},
	)

	require.NoError(t, registry.Register(proto.DispVGA, noop))
	assert.ErrorIs(t, registry.Register(proto.DispVGA, noop),
		ipc.ErrDispatcherBound)

	registry.Unregister(proto.DispVGA)
	assert.NoError(t, registry.Register(proto.DispVGA, noop))

	assert.ErrorIs(t, registry.Register(proto.DispatcherID(99), noop),
		ipc.ErrDispatcherUnknown)
}
