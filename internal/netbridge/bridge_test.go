// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package netbridge_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risingsunproject/sunpci/internal/netbridge"
	"github.com/risingsunproject/sunpci/internal/proto"
)

// fakeDevice is an in-memory TAP stand-in. Writes are recorded,
// reads block on an injection channel.
type fakeDevice struct {
	mu     sync.Mutex
	sent   [][]byte
	inject chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		inject: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	select {
	case frame := <-d.inject:
		return copy(p, frame), nil
	case <-d.closed:
		return 0, io.EOF
	}
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	frame := make([]byte, len(p))
	copy(frame, p)
	d.sent = append(d.sent, frame)

	return len(p), nil
}

func (d *fakeDevice) Close() error {
	d.once.Do(func() { close(d.closed) })

	return nil
}

func (d *fakeDevice) sentFrames() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.sent
}

type fakePoster struct {
	mu    sync.Mutex
	posts []uint16
}

func (p *fakePoster) Post(
	_ proto.DispatcherID,
	command uint16,
	_ []byte,
) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.posts = append(p.posts, command)

	return 1, nil
}

func (p *fakePoster) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.posts)
}

type harness struct {
	handler *netbridge.Handler
	dev     *fakeDevice
	poster  *fakePoster
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dev := newFakeDevice()
	poster := &fakePoster{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := netbridge.NewHandler(dev, poster, log)

	t.Cleanup(func() { _ = handler.Close() })

	return &harness{handler: handler, dev: dev, poster: poster}
}

func (h *harness) command(
	t *testing.T,
	command uint16,
	req proto.NetRequest,
	data []byte,
) proto.NetReply {
	t.Helper()

	req.Command = uint32(command)
	payload := append(req.Encode(nil), data...)

	status, replyBuf, err := h.handler.Handle(
		context.Background(), command, payload,
	)
	require.NoError(t, err)
	require.Equal(t, proto.StatusSuccess, status)

	reply, err := proto.DecodeNetReply(replyBuf)
	require.NoError(t, err)

	return reply
}

func (h *harness) up(t *testing.T) [6]byte {
	t.Helper()

	reply := h.command(t, proto.NetInit, proto.NetRequest{Param1: 11}, nil)
	require.Equal(t, proto.NetStatusOK, reply.Status)

	reply = h.command(t, proto.NetOpen, proto.NetRequest{}, nil)
	require.Equal(t, proto.NetStatusOK, reply.Status)

	return h.handler.MAC()
}

func frameTo(dst [6]byte, size int) []byte {
	frame := make([]byte, size)
	copy(frame, dst[:])

	return frame
}

var broadcast = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func TestInitGeneratesMAC(t *testing.T) {
	h := newHarness(t)

	reply := h.command(t, proto.NetInit, proto.NetRequest{Param1: 11}, nil)
	require.Equal(t, proto.NetStatusOK, reply.Status)
	require.EqualValues(t, 6, reply.Length)

	mac := h.handler.MAC()
	assert.EqualValues(t, 0x02, mac[0]&0x03, "locally administered unicast")
}

func TestInitWithoutDevice(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := netbridge.NewHandler(nil, &fakePoster{}, log)

	payload := proto.NetRequest{Command: uint32(proto.NetInit)}.Encode(nil)

	_, replyBuf, err := handler.Handle(
		context.Background(), proto.NetInit, payload,
	)
	require.NoError(t, err)

	reply, err := proto.DecodeNetReply(replyBuf)
	require.NoError(t, err)
	assert.Equal(t, proto.NetStatusNoDevice, reply.Status)
}

func TestSendPadsShortFrames(t *testing.T) {
	h := newHarness(t)
	h.up(t)

	frame := frameTo(broadcast, 20)
	req := proto.NetRequest{Length: uint32(len(frame))}

	reply := h.command(t, proto.NetSend, req, frame)
	require.Equal(t, proto.NetStatusOK, reply.Status)

	sent := h.dev.sentFrames()
	require.Len(t, sent, 1)
	assert.Len(t, sent[0], proto.NetMinFrame)

	stats := h.handler.Stats()
	assert.EqualValues(t, 1, stats.TxPackets)
	assert.EqualValues(t, proto.NetMinFrame, stats.TxBytes)
}

func TestSendRejectsBadFrames(t *testing.T) {
	h := newHarness(t)
	h.up(t)

	reply := h.command(t, proto.NetSend,
		proto.NetRequest{Length: 4}, make([]byte, 4),
	)
	assert.Equal(t, proto.NetStatusBadPacket, reply.Status)

	huge := make([]byte, proto.NetMaxFrame+1)
	reply = h.command(t, proto.NetSend,
		proto.NetRequest{Length: uint32(len(huge))}, huge,
	)
	assert.Equal(t, proto.NetStatusBadPacket, reply.Status)
}

func TestReceiveNotifiesOnce(t *testing.T) {
	h := newHarness(t)
	mac := h.up(t)

	h.dev.inject <- frameTo(mac, 100)
	h.dev.inject <- frameTo(mac, 120)

	require.Eventually(t, func() bool {
		return h.handler.Stats().RxPackets == 2
	}, time.Second, time.Millisecond)

	// Two frames queued, one interrupt until released.
	assert.Equal(t, 1, h.poster.count())

	reply := h.command(t, proto.NetRecv, proto.NetRequest{}, nil)
	require.Equal(t, proto.NetStatusOK, reply.Status)
	assert.EqualValues(t, 100, reply.Length)

	// Release with data still queued rearms immediately.
	reply = h.command(t, proto.NetIntRelease, proto.NetRequest{}, nil)
	require.Equal(t, proto.NetStatusOK, reply.Status)
	assert.Equal(t, 2, h.poster.count())

	reply = h.command(t, proto.NetRecv, proto.NetRequest{}, nil)
	require.Equal(t, proto.NetStatusOK, reply.Status)

	reply = h.command(t, proto.NetRecv, proto.NetRequest{}, nil)
	assert.Equal(t, proto.NetStatusNoData, reply.Status)
}

func TestReceiveFilter(t *testing.T) {
	h := newHarness(t)
	mac := h.up(t)

	other := [6]byte{0x02, 1, 2, 3, 4, 5}
	if other == mac {
		other[5]++
	}

	multicast := [6]byte{0x01, 0x00, 0x5e, 1, 2, 3}

	// Unicast to someone else and unknown multicast are dropped,
	// broadcast and own unicast pass.
	h.dev.inject <- frameTo(other, 64)
	h.dev.inject <- frameTo(multicast, 64)
	h.dev.inject <- frameTo(broadcast, 64)
	h.dev.inject <- frameTo(mac, 64)

	require.Eventually(t, func() bool {
		return h.handler.Stats().RxPackets == 2
	}, time.Second, time.Millisecond)

	// Subscribing the multicast group lets it through.
	reply := h.command(t, proto.NetSetMcast,
		proto.NetRequest{Param1: 1}, multicast[:],
	)
	require.Equal(t, proto.NetStatusOK, reply.Status)

	h.dev.inject <- frameTo(multicast, 64)

	require.Eventually(t, func() bool {
		return h.handler.Stats().RxPackets == 3
	}, time.Second, time.Millisecond)

	// Promiscuous mode passes everything.
	reply = h.command(t, proto.NetSetPromisc,
		proto.NetRequest{Param1: 1}, nil,
	)
	require.Equal(t, proto.NetStatusOK, reply.Status)

	h.dev.inject <- frameTo(other, 64)

	require.Eventually(t, func() bool {
		return h.handler.Stats().RxPackets == 4
	}, time.Second, time.Millisecond)
}

func TestGetStats(t *testing.T) {
	h := newHarness(t)
	h.up(t)

	frame := frameTo(broadcast, 64)
	h.command(t, proto.NetSend,
		proto.NetRequest{Length: uint32(len(frame))}, frame,
	)

	reply := h.command(t, proto.NetGetStats, proto.NetRequest{}, nil)
	require.Equal(t, proto.NetStatusOK, reply.Status)
	require.EqualValues(t, proto.NetStatsSize, reply.Length)
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)

	reply := h.command(t, 0x77, proto.NetRequest{}, nil)
	assert.Equal(t, proto.NetStatusBadCmd, reply.Status)
}
