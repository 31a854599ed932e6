// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package netbridge

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// rxQueueLen bounds frames waiting for the guest to collect them.
const rxQueueLen = 64

// maxFrame is the receive buffer size, an ethernet frame plus slack.
const maxFrame = 2048

// validIRQs are the interrupt lines the emulated ISA adapter can use.
var validIRQs = [...]uint32{9, 10, 11, 15}

const fallbackIRQ = 10

// Device is the backing host interface, usually a TAP file.
type Device = io.ReadWriteCloser

// Poster sends unsolicited frames to the guest.
type Poster interface {
	Post(
		dispatcher proto.DispatcherID,
		command uint16,
		payload []byte,
	) (uint32, error)
}

// Handler is the network dispatcher endpoint. All replies carry the
// adapter's own status word, the frame status stays success unless
// the payload itself is broken.
type Handler struct {
	log    *slog.Logger
	poster Poster
	dev    Device

	mu         sync.Mutex
	opened     bool
	rxStarted  bool
	irq        uint32
	mac        [6]byte
	promisc    bool
	allmulti   bool
	mcast      [][6]byte
	queue      [][]byte
	intPending bool
	stats      proto.NetStats
}

// NewHandler returns an adapter over the given device. A nil device
// reports no device to the guest, which matches an unconfigured
// bridge.
func NewHandler(dev Device, poster Poster, log *slog.Logger) *Handler {
	return &Handler{
		log:    log,
		poster: poster,
		dev:    dev,
		irq:    fallbackIRQ,
	}
}

// MAC returns the adapter's generated hardware address.
func (h *Handler) MAC() [6]byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.mac
}

// Stats returns the adapter counters.
func (h *Handler) Stats() proto.NetStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.stats
}

// Close shuts the backing device down, which also stops the receive
// worker.
func (h *Handler) Close() error {
	h.mu.Lock()
	h.opened = false
	dev := h.dev
	h.dev = nil
	h.mu.Unlock()

	if dev != nil {
		return dev.Close()
	}

	return nil
}

// Handle implements the ipc handler interface.
func (h *Handler) Handle(
	_ context.Context,
	command uint16,
	payload []byte,
) (proto.Status, []byte, error) {
	req, err := proto.DecodeNetRequest(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	data := payload[proto.NetRequestSize:]

	var reply []byte

	switch command {
	case proto.NetInit:
		reply = h.init(req)
	case proto.NetOpen:
		reply = h.open()
	case proto.NetClose:
		reply = h.close()
	case proto.NetSend:
		reply = h.send(req, data)
	case proto.NetRecv:
		reply = h.recv()
	case proto.NetSetMcast:
		reply = h.setMcast(req, data)
	case proto.NetSetPromisc:
		reply = h.setFlag(&h.promisc, req.Param1)
	case proto.NetSetAllMulti:
		reply = h.setFlag(&h.allmulti, req.Param1)
	case proto.NetGetStats:
		reply = h.getStats()
	case proto.NetIntRelease:
		reply = h.intRelease()
	default:
		reply = status(proto.NetStatusBadCmd)
	}

	return proto.StatusSuccess, reply, nil
}

func status(code uint32) []byte {
	return proto.NetReply{Status: code}.Encode(nil)
}

// init picks the interrupt line, generates a locally administered
// hardware address and returns it.
func (h *Handler) init(req proto.NetRequest) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dev == nil {
		return status(proto.NetStatusNoDevice)
	}

	h.irq = fallbackIRQ

	for _, irq := range validIRQs {
		if req.Param1 == irq {
			h.irq = irq
		}
	}

	if _, err := rand.Read(h.mac[:]); err != nil {
		return status(proto.NetStatusError)
	}

	h.mac[0] = h.mac[0]&0xfe | 0x02

	h.log.Info("Network adapter initialized",
		slog.Any("irq", h.irq),
		slog.String("mac", macString(h.mac)),
	)

	reply := proto.NetReply{Status: proto.NetStatusOK, Length: 6}

	return append(reply.Encode(nil), h.mac[:]...)
}

func (h *Handler) open() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dev == nil {
		return status(proto.NetStatusNoDevice)
	}

	h.opened = true

	// The receive worker outlives close and open cycles. The opened
	// flag gates delivery instead, so a blocking read never needs to
	// be interrupted.
	if !h.rxStarted {
		h.rxStarted = true

		go h.rxLoop(h.dev)
	}

	return status(proto.NetStatusOK)
}

func (h *Handler) close() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.opened = false
	h.queue = nil
	h.intPending = false

	return status(proto.NetStatusOK)
}

func (h *Handler) send(req proto.NetRequest, data []byte) []byte {
	if int(req.Length) > len(data) {
		return status(proto.NetStatusBadPacket)
	}

	frame := data[:req.Length]
	if len(frame) < 14 || len(frame) > proto.NetMaxFrame {
		return status(proto.NetStatusBadPacket)
	}

	// Short frames go out padded to the ethernet minimum.
	if len(frame) < proto.NetMinFrame {
		padded := make([]byte, proto.NetMinFrame)
		copy(padded, frame)
		frame = padded
	}

	h.mu.Lock()
	dev := h.dev
	opened := h.opened
	h.mu.Unlock()

	if dev == nil || !opened {
		return status(proto.NetStatusNoDevice)
	}

	if _, err := dev.Write(frame); err != nil {
		h.mu.Lock()
		h.stats.TxErrors++
		h.mu.Unlock()

		return status(proto.NetStatusError)
	}

	h.mu.Lock()
	h.stats.TxPackets++
	h.stats.TxBytes += uint64(len(frame))
	h.mu.Unlock()

	return status(proto.NetStatusOK)
}

func (h *Handler) recv() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.queue) == 0 {
		return status(proto.NetStatusNoData)
	}

	frame := h.queue[0]
	h.queue = h.queue[1:]

	reply := proto.NetReply{
		Status: proto.NetStatusOK,
		Length: uint32(len(frame)),
	}

	return append(reply.Encode(nil), frame...)
}

func (h *Handler) setMcast(req proto.NetRequest, data []byte) []byte {
	count := int(req.Param1)
	if count > proto.NetMaxMcast || len(data) < count*6 {
		return status(proto.NetStatusError)
	}

	list := make([][6]byte, count)
	for idx := range list {
		copy(list[idx][:], data[idx*6:])
	}

	h.mu.Lock()
	h.mcast = list
	h.mu.Unlock()

	return status(proto.NetStatusOK)
}

func (h *Handler) setFlag(flag *bool, param uint32) []byte {
	h.mu.Lock()
	*flag = param != 0
	h.mu.Unlock()

	return status(proto.NetStatusOK)
}

func (h *Handler) getStats() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	reply := proto.NetReply{
		Status: proto.NetStatusOK,
		Length: proto.NetStatsSize,
	}

	return h.stats.Encode(reply.Encode(nil))
}

// intRelease rearms the data ready interrupt. A queue that filled up
// meanwhile fires it again right away.
func (h *Handler) intRelease() []byte {
	h.mu.Lock()
	h.intPending = false
	notify := len(h.queue) > 0 && h.opened
	if notify {
		h.intPending = true
	}
	irq := h.irq
	h.mu.Unlock()

	if notify {
		h.postDataReady(irq)
	}

	return status(proto.NetStatusOK)
}

// rxLoop reads frames from the device until it is closed.
func (h *Handler) rxLoop(dev Device) {
	buf := make([]byte, maxFrame)

	for {
		n, err := dev.Read(buf)
		if err != nil {
			h.log.Debug("Receive worker stopped",
				slog.Any("error", err),
			)

			return
		}

		if n < 14 {
			continue
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])

		h.deliver(frame)
	}
}

func (h *Handler) deliver(frame []byte) {
	h.mu.Lock()

	if !h.opened || !h.accepts(frame) {
		h.mu.Unlock()

		return
	}

	if len(h.queue) >= rxQueueLen {
		h.stats.RxDropped++
		h.mu.Unlock()

		return
	}

	h.queue = append(h.queue, frame)
	h.stats.RxPackets++
	h.stats.RxBytes += uint64(len(frame))

	notify := !h.intPending
	if notify {
		h.intPending = true
	}
	irq := h.irq

	h.mu.Unlock()

	if notify {
		h.postDataReady(irq)
	}
}

// accepts applies the adapter's receive filter. Called with the lock
// held.
func (h *Handler) accepts(frame []byte) bool {
	if h.promisc {
		return true
	}

	dst := frame[:6]

	if isBroadcast(dst) {
		return true
	}

	if dst[0]&0x01 != 0 {
		if h.allmulti {
			return true
		}

		for _, mac := range h.mcast {
			if [6]byte(dst) == mac {
				return true
			}
		}

		return false
	}

	return [6]byte(dst) == h.mac
}

func (h *Handler) postDataReady(irq uint32) {
	payload := proto.NetRequest{
		Command: uint32(proto.NetDataReady),
		Param1:  irq,
	}.Encode(nil)

	_, err := h.poster.Post(proto.DispNetwork, proto.NetDataReady, payload)
	if err != nil {
		h.log.Warn("Data ready notification failed",
			slog.Any("error", err),
		)
	}
}

func isBroadcast(dst []byte) bool {
	for _, b := range dst {
		if b != 0xff {
			return false
		}
	}

	return true
}

func macString(mac [6]byte) string {
	return net.HardwareAddr(mac[:]).String()
}
