// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package audio

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// defaultFormat is CD quality stereo, what the emulated sound card
// negotiates when the guest driver does not care.
var defaultFormat = proto.AudioFormat{
	SampleRate: 44100,
	Format: proto.AudioFmt16Bit |
		proto.AudioFmtStereo |
		proto.AudioFmtSigned,
}

// Stats counts drained slot buffers.
type Stats struct {
	Buffers uint64
	Bytes   uint64
}

// Handler is the audio dispatcher endpoint.
type Handler struct {
	log  *slog.Logger
	out  Output
	base uint32

	mu          sync.Mutex
	ring        *ring
	initialized bool
	status      uint32
	format      proto.AudioFormat
	stats       Stats
}

// NewHandler returns an audio device over the given shared area. The
// base offset is where the area sits inside the full shared mapping
// and is reported to the guest on init. A nil output plays nothing.
func NewHandler(
	mem []byte,
	base uint32,
	out Output,
	log *slog.Logger,
) (*Handler, error) {
	r, err := newRing(mem)
	if err != nil {
		return nil, err
	}

	return &Handler{
		log:    log,
		out:    out,
		base:   base,
		ring:   r,
		format: defaultFormat,
	}, nil
}

// Stats returns the drain counters.
func (h *Handler) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.stats
}

// Handle implements the ipc handler interface.
func (h *Handler) Handle(
	_ context.Context,
	command uint16,
	payload []byte,
) (proto.Status, []byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if command != proto.AudioInit && !h.initialized {
		return proto.StatusError, nil, ErrNotInitialized
	}

	switch command {
	case proto.AudioInit:
		return h.init()
	case proto.AudioStart:
		return h.start()
	case proto.AudioStop:
		return h.stop()
	case proto.AudioSetFormat:
		return h.setFormat(payload)
	case proto.AudioSetVolume:
		return h.setVolume(payload)
	case proto.AudioGetStatus:
		return proto.StatusSuccess,
			binary.LittleEndian.AppendUint32(nil, h.status), nil
	case proto.AudioBufferDone:
		return h.drain()
	default:
		return proto.StatusInvalidCommand, nil, nil
	}
}

// init resets the shared ring and opens the output. A failing output
// does not fail the guest, the device just plays muted.
func (h *Handler) init() (proto.Status, []byte, error) {
	h.ring.init(h.format)
	h.status = 0
	h.initialized = true

	if h.out != nil {
		err := h.out.Open(int(h.format.SampleRate), h.channels())
		if err != nil {
			h.log.Warn("Audio output unavailable, playing muted",
				slog.Any("error", err),
			)

			h.status |= proto.AudioStatusMuted
		}
	} else {
		h.status |= proto.AudioStatusMuted
	}

	h.ring.setField(proto.AudioOffStatus, h.status)

	return proto.StatusSuccess,
		binary.LittleEndian.AppendUint32(nil, h.base), nil
}

func (h *Handler) start() (proto.Status, []byte, error) {
	if h.out != nil {
		h.out.Play()
	}

	h.status |= proto.AudioStatusPlaying
	h.ring.setField(proto.AudioOffStatus, h.status)

	return proto.StatusSuccess, nil, nil
}

func (h *Handler) stop() (proto.Status, []byte, error) {
	if h.out != nil {
		h.out.Pause()
	}

	h.status &^= proto.AudioStatusPlaying
	h.ring.setField(proto.AudioOffStatus, h.status)

	return proto.StatusSuccess, nil, nil
}

// setFormat records the stream parameters. The output keeps the
// parameters it was opened with, a mismatch is resampled by the
// system mixer and only logged here.
func (h *Handler) setFormat(payload []byte) (proto.Status, []byte, error) {
	format, err := proto.DecodeAudioFormat(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	if format != h.format {
		h.log.Info("Audio format changed",
			slog.Any("rate", format.SampleRate),
			slog.Bool("stereo", format.Format&proto.AudioFmtStereo != 0),
			slog.Bool("16bit", format.Format&proto.AudioFmt16Bit != 0),
		)
	}

	h.format = format
	h.ring.setField(proto.AudioOffSampleRate, format.SampleRate)
	h.ring.setField(proto.AudioOffFormat, format.Format)

	return proto.StatusSuccess, nil, nil
}

// setVolume takes the left and right levels as single bytes.
func (h *Handler) setVolume(payload []byte) (proto.Status, []byte, error) {
	if len(payload) < 2 {
		return proto.StatusError, nil, proto.ErrShortPayload
	}

	left, right := uint32(payload[0]), uint32(payload[1])
	h.ring.setField(proto.AudioOffVolumeL, left)
	h.ring.setField(proto.AudioOffVolumeR, right)

	if h.out != nil {
		h.out.SetVolume(float64(max(left, right)) / 255)
	}

	return proto.StatusSuccess, nil, nil
}

// drain pushes all filled slots to the output.
func (h *Handler) drain() (proto.Status, []byte, error) {
	for {
		slot, ok := h.ring.takeSlot()
		if !ok {
			break
		}

		if h.out != nil {
			h.out.Push(slot)
		}

		h.stats.Buffers++
		h.stats.Bytes += uint64(len(slot))
	}

	return proto.StatusSuccess, nil, nil
}

func (h *Handler) channels() int {
	if h.format.Format&proto.AudioFmtStereo != 0 {
		return 2
	}

	return 1
}
