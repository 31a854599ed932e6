// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package video

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// MaxSurfaces is the surface table capacity.
const MaxSurfaces = 64

// Surface handles start above the range BIOS video modes use.
const handleBase = 0x1000

// Display receives dirty regions for operations that modify visible
// pixels and provides the mode for full screen invalidation.
type Display interface {
	MarkDirty(proto.VGARect)
	Mode() proto.VGAMode
}

// Stats counts completed drawing operations.
type Stats struct {
	Blits uint64
	Flips uint64
}

// Handler is the video dispatcher endpoint.
type Handler struct {
	log     *slog.Logger
	display Display

	mu         sync.Mutex
	surfaces   map[uint32]proto.VideoSurface
	nextHandle uint32
	colorKey   proto.VideoColorKey
	clip       proto.VideoClipRect
	stats      Stats
}

// NewHandler returns a surface manager reporting to display.
func NewHandler(display Display, log *slog.Logger) *Handler {
	return &Handler{
		log:        log,
		display:    display,
		surfaces:   make(map[uint32]proto.VideoSurface, MaxSurfaces),
		nextHandle: handleBase,
		clip:       proto.VideoClipRect{Right: 1024, Bottom: 768},
	}
}

// Stats returns the operation counters.
func (h *Handler) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.stats
}

// Surface looks up a surface by handle.
func (h *Handler) Surface(handle uint32) (proto.VideoSurface, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	surf, ok := h.surfaces[handle]

	return surf, ok
}

// Handle implements the ipc handler interface.
func (h *Handler) Handle(
	_ context.Context,
	command uint16,
	payload []byte,
) (proto.Status, []byte, error) {
	switch command {
	case proto.VideoCreateSurface:
		return h.createSurface(payload)
	case proto.VideoDestroySurface:
		return h.destroySurface(payload)
	case proto.VideoLock:
		return h.lockSurface(payload)
	case proto.VideoUnlock:
		return proto.StatusSuccess, nil, nil
	case proto.VideoBlt:
		return h.blt(payload)
	case proto.VideoFlip:
		return h.flip()
	case proto.VideoSetColorKey:
		return h.setColorKey(payload)
	case proto.VideoSetClipList:
		return h.setClipList(payload)
	default:
		return proto.StatusInvalidCommand, nil, nil
	}
}

// createSurface allocates a handle for the described surface and
// returns it as a little endian word.
func (h *Handler) createSurface(payload []byte) (proto.Status, []byte, error) {
	surf, err := proto.DecodeVideoSurface(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.surfaces) >= MaxSurfaces {
		return proto.StatusBusy, nil, ErrNoSlots
	}

	h.nextHandle++
	surf.Handle = h.nextHandle
	h.surfaces[surf.Handle] = surf

	h.log.Debug("Surface created",
		slog.Any("handle", surf.Handle),
		slog.Any("width", surf.Width),
		slog.Any("height", surf.Height),
		slog.Bool("primary", surf.Flags&proto.SurfPrimary != 0),
	)

	return proto.StatusSuccess,
		binary.LittleEndian.AppendUint32(nil, surf.Handle), nil
}

func (h *Handler) destroySurface(payload []byte) (proto.Status, []byte, error) {
	handle, err := decodeHandle(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.surfaces[handle]; !ok {
		return proto.StatusError, nil, ErrNotFound
	}

	delete(h.surfaces, handle)

	return proto.StatusSuccess, nil, nil
}

// lockSurface grants framebuffer access. Surfaces live in the shared
// mapping, so the reply is the surface's framebuffer offset.
func (h *Handler) lockSurface(payload []byte) (proto.Status, []byte, error) {
	handle, err := decodeHandle(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	surf, ok := h.surfaces[handle]
	if !ok {
		return proto.StatusError, nil, ErrNotFound
	}

	return proto.StatusSuccess,
		binary.LittleEndian.AppendUint32(nil, surf.FBOffset), nil
}

func (h *Handler) blt(payload []byte) (proto.Status, []byte, error) {
	op, err := proto.DecodeVideoBltOp(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	h.mu.Lock()
	h.stats.Blits++
	visible := h.isVisibleLocked(op.DstHandle)
	h.mu.Unlock()

	if visible {
		h.display.MarkDirty(proto.VGARect{
			X:      op.DstX,
			Y:      op.DstY,
			Width:  op.Width,
			Height: op.Height,
		})
	}

	return proto.StatusSuccess, nil, nil
}

// isVisibleLocked reports whether a blit destination reaches the
// screen. Handle zero addresses the primary implicitly.
func (h *Handler) isVisibleLocked(handle uint32) bool {
	if handle == 0 {
		return true
	}

	surf, ok := h.surfaces[handle]

	return ok && surf.Flags&proto.SurfPrimary != 0
}

func (h *Handler) flip() (proto.Status, []byte, error) {
	h.mu.Lock()
	h.stats.Flips++
	h.mu.Unlock()

	mode := h.display.Mode()
	if mode.Width == 0 || mode.Height == 0 {
		mode.Width, mode.Height = 640, 480
	}

	h.display.MarkDirty(proto.VGARect{
		Width:  mode.Width,
		Height: mode.Height,
	})

	return proto.StatusSuccess, nil, nil
}

func (h *Handler) setColorKey(payload []byte) (proto.Status, []byte, error) {
	key, err := proto.DecodeVideoColorKey(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	h.mu.Lock()
	h.colorKey = key
	h.mu.Unlock()

	return proto.StatusSuccess, nil, nil
}

func (h *Handler) setClipList(payload []byte) (proto.Status, []byte, error) {
	clip, err := proto.DecodeVideoClipRect(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	h.mu.Lock()
	h.clip = clip
	h.mu.Unlock()

	return proto.StatusSuccess, nil, nil
}

func decodeHandle(payload []byte) (uint32, error) {
	if len(payload) < 4 {
		return 0, proto.ErrShortPayload
	}

	return binary.LittleEndian.Uint32(payload[:4]), nil
}
