// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vga

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// Text cell dimensions used for cursor dirty marking.
const (
	cellWidth  = 8
	cellHeight = 16
)

// defaultPalette holds the 16 standard EGA colors as packed
// 0x00RRGGBB values. Entries above 15 start out black.
var defaultPalette = [16]uint32{
	0x000000, 0x0000aa, 0x00aa00, 0x00aaaa,
	0xaa0000, 0xaa00aa, 0xaa5500, 0xaaaaaa,
	0x555555, 0x5555ff, 0x55ff55, 0x55ffff,
	0xff5555, 0xff55ff, 0xffff55, 0xffffff,
}

// Handler is the VGA dispatcher endpoint. The zero state is the BIOS
// boot screen, 80x25 text with a blinking underline cursor.
type Handler struct {
	log *slog.Logger

	mu      sync.Mutex
	mode    proto.VGAMode
	palette [256]uint32
	cursor  proto.VGACursor
	shape   proto.VGACursorShapeInfo

	dirty    proto.VGARect
	hasDirty bool
}

// NewHandler returns a display state tracker in the boot text mode.
func NewHandler(log *slog.Logger) *Handler {
	h := &Handler{
		log: log,
		mode: proto.VGAMode{
			Width:  720,
			Height: 400,
			BPP:    4,
			Pitch:  160,
		},
		shape: proto.VGACursorShapeInfo{Start: 14, End: 15, Visible: 1},
	}
	copy(h.palette[:], defaultPalette[:])

	return h
}

// Mode returns the current display mode.
func (h *Handler) Mode() proto.VGAMode {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.mode
}

// Palette returns a copy of the 256 entry color table.
func (h *Handler) Palette() [256]uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.palette
}

// Cursor returns the text cursor position and shape.
func (h *Handler) Cursor() (proto.VGACursor, proto.VGACursorShapeInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.cursor, h.shape
}

// MarkDirty merges a screen region into the pending dirty rectangle.
// Zero sized rectangles are ignored.
func (h *Handler) MarkDirty(r proto.VGARect) {
	if r.Width == 0 || r.Height == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.markDirtyLocked(r)
}

func (h *Handler) markDirtyLocked(r proto.VGARect) {
	if !h.hasDirty {
		h.dirty = r
		h.hasDirty = true

		return
	}

	left := min(h.dirty.X, r.X)
	top := min(h.dirty.Y, r.Y)
	right := max(h.dirty.X+h.dirty.Width, r.X+r.Width)
	bottom := max(h.dirty.Y+h.dirty.Height, r.Y+r.Height)

	h.dirty = proto.VGARect{
		X:      left,
		Y:      top,
		Width:  right - left,
		Height: bottom - top,
	}
}

// TakeDirty returns the pending dirty rectangle and clears it. The
// second result is false if nothing changed since the last call.
func (h *Handler) TakeDirty() (proto.VGARect, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.hasDirty {
		return proto.VGARect{}, false
	}

	h.hasDirty = false

	return h.dirty, true
}

// Handle implements the ipc handler interface.
func (h *Handler) Handle(
	_ context.Context,
	command uint16,
	payload []byte,
) (proto.Status, []byte, error) {
	switch command {
	case proto.VGASetMode:
		return h.setMode(payload)
	case proto.VGAGetMode:
		return proto.StatusSuccess, h.Mode().Encode(nil), nil
	case proto.VGASetPalette:
		return h.setPalette(payload)
	case proto.VGAGetPalette:
		return proto.StatusSuccess, h.encodePalette(), nil
	case proto.VGADirtyRect:
		return h.dirtyRect(payload)
	case proto.VGACursorPos:
		return h.cursorPos(payload)
	case proto.VGACursorShape:
		return h.cursorShape(payload)
	default:
		return proto.StatusInvalidCommand, nil, nil
	}
}

func (h *Handler) setMode(payload []byte) (proto.Status, []byte, error) {
	mode, err := proto.DecodeVGAMode(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	if mode.Width == 0 || mode.Height == 0 || mode.BPP == 0 {
		return proto.StatusError, nil, ErrInvalidMode
	}

	h.mu.Lock()
	h.mode = mode
	h.markDirtyLocked(proto.VGARect{Width: mode.Width, Height: mode.Height})
	h.mu.Unlock()

	h.log.Info("Display mode set",
		slog.Any("width", mode.Width),
		slog.Any("height", mode.Height),
		slog.Any("bpp", mode.BPP),
		slog.Bool("graphics", mode.Flags&proto.VGAModeGraphics != 0),
	)

	return proto.StatusSuccess, nil, nil
}

// setPalette updates color entries. The payload starts with the first
// index to set, followed by 3 byte RGB triplets with 6 bit DAC values.
func (h *Handler) setPalette(payload []byte) (proto.Status, []byte, error) {
	if len(payload) < 4 {
		return proto.StatusError, nil, proto.ErrShortPayload
	}

	start := int(payload[0])
	entries := payload[1:]
	count := min(len(entries)/3, 256-start)

	h.mu.Lock()

	for idx := range count {
		r := uint32(entries[idx*3]) << 2
		g := uint32(entries[idx*3+1]) << 2
		b := uint32(entries[idx*3+2]) << 2
		h.palette[start+idx] = r<<16 | g<<8 | b
	}

	h.mu.Unlock()

	return proto.StatusSuccess, nil, nil
}

func (h *Handler) encodePalette() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf := make([]byte, 0, len(h.palette)*4)
	for _, color := range h.palette {
		buf = binary.LittleEndian.AppendUint32(buf, color)
	}

	return buf
}

func (h *Handler) dirtyRect(payload []byte) (proto.Status, []byte, error) {
	rect, err := proto.DecodeVGARect(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	h.MarkDirty(rect)

	return proto.StatusSuccess, nil, nil
}

// cursorPos moves the text cursor. The old and new character cells
// are marked dirty so the renderer repaints both.
func (h *Handler) cursorPos(payload []byte) (proto.Status, []byte, error) {
	pos, err := proto.DecodeVGACursor(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	h.mu.Lock()

	if h.mode.Flags&proto.VGAModeGraphics == 0 {
		for _, p := range [...]proto.VGACursor{h.cursor, pos} {
			h.markDirtyLocked(proto.VGARect{
				X:      p.X * cellWidth,
				Y:      p.Y * cellHeight,
				Width:  cellWidth,
				Height: cellHeight,
			})
		}
	}

	h.cursor = pos
	h.mu.Unlock()

	return proto.StatusSuccess, nil, nil
}

func (h *Handler) cursorShape(payload []byte) (proto.Status, []byte, error) {
	shape, err := proto.DecodeVGACursorShape(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	h.mu.Lock()
	h.shape = shape
	h.mu.Unlock()

	return proto.StatusSuccess, nil, nil
}
