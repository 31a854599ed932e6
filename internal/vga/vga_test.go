// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vga_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risingsunproject/sunpci/internal/proto"
	"github.com/risingsunproject/sunpci/internal/vga"
)

func newHandler() *vga.Handler {
	return vga.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandlerDefaults(t *testing.T) {
	h := newHandler()

	mode := h.Mode()
	assert.EqualValues(t, 720, mode.Width)
	assert.EqualValues(t, 400, mode.Height)
	assert.Zero(t, mode.Flags&proto.VGAModeGraphics)

	_, shape := h.Cursor()
	assert.EqualValues(t, 14, shape.Start)
	assert.EqualValues(t, 1, shape.Visible)

	palette := h.Palette()
	assert.EqualValues(t, 0x0000aa, palette[1])
	assert.EqualValues(t, 0xffffff, palette[15])
	assert.Zero(t, palette[16])

	_, dirty := h.TakeDirty()
	assert.False(t, dirty)
}

func TestHandlerSetMode(t *testing.T) {
	h := newHandler()

	mode := proto.VGAMode{
		Width:  640,
		Height: 480,
		BPP:    8,
		Flags:  proto.VGAModeGraphics,
		Pitch:  640,
	}

	status, _, err := h.Handle(
		context.Background(), proto.VGASetMode, mode.Encode(nil),
	)
	require.NoError(t, err)
	require.Equal(t, proto.StatusSuccess, status)
	assert.Equal(t, mode, h.Mode())

	// A mode switch invalidates the whole screen.
	rect, dirty := h.TakeDirty()
	require.True(t, dirty)
	assert.Equal(t, proto.VGARect{Width: 640, Height: 480}, rect)

	status, _, err = h.Handle(
		context.Background(), proto.VGASetMode,
		proto.VGAMode{Height: 480, BPP: 8}.Encode(nil),
	)
	require.ErrorIs(t, err, vga.ErrInvalidMode)
	assert.Equal(t, proto.StatusError, status)
}

func TestHandlerDirtyCoalescing(t *testing.T) {
	h := newHandler()

	h.MarkDirty(proto.VGARect{X: 10, Y: 10, Width: 20, Height: 20})
	h.MarkDirty(proto.VGARect{X: 100, Y: 50, Width: 10, Height: 10})
	h.MarkDirty(proto.VGARect{}) // ignored

	rect, dirty := h.TakeDirty()
	require.True(t, dirty)
	assert.Equal(t,
		proto.VGARect{X: 10, Y: 10, Width: 100, Height: 50}, rect,
	)

	_, dirty = h.TakeDirty()
	assert.False(t, dirty)
}

func TestHandlerPalette(t *testing.T) {
	h := newHandler()

	// Set entry 200 to full white in 6 bit DAC values.
	payload := []byte{200, 0x3f, 0x3f, 0x3f}

	status, _, err := h.Handle(
		context.Background(), proto.VGASetPalette, payload,
	)
	require.NoError(t, err)
	require.Equal(t, proto.StatusSuccess, status)

	assert.EqualValues(t, 0xfcfcfc, h.Palette()[200])

	status, reply, err := h.Handle(
		context.Background(), proto.VGAGetPalette, nil,
	)
	require.NoError(t, err)
	require.Equal(t, proto.StatusSuccess, status)
	require.Len(t, reply, 1024)
}

func TestHandlerPaletteClamp(t *testing.T) {
	h := newHandler()

	// Two triplets starting at the last index. Only one fits.
	payload := []byte{255, 0x3f, 0, 0, 0, 0x3f, 0}

	status, _, err := h.Handle(
		context.Background(), proto.VGASetPalette, payload,
	)
	require.NoError(t, err)
	require.Equal(t, proto.StatusSuccess, status)

	assert.EqualValues(t, 0xfc0000, h.Palette()[255])
}

func TestHandlerCursorMarksCells(t *testing.T) {
	h := newHandler()

	pos := proto.VGACursor{X: 5, Y: 3}

	status, _, err := h.Handle(
		context.Background(), proto.VGACursorPos, pos.Encode(nil),
	)
	require.NoError(t, err)
	require.Equal(t, proto.StatusSuccess, status)

	got, _ := h.Cursor()
	assert.Equal(t, pos, got)

	// Old cell at origin and new cell at 40,48 form the bound.
	rect, dirty := h.TakeDirty()
	require.True(t, dirty)
	assert.Equal(t, proto.VGARect{Width: 48, Height: 64}, rect)
}

func TestHandlerUnknownCommand(t *testing.T) {
	h := newHandler()

	status, _, err := h.Handle(context.Background(), 0x99, nil)
	require.NoError(t, err)
	assert.Equal(t, proto.StatusInvalidCommand, status)
}
