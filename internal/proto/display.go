// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package proto

import "encoding/binary"

// VGA dispatcher commands.
const (
	VGASetMode     uint16 = 0x0001
	VGAGetMode     uint16 = 0x0002
	VGASetPalette  uint16 = 0x0003
	VGAGetPalette  uint16 = 0x0004
	VGADirtyRect   uint16 = 0x0005
	VGACursorPos   uint16 = 0x0006
	VGACursorShape uint16 = 0x0007
)

// VGAMode describes the guest display mode.
type VGAMode struct {
	Width    uint16
	Height   uint16
	BPP      uint16
	Flags    uint16
	Pitch    uint32
	FBOffset uint32
}

// VGAModeGraphics is set in [VGAMode.Flags] when the mode is a
// graphics mode rather than text.
const VGAModeGraphics uint16 = 1 << 0

// VGAModeSize is the wire size of [VGAMode].
const VGAModeSize = 16

// Encode appends the wire form to buf and returns the result.
func (m VGAMode) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, m.Width)
	buf = binary.LittleEndian.AppendUint16(buf, m.Height)
	buf = binary.LittleEndian.AppendUint16(buf, m.BPP)
	buf = binary.LittleEndian.AppendUint16(buf, m.Flags)
	buf = binary.LittleEndian.AppendUint32(buf, m.Pitch)
	buf = binary.LittleEndian.AppendUint32(buf, m.FBOffset)

	return buf
}

// DecodeVGAMode parses a [VGAMode].
func DecodeVGAMode(data []byte) (VGAMode, error) {
	if len(data) < VGAModeSize {
		return VGAMode{}, ErrShortPayload
	}

	return VGAMode{
		Width:    binary.LittleEndian.Uint16(data[0:2]),
		Height:   binary.LittleEndian.Uint16(data[2:4]),
		BPP:      binary.LittleEndian.Uint16(data[4:6]),
		Flags:    binary.LittleEndian.Uint16(data[6:8]),
		Pitch:    binary.LittleEndian.Uint32(data[8:12]),
		FBOffset: binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

// VGARect is a framebuffer region, used for dirty update reporting.
type VGARect struct {
	X      uint16
	Y      uint16
	Width  uint16
	Height uint16
}

// VGARectSize is the wire size of [VGARect].
const VGARectSize = 8

// Encode appends the wire form to buf and returns the result.
func (r VGARect) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, r.X)
	buf = binary.LittleEndian.AppendUint16(buf, r.Y)
	buf = binary.LittleEndian.AppendUint16(buf, r.Width)
	buf = binary.LittleEndian.AppendUint16(buf, r.Height)

	return buf
}

// DecodeVGARect parses a [VGARect].
func DecodeVGARect(data []byte) (VGARect, error) {
	if len(data) < VGARectSize {
		return VGARect{}, ErrShortPayload
	}

	return VGARect{
		X:      binary.LittleEndian.Uint16(data[0:2]),
		Y:      binary.LittleEndian.Uint16(data[2:4]),
		Width:  binary.LittleEndian.Uint16(data[4:6]),
		Height: binary.LittleEndian.Uint16(data[6:8]),
	}, nil
}

// VGACursor is the text mode cursor position in character cells.
type VGACursor struct {
	X uint16
	Y uint16
}

// VGACursorSize is the wire size of [VGACursor].
const VGACursorSize = 4

// Encode appends the wire form to buf and returns the result.
func (c VGACursor) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, c.X)
	buf = binary.LittleEndian.AppendUint16(buf, c.Y)

	return buf
}

// DecodeVGACursor parses a [VGACursor].
func DecodeVGACursor(data []byte) (VGACursor, error) {
	if len(data) < VGACursorSize {
		return VGACursor{}, ErrShortPayload
	}

	return VGACursor{
		X: binary.LittleEndian.Uint16(data[0:2]),
		Y: binary.LittleEndian.Uint16(data[2:4]),
	}, nil
}

// VGACursorShapeInfo is the text mode cursor scanline shape.
type VGACursorShapeInfo struct {
	Start   uint8
	End     uint8
	Visible uint8
}

// VGACursorShapeSize is the wire size of [VGACursorShapeInfo].
const VGACursorShapeSize = 3

// Encode appends the wire form to buf and returns the result.
func (s VGACursorShapeInfo) Encode(buf []byte) []byte {
	return append(buf, s.Start, s.End, s.Visible)
}

// DecodeVGACursorShape parses a [VGACursorShapeInfo].
func DecodeVGACursorShape(data []byte) (VGACursorShapeInfo, error) {
	if len(data) < VGACursorShapeSize {
		return VGACursorShapeInfo{}, ErrShortPayload
	}

	return VGACursorShapeInfo{
		Start:   data[0],
		End:     data[1],
		Visible: data[2],
	}, nil
}

// Video dispatcher commands.
const (
	VideoCreateSurface  uint16 = 0x0001
	VideoDestroySurface uint16 = 0x0002
	VideoLock           uint16 = 0x0003
	VideoUnlock         uint16 = 0x0004
	VideoBlt            uint16 = 0x0005
	VideoFlip           uint16 = 0x0006
	VideoSetColorKey    uint16 = 0x0007
	VideoSetClipList    uint16 = 0x0008
)

// Surface flags.
const (
	SurfPrimary   uint32 = 1 << 0
	SurfOffscreen uint32 = 1 << 1
	SurfOverlay   uint32 = 1 << 2
	SurfVisible   uint32 = 1 << 3
)

// VideoSurface describes a drawing surface.
type VideoSurface struct {
	Handle      uint32
	Width       uint32
	Height      uint32
	BPP         uint32
	Pitch       uint32
	Flags       uint32
	Caps        uint32
	PixelFormat uint32
	FBOffset    uint32
}

// VideoSurfaceSize is the wire size of [VideoSurface].
const VideoSurfaceSize = 36

// Encode appends the wire form to buf and returns the result.
func (s VideoSurface) Encode(buf []byte) []byte {
	for _, v := range [...]uint32{
		s.Handle, s.Width, s.Height, s.BPP, s.Pitch,
		s.Flags, s.Caps, s.PixelFormat, s.FBOffset,
	} {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}

	return buf
}

// DecodeVideoSurface parses a [VideoSurface].
func DecodeVideoSurface(data []byte) (VideoSurface, error) {
	if len(data) < VideoSurfaceSize {
		return VideoSurface{}, ErrShortPayload
	}

	return VideoSurface{
		Handle:      binary.LittleEndian.Uint32(data[0:4]),
		Width:       binary.LittleEndian.Uint32(data[4:8]),
		Height:      binary.LittleEndian.Uint32(data[8:12]),
		BPP:         binary.LittleEndian.Uint32(data[12:16]),
		Pitch:       binary.LittleEndian.Uint32(data[16:20]),
		Flags:       binary.LittleEndian.Uint32(data[20:24]),
		Caps:        binary.LittleEndian.Uint32(data[24:28]),
		PixelFormat: binary.LittleEndian.Uint32(data[28:32]),
		FBOffset:    binary.LittleEndian.Uint32(data[32:36]),
	}, nil
}

// VideoBltOp is one blit operation between surfaces.
type VideoBltOp struct {
	SrcHandle uint32
	DstHandle uint32
	SrcX      uint16
	SrcY      uint16
	DstX      uint16
	DstY      uint16
	Width     uint16
	Height    uint16
	ROP       uint32
	Flags     uint32
}

// VideoBltOpSize is the wire size of [VideoBltOp].
const VideoBltOpSize = 28

// Encode appends the wire form to buf and returns the result.
func (b VideoBltOp) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, b.SrcHandle)
	buf = binary.LittleEndian.AppendUint32(buf, b.DstHandle)
	buf = binary.LittleEndian.AppendUint16(buf, b.SrcX)
	buf = binary.LittleEndian.AppendUint16(buf, b.SrcY)
	buf = binary.LittleEndian.AppendUint16(buf, b.DstX)
	buf = binary.LittleEndian.AppendUint16(buf, b.DstY)
	buf = binary.LittleEndian.AppendUint16(buf, b.Width)
	buf = binary.LittleEndian.AppendUint16(buf, b.Height)
	buf = binary.LittleEndian.AppendUint32(buf, b.ROP)
	buf = binary.LittleEndian.AppendUint32(buf, b.Flags)

	return buf
}

// DecodeVideoBltOp parses a [VideoBltOp].
func DecodeVideoBltOp(data []byte) (VideoBltOp, error) {
	if len(data) < VideoBltOpSize {
		return VideoBltOp{}, ErrShortPayload
	}

	return VideoBltOp{
		SrcHandle: binary.LittleEndian.Uint32(data[0:4]),
		DstHandle: binary.LittleEndian.Uint32(data[4:8]),
		SrcX:      binary.LittleEndian.Uint16(data[8:10]),
		SrcY:      binary.LittleEndian.Uint16(data[10:12]),
		DstX:      binary.LittleEndian.Uint16(data[12:14]),
		DstY:      binary.LittleEndian.Uint16(data[14:16]),
		Width:     binary.LittleEndian.Uint16(data[16:18]),
		Height:    binary.LittleEndian.Uint16(data[18:20]),
		ROP:       binary.LittleEndian.Uint32(data[20:24]),
		Flags:     binary.LittleEndian.Uint32(data[24:28]),
	}, nil
}

// VideoColorKey configures source and destination transparency keys.
type VideoColorKey struct {
	SrcKey uint32
	DstKey uint32
	Flags  uint32
}

// VideoColorKeySize is the wire size of [VideoColorKey].
const VideoColorKeySize = 12

// Encode appends the wire form to buf and returns the result.
func (k VideoColorKey) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, k.SrcKey)
	buf = binary.LittleEndian.AppendUint32(buf, k.DstKey)
	buf = binary.LittleEndian.AppendUint32(buf, k.Flags)

	return buf
}

// DecodeVideoColorKey parses a [VideoColorKey].
func DecodeVideoColorKey(data []byte) (VideoColorKey, error) {
	if len(data) < VideoColorKeySize {
		return VideoColorKey{}, ErrShortPayload
	}

	return VideoColorKey{
		SrcKey: binary.LittleEndian.Uint32(data[0:4]),
		DstKey: binary.LittleEndian.Uint32(data[4:8]),
		Flags:  binary.LittleEndian.Uint32(data[8:12]),
	}, nil
}

// VideoClipRect bounds drawing to a screen region.
type VideoClipRect struct {
	Left   uint16
	Top    uint16
	Right  uint16
	Bottom uint16
}

// VideoClipRectSize is the wire size of [VideoClipRect].
const VideoClipRectSize = 8

// Encode appends the wire form to buf and returns the result.
func (c VideoClipRect) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, c.Left)
	buf = binary.LittleEndian.AppendUint16(buf, c.Top)
	buf = binary.LittleEndian.AppendUint16(buf, c.Right)
	buf = binary.LittleEndian.AppendUint16(buf, c.Bottom)

	return buf
}

// DecodeVideoClipRect parses a [VideoClipRect].
func DecodeVideoClipRect(data []byte) (VideoClipRect, error) {
	if len(data) < VideoClipRectSize {
		return VideoClipRect{}, ErrShortPayload
	}

	return VideoClipRect{
		Left:   binary.LittleEndian.Uint16(data[0:2]),
		Top:    binary.LittleEndian.Uint16(data[2:4]),
		Right:  binary.LittleEndian.Uint16(data[4:6]),
		Bottom: binary.LittleEndian.Uint16(data[6:8]),
	}, nil
}
