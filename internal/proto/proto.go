// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package proto

import "encoding/binary"

// Magic identifies a valid frame header ("SPCI").
const Magic uint32 = 0x53504349

// Message size limits. MaxMessageSize matches the ring window size,
// and a ring keeps one slot empty to tell full from empty, so the
// payload cap leaves one byte of headroom for a maximal frame to fit.
const (
	HeaderSize     = 16
	MaxMessageSize = 64 * 1024
	MaxPayload     = MaxMessageSize - HeaderSize - 1
)

// DispatcherID addresses a virtual-device endpoint.
type DispatcherID uint16

// Dispatcher IDs.
const (
	DispCore DispatcherID = iota
	DispVGA
	DispVideo
	DispAudio
	DispNetwork
	DispFSD
	DispInput
	DispClipboard
	DispStorage

	NumDispatchers
)

// String implements [fmt.Stringer].
func (d DispatcherID) String() string {
	names := [...]string{
		"core", "vga", "video", "audio", "network",
		"fsd", "input", "clipboard", "storage",
	}

	if int(d) < len(names) {
		return names[d]
	}

	return "unknown"
}

// Status is the transport-level response status code.
type Status uint16

// Response status codes.
const (
	StatusSuccess Status = iota
	StatusError
	StatusInvalidCommand
	StatusInvalidDispatcher
	StatusTimeout
	StatusBusy
)

// Core dispatcher commands.
const (
	CoreInit        uint16 = 0x0001
	CoreShutdown    uint16 = 0x0002
	CorePing        uint16 = 0x0003
	CoreGetVersion  uint16 = 0x0004
	CoreSetFeatures uint16 = 0x0005
	CoreGetFeatures uint16 = 0x0006

	CoreChannelCreate uint16 = 0x0010
	CoreChannelDelete uint16 = 0x0011
	CoreChannelBind   uint16 = 0x0012
	CoreChannelUnbind uint16 = 0x0013
	CoreChannelData   uint16 = 0x0014
)

// Storage dispatcher commands (INT 13h BIOS disk services).
const (
	StorageRead      uint16 = 0x0001
	StorageWrite     uint16 = 0x0002
	StorageVerify    uint16 = 0x0003
	StorageFormat    uint16 = 0x0004
	StorageGetParams uint16 = 0x0005
	StorageGetType   uint16 = 0x0006
	StorageReset     uint16 = 0x0007
	StorageRecal     uint16 = 0x0008
	StorageSeek      uint16 = 0x0009
	StorageEject     uint16 = 0x000A
	StorageMount     uint16 = 0x000B
	StorageUnmount   uint16 = 0x000C
	StorageScsi      uint16 = 0x000D
)

// BIOS per-operation status bytes carried in storage response payloads.
const (
	BiosOK          uint32 = 0x00
	BiosBadCommand  uint32 = 0x01
	BiosNotFound    uint32 = 0x02
	BiosWriteProt   uint32 = 0x03
	BiosSectorNF    uint32 = 0x04
	BiosResetFail   uint32 = 0x05
	BiosMediaChange uint32 = 0x06
	BiosDriveParam  uint32 = 0x07
	BiosNoMedia     uint32 = 0xAA
	BiosUndefined   uint32 = 0xBB
)

// BIOS drive numbers.
const (
	DriveFloppyA uint32 = 0x00
	DriveFloppyB uint32 = 0x01
	DriveHD0     uint32 = 0x80
	DriveHD1     uint32 = 0x81
	DriveCDROM   uint32 = 0xE0
)

// RequestHeader frames a command sent to a dispatcher.
type RequestHeader struct {
	Dispatcher DispatcherID
	Command    uint16
	Sequence   uint32
	PayloadLen uint32
}

// Encode appends the 16 byte wire form of the header to buf and
// returns the result.
func (h RequestHeader) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, Magic)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(h.Dispatcher))
	buf = binary.LittleEndian.AppendUint16(buf, h.Command)
	buf = binary.LittleEndian.AppendUint32(buf, h.Sequence)
	buf = binary.LittleEndian.AppendUint32(buf, h.PayloadLen)

	return buf
}

// DecodeRequestHeader parses a request header from the first 16 bytes
// of data. It fails with [ErrBadMagic] if the magic does not match and
// [ErrShortHeader] if data is too short.
func DecodeRequestHeader(data []byte) (RequestHeader, error) {
	if len(data) < HeaderSize {
		return RequestHeader{}, ErrShortHeader
	}

	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return RequestHeader{}, ErrBadMagic
	}

	return RequestHeader{
		Dispatcher: DispatcherID(binary.LittleEndian.Uint16(data[4:6])),
		Command:    binary.LittleEndian.Uint16(data[6:8]),
		Sequence:   binary.LittleEndian.Uint32(data[8:12]),
		PayloadLen: binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

// ResponseHeader frames the reply to a previously sent request,
// echoing its sequence number.
type ResponseHeader struct {
	Status     Status
	Sequence   uint32
	PayloadLen uint32
}

// Encode appends the 16 byte wire form of the header to buf and
// returns the result.
func (h ResponseHeader) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, Magic)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(h.Status))
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, h.Sequence)
	buf = binary.LittleEndian.AppendUint32(buf, h.PayloadLen)

	return buf
}

// DecodeResponseHeader parses a response header from the first 16
// bytes of data.
func DecodeResponseHeader(data []byte) (ResponseHeader, error) {
	if len(data) < HeaderSize {
		return ResponseHeader{}, ErrShortHeader
	}

	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return ResponseHeader{}, ErrBadMagic
	}

	return ResponseHeader{
		Status:     Status(binary.LittleEndian.Uint16(data[4:6])),
		Sequence:   binary.LittleEndian.Uint32(data[8:12]),
		PayloadLen: binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

// PeekSequence extracts the sequence field from an undecoded header.
// Request and response headers keep the sequence at the same offset,
// so this works for either before the direction is known.
func PeekSequence(data []byte) (uint32, error) {
	if len(data) < HeaderSize {
		return 0, ErrShortHeader
	}

	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return 0, ErrBadMagic
	}

	return binary.LittleEndian.Uint32(data[8:12]), nil
}

// PeekPayloadLen extracts the payload length field from an undecoded
// header.
func PeekPayloadLen(data []byte) (uint32, error) {
	if len(data) < HeaderSize {
		return 0, ErrShortHeader
	}

	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return 0, ErrBadMagic
	}

	return binary.LittleEndian.Uint32(data[12:16]), nil
}
