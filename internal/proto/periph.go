// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package proto

import "encoding/binary"

// Network dispatcher commands.
const (
	NetInit        uint16 = 0x0001
	NetOpen        uint16 = 0x0002
	NetClose       uint16 = 0x0003
	NetSend        uint16 = 0x0004
	NetRecv        uint16 = 0x0005
	NetDataReady   uint16 = 0x0006
	NetSetMcast    uint16 = 0x0007
	NetSetPromisc  uint16 = 0x0008
	NetSetAllMulti uint16 = 0x0009
	NetGetStats    uint16 = 0x000a
	NetIntRelease  uint16 = 0x000b
)

// Network sub status codes, carried in [NetReply.Status]. The adapter
// protocol predates the frame status word and keeps its own.
const (
	NetStatusOK        uint32 = 0
	NetStatusError     uint32 = 1
	NetStatusBadCmd    uint32 = 2
	NetStatusBadPacket uint32 = 3
	NetStatusNoData    uint32 = 4
	NetStatusNoDevice  uint32 = 5
	NetStatusNoBuffer  uint32 = 6
)

// Ethernet frame size limits enforced on [NetSend].
const (
	NetMinFrame = 60
	NetMaxFrame = 1514
)

// NetMaxMcast is the multicast filter list capacity.
const NetMaxMcast = 32

// NetRequest is the fixed prefix of every network command payload.
type NetRequest struct {
	Command uint32
	Param1  uint32
	Param2  uint32
	Length  uint32
}

// NetRequestSize is the wire size of [NetRequest].
const NetRequestSize = 16

// Encode appends the wire form to buf and returns the result.
func (r NetRequest) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.Command)
	buf = binary.LittleEndian.AppendUint32(buf, r.Param1)
	buf = binary.LittleEndian.AppendUint32(buf, r.Param2)
	buf = binary.LittleEndian.AppendUint32(buf, r.Length)

	return buf
}

// DecodeNetRequest parses a [NetRequest].
func DecodeNetRequest(data []byte) (NetRequest, error) {
	if len(data) < NetRequestSize {
		return NetRequest{}, ErrShortPayload
	}

	return NetRequest{
		Command: binary.LittleEndian.Uint32(data[0:4]),
		Param1:  binary.LittleEndian.Uint32(data[4:8]),
		Param2:  binary.LittleEndian.Uint32(data[8:12]),
		Length:  binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

// NetReply is the fixed prefix of every network command response.
type NetReply struct {
	Status uint32
	Length uint32
}

// NetReplySize is the wire size of [NetReply].
const NetReplySize = 8

// Encode appends the wire form to buf and returns the result.
func (r NetReply) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.Status)
	buf = binary.LittleEndian.AppendUint32(buf, r.Length)

	return buf
}

// DecodeNetReply parses a [NetReply].
func DecodeNetReply(data []byte) (NetReply, error) {
	if len(data) < NetReplySize {
		return NetReply{}, ErrShortPayload
	}

	return NetReply{
		Status: binary.LittleEndian.Uint32(data[0:4]),
		Length: binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// NetStats is the adapter counter block returned by [NetGetStats].
type NetStats struct {
	RxPackets uint64
	TxPackets uint64
	RxBytes   uint64
	TxBytes   uint64
	RxDropped uint64
	TxErrors  uint64
}

// NetStatsSize is the wire size of [NetStats].
const NetStatsSize = 48

// Encode appends the wire form to buf and returns the result.
func (s NetStats) Encode(buf []byte) []byte {
	for _, v := range [...]uint64{
		s.RxPackets, s.TxPackets, s.RxBytes,
		s.TxBytes, s.RxDropped, s.TxErrors,
	} {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}

	return buf
}

// DecodeNetStats parses a [NetStats].
func DecodeNetStats(data []byte) (NetStats, error) {
	if len(data) < NetStatsSize {
		return NetStats{}, ErrShortPayload
	}

	return NetStats{
		RxPackets: binary.LittleEndian.Uint64(data[0:8]),
		TxPackets: binary.LittleEndian.Uint64(data[8:16]),
		RxBytes:   binary.LittleEndian.Uint64(data[16:24]),
		TxBytes:   binary.LittleEndian.Uint64(data[24:32]),
		RxDropped: binary.LittleEndian.Uint64(data[32:40]),
		TxErrors:  binary.LittleEndian.Uint64(data[40:48]),
	}, nil
}

// Audio dispatcher commands.
const (
	AudioInit       uint16 = 0x0001
	AudioStart      uint16 = 0x0002
	AudioStop       uint16 = 0x0003
	AudioSetFormat  uint16 = 0x0004
	AudioSetVolume  uint16 = 0x0005
	AudioGetStatus  uint16 = 0x0006
	AudioBufferDone uint16 = 0x0007
)

// Audio sample format flags.
const (
	AudioFmt16Bit  uint32 = 1 << 0
	AudioFmtStereo uint32 = 1 << 1
	AudioFmtSigned uint32 = 1 << 2
)

// Audio status flags.
const (
	AudioStatusPlaying   uint32 = 1 << 0
	AudioStatusRecording uint32 = 1 << 1
	AudioStatusMuted     uint32 = 1 << 2
)

// Audio shared ring geometry. The guest writes sample data into slot
// buffers that follow a small control header inside the bulk region.
const (
	AudioMagic      uint32 = 0x41554449 // "AUDI"
	AudioSlotCount         = 16
	AudioSlotSize          = 4096
	AudioHeaderSize        = 64
)

// Audio ring header field offsets.
const (
	AudioOffMagic      = 0x00
	AudioOffWritePtr   = 0x04
	AudioOffReadPtr    = 0x08
	AudioOffSampleRate = 0x0c
	AudioOffFormat     = 0x10
	AudioOffVolumeL    = 0x14
	AudioOffVolumeR    = 0x18
	AudioOffStatus     = 0x1c
)

// AudioFormat is the [AudioSetFormat] payload.
type AudioFormat struct {
	SampleRate uint32
	Format     uint32
}

// AudioFormatSize is the wire size of [AudioFormat].
const AudioFormatSize = 8

// Encode appends the wire form to buf and returns the result.
func (f AudioFormat) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, f.SampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, f.Format)

	return buf
}

// DecodeAudioFormat parses an [AudioFormat].
func DecodeAudioFormat(data []byte) (AudioFormat, error) {
	if len(data) < AudioFormatSize {
		return AudioFormat{}, ErrShortPayload
	}

	return AudioFormat{
		SampleRate: binary.LittleEndian.Uint32(data[0:4]),
		Format:     binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}
