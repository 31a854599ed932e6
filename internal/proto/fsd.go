// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package proto

import "encoding/binary"

// File system redirector commands.
const (
	FSDMount    uint16 = 0x0001
	FSDUnmount  uint16 = 0x0002
	FSDOpen     uint16 = 0x0003
	FSDClose    uint16 = 0x0004
	FSDRead     uint16 = 0x0005
	FSDWrite    uint16 = 0x0006
	FSDSeek     uint16 = 0x0007
	FSDStat     uint16 = 0x0008
	FSDMkdir    uint16 = 0x0009
	FSDRmdir    uint16 = 0x000a
	FSDDelete   uint16 = 0x000b
	FSDRename   uint16 = 0x000c
	FSDOpenDir  uint16 = 0x000d
	FSDReadDir  uint16 = 0x000e
	FSDCloseDir uint16 = 0x000f
	FSDSetAttr  uint16 = 0x0010
	FSDStatFS   uint16 = 0x0011
	FSDTruncate uint16 = 0x0012
	FSDLock     uint16 = 0x0013
	FSDUnlock   uint16 = 0x0014
)

// Redirector limits.
const (
	FSDMaxHandles = 256
	FSDMaxPath    = 260
	FSDMaxRead    = 32768
)

// FSDOpen request flags.
const (
	FSDOpenRead     uint32 = 0x01
	FSDOpenWrite    uint32 = 0x02
	FSDOpenCreate   uint32 = 0x10
	FSDOpenTruncate uint32 = 0x20
	FSDOpenAppend   uint32 = 0x40
)

// DOS file attribute bits returned by [FSDStat].
const (
	DOSAttrReadOnly  uint8 = 0x01
	DOSAttrHidden    uint8 = 0x02
	DOSAttrSystem    uint8 = 0x04
	DOSAttrVolume    uint8 = 0x08
	DOSAttrDirectory uint8 = 0x10
	DOSAttrArchive   uint8 = 0x20
)

// FSDOpenRequest asks for a file handle on a redirected path. The
// path is guest style with a drive letter and backslash separators.
type FSDOpenRequest struct {
	Flags uint32
	Path  string
}

// Encode appends the wire form to buf and returns the result.
func (r FSDOpenRequest) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.Flags)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(r.Path)))

	return append(buf, r.Path...)
}

// DecodeFSDOpenRequest parses an [FSDOpenRequest].
func DecodeFSDOpenRequest(data []byte) (FSDOpenRequest, error) {
	if len(data) < 6 {
		return FSDOpenRequest{}, ErrShortPayload
	}

	pathLen := int(binary.LittleEndian.Uint16(data[4:6]))
	if pathLen > FSDMaxPath || len(data) < 6+pathLen {
		return FSDOpenRequest{}, ErrShortPayload
	}

	return FSDOpenRequest{
		Flags: binary.LittleEndian.Uint32(data[0:4]),
		Path:  string(data[6 : 6+pathLen]),
	}, nil
}

// FSDOpenReply carries the redirector status and the new handle.
// Status is zero on success or a positive errno style code.
type FSDOpenReply struct {
	Status uint32
	Handle uint32
}

// FSDOpenReplySize is the wire size of [FSDOpenReply].
const FSDOpenReplySize = 8

// Encode appends the wire form to buf and returns the result.
func (r FSDOpenReply) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.Status)
	buf = binary.LittleEndian.AppendUint32(buf, r.Handle)

	return buf
}

// DecodeFSDOpenReply parses an [FSDOpenReply].
func DecodeFSDOpenReply(data []byte) (FSDOpenReply, error) {
	if len(data) < FSDOpenReplySize {
		return FSDOpenReply{}, ErrShortPayload
	}

	return FSDOpenReply{
		Status: binary.LittleEndian.Uint32(data[0:4]),
		Handle: binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// FSDIORequest is the common read and write request prefix. Write
// requests append Count data bytes after the fixed part.
type FSDIORequest struct {
	Handle uint32
	Count  uint32
	Offset uint64
}

// FSDIORequestSize is the wire size of the fixed part of
// [FSDIORequest].
const FSDIORequestSize = 16

// Encode appends the wire form to buf and returns the result.
func (r FSDIORequest) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.Handle)
	buf = binary.LittleEndian.AppendUint32(buf, r.Count)
	buf = binary.LittleEndian.AppendUint64(buf, r.Offset)

	return buf
}

// DecodeFSDIORequest parses an [FSDIORequest].
func DecodeFSDIORequest(data []byte) (FSDIORequest, error) {
	if len(data) < FSDIORequestSize {
		return FSDIORequest{}, ErrShortPayload
	}

	return FSDIORequest{
		Handle: binary.LittleEndian.Uint32(data[0:4]),
		Count:  binary.LittleEndian.Uint32(data[4:8]),
		Offset: binary.LittleEndian.Uint64(data[8:16]),
	}, nil
}

// FSDIOReply reports the outcome of a read or write. Read replies
// append Count data bytes after the fixed part.
type FSDIOReply struct {
	Status uint32
	Count  uint32
}

// FSDIOReplySize is the wire size of the fixed part of [FSDIOReply].
const FSDIOReplySize = 8

// Encode appends the wire form to buf and returns the result.
func (r FSDIOReply) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.Status)
	buf = binary.LittleEndian.AppendUint32(buf, r.Count)

	return buf
}

// DecodeFSDIOReply parses an [FSDIOReply].
func DecodeFSDIOReply(data []byte) (FSDIOReply, error) {
	if len(data) < FSDIOReplySize {
		return FSDIOReply{}, ErrShortPayload
	}

	return FSDIOReply{
		Status: binary.LittleEndian.Uint32(data[0:4]),
		Count:  binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// FSDStatRequest asks for attributes of a redirected path.
type FSDStatRequest struct {
	Path string
}

// Encode appends the wire form to buf and returns the result.
func (r FSDStatRequest) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(r.Path)))

	return append(buf, r.Path...)
}

// DecodeFSDStatRequest parses an [FSDStatRequest].
func DecodeFSDStatRequest(data []byte) (FSDStatRequest, error) {
	if len(data) < 2 {
		return FSDStatRequest{}, ErrShortPayload
	}

	pathLen := int(binary.LittleEndian.Uint16(data[0:2]))
	if pathLen > FSDMaxPath || len(data) < 2+pathLen {
		return FSDStatRequest{}, ErrShortPayload
	}

	return FSDStatRequest{Path: string(data[2 : 2+pathLen])}, nil
}

// FSDStatReply carries DOS style file attributes.
type FSDStatReply struct {
	Status   uint32
	SizeLow  uint32
	SizeHigh uint32
	Date     uint16
	Time     uint16
	Attr     uint8
}

// FSDStatReplySize is the wire size of [FSDStatReply].
const FSDStatReplySize = 20

// Encode appends the wire form to buf and returns the result.
func (r FSDStatReply) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.Status)
	buf = binary.LittleEndian.AppendUint32(buf, r.SizeLow)
	buf = binary.LittleEndian.AppendUint32(buf, r.SizeHigh)
	buf = binary.LittleEndian.AppendUint16(buf, r.Date)
	buf = binary.LittleEndian.AppendUint16(buf, r.Time)

	return append(buf, r.Attr, 0, 0, 0)
}

// DecodeFSDStatReply parses an [FSDStatReply].
func DecodeFSDStatReply(data []byte) (FSDStatReply, error) {
	if len(data) < FSDStatReplySize {
		return FSDStatReply{}, ErrShortPayload
	}

	return FSDStatReply{
		Status:   binary.LittleEndian.Uint32(data[0:4]),
		SizeLow:  binary.LittleEndian.Uint32(data[4:8]),
		SizeHigh: binary.LittleEndian.Uint32(data[8:12]),
		Date:     binary.LittleEndian.Uint16(data[12:14]),
		Time:     binary.LittleEndian.Uint16(data[14:16]),
		Attr:     data[16],
	}, nil
}

// FSDStatFSReply reports free space of the drive backing a letter,
// in the cluster units DOS expects.
type FSDStatFSReply struct {
	Status            uint32
	TotalClusters     uint32
	FreeClusters      uint32
	SectorsPerCluster uint32
	BytesPerSector    uint32
}

// FSDStatFSReplySize is the wire size of [FSDStatFSReply].
const FSDStatFSReplySize = 20

// Encode appends the wire form to buf and returns the result.
func (r FSDStatFSReply) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.Status)
	buf = binary.LittleEndian.AppendUint32(buf, r.TotalClusters)
	buf = binary.LittleEndian.AppendUint32(buf, r.FreeClusters)
	buf = binary.LittleEndian.AppendUint32(buf, r.SectorsPerCluster)
	buf = binary.LittleEndian.AppendUint32(buf, r.BytesPerSector)

	return buf
}

// DecodeFSDStatFSReply parses an [FSDStatFSReply].
func DecodeFSDStatFSReply(data []byte) (FSDStatFSReply, error) {
	if len(data) < FSDStatFSReplySize {
		return FSDStatFSReply{}, ErrShortPayload
	}

	return FSDStatFSReply{
		Status:            binary.LittleEndian.Uint32(data[0:4]),
		TotalClusters:     binary.LittleEndian.Uint32(data[4:8]),
		FreeClusters:      binary.LittleEndian.Uint32(data[8:12]),
		SectorsPerCluster: binary.LittleEndian.Uint32(data[12:16]),
		BytesPerSector:    binary.LittleEndian.Uint32(data[16:20]),
	}, nil
}

// DOSDate converts calendar fields to the packed DOS date format.
// Year is the full year, month 1 based.
func DOSDate(year, month, day int) uint16 {
	return uint16((year-1980)<<9 | month<<5 | day)
}

// DOSTime converts clock fields to the packed DOS time format with
// its two second resolution.
func DOSTime(hour, min, sec int) uint16 {
	return uint16(hour<<11 | min<<5 | sec/2)
}
