// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package proto

import "encoding/binary"

// CoreInitRequest is sent by the host once per session start.
type CoreInitRequest struct {
	HostVersion uint32
	Features    uint32
}

// CoreInitRequestSize is the wire size of [CoreInitRequest].
const CoreInitRequestSize = 8

// Encode appends the wire form to buf and returns the result.
func (r CoreInitRequest) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.HostVersion)
	buf = binary.LittleEndian.AppendUint32(buf, r.Features)

	return buf
}

// DecodeCoreInitRequest parses a [CoreInitRequest].
func DecodeCoreInitRequest(data []byte) (CoreInitRequest, error) {
	if len(data) < CoreInitRequestSize {
		return CoreInitRequest{}, ErrShortPayload
	}

	return CoreInitRequest{
		HostVersion: binary.LittleEndian.Uint32(data[0:4]),
		Features:    binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// CoreInitReply is the guest's answer to [CoreInitRequest].
type CoreInitReply struct {
	GuestVersion    uint32
	Features        uint32
	ShmemSize       uint32
	FramebufferSize uint32
}

// CoreInitReplySize is the wire size of [CoreInitReply].
const CoreInitReplySize = 16

// Encode appends the wire form to buf and returns the result.
func (r CoreInitReply) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.GuestVersion)
	buf = binary.LittleEndian.AppendUint32(buf, r.Features)
	buf = binary.LittleEndian.AppendUint32(buf, r.ShmemSize)
	buf = binary.LittleEndian.AppendUint32(buf, r.FramebufferSize)

	return buf
}

// DecodeCoreInitReply parses a [CoreInitReply].
func DecodeCoreInitReply(data []byte) (CoreInitReply, error) {
	if len(data) < CoreInitReplySize {
		return CoreInitReply{}, ErrShortPayload
	}

	return CoreInitReply{
		GuestVersion:    binary.LittleEndian.Uint32(data[0:4]),
		Features:        binary.LittleEndian.Uint32(data[4:8]),
		ShmemSize:       binary.LittleEndian.Uint32(data[8:12]),
		FramebufferSize: binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

// StorageRequest is the canonical BIOS-style disk request.
//
// The LBA fields are used by extended INT 13h addressing; when both
// are zero the CHS fields apply, with 1-based sector numbers.
type StorageRequest struct {
	Drive    uint32
	Command  uint32
	Cylinder uint32
	Head     uint32
	Sector   uint32
	Count    uint32
	LBALo    uint32
	LBAHi    uint32
}

// StorageRequestSize is the wire size of [StorageRequest] without
// trailing sector data.
const StorageRequestSize = 32

// LBA returns the 64 bit linear block address of the request, or false
// if the request uses CHS addressing.
func (r StorageRequest) LBA() (uint64, bool) {
	if r.LBAHi == 0 && r.LBALo == 0 {
		return 0, false
	}

	return uint64(r.LBAHi)<<32 | uint64(r.LBALo), true
}

// Encode appends the wire form to buf and returns the result.
func (r StorageRequest) Encode(buf []byte) []byte {
	for _, v := range [...]uint32{
		r.Drive, r.Command, r.Cylinder, r.Head,
		r.Sector, r.Count, r.LBALo, r.LBAHi,
	} {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}

	return buf
}

// DecodeStorageRequest parses a [StorageRequest]. Any sector data
// following the fixed header stays in data and is not copied.
func DecodeStorageRequest(data []byte) (StorageRequest, error) {
	if len(data) < StorageRequestSize {
		return StorageRequest{}, ErrShortPayload
	}

	u32 := func(off int) uint32 {
		return binary.LittleEndian.Uint32(data[off : off+4])
	}

	return StorageRequest{
		Drive:    u32(0),
		Command:  u32(4),
		Cylinder: u32(8),
		Head:     u32(12),
		Sector:   u32(16),
		Count:    u32(20),
		LBALo:    u32(24),
		LBAHi:    u32(28),
	}, nil
}

// StorageResponse heads the reply to a [StorageRequest]. Sector data
// follows it for read operations.
type StorageResponse struct {
	Status uint32
	Count  uint32
}

// StorageResponseSize is the wire size of [StorageResponse].
const StorageResponseSize = 8

// Encode appends the wire form to buf and returns the result.
func (r StorageResponse) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.Status)
	buf = binary.LittleEndian.AppendUint32(buf, r.Count)

	return buf
}

// DecodeStorageResponse parses a [StorageResponse].
func DecodeStorageResponse(data []byte) (StorageResponse, error) {
	if len(data) < StorageResponseSize {
		return StorageResponse{}, ErrShortPayload
	}

	return StorageResponse{
		Status: binary.LittleEndian.Uint32(data[0:4]),
		Count:  binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// DriveParams answers a get-parameters request.
type DriveParams struct {
	DriveType  uint32
	Cylinders  uint32
	Heads      uint32
	Sectors    uint32
	TotalLo    uint32
	TotalHi    uint32
	SectorSize uint32
}

// DriveParamsSize is the wire size of [DriveParams].
const DriveParamsSize = 28

// Encode appends the wire form to buf and returns the result.
func (p DriveParams) Encode(buf []byte) []byte {
	for _, v := range [...]uint32{
		p.DriveType, p.Cylinders, p.Heads, p.Sectors,
		p.TotalLo, p.TotalHi, p.SectorSize,
	} {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}

	return buf
}

// DecodeDriveParams parses a [DriveParams].
func DecodeDriveParams(data []byte) (DriveParams, error) {
	if len(data) < DriveParamsSize {
		return DriveParams{}, ErrShortPayload
	}

	u32 := func(off int) uint32 {
		return binary.LittleEndian.Uint32(data[off : off+4])
	}

	return DriveParams{
		DriveType:  u32(0),
		Cylinders:  u32(4),
		Heads:      u32(8),
		Sectors:    u32(12),
		TotalLo:    u32(16),
		TotalHi:    u32(20),
		SectorSize: u32(24),
	}, nil
}

// SCSI transfer limits.
const (
	ScsiCDBMaxLen   = 16
	ScsiSenseMaxLen = 18
)

// SCSI data transfer directions.
const (
	ScsiDirNone  uint32 = 0
	ScsiDirRead  uint32 = 1
	ScsiDirWrite uint32 = 2
)

// SCSI status codes.
const (
	ScsiStatusGood           uint8 = 0x00
	ScsiStatusCheckCondition uint8 = 0x02
	ScsiStatusBusy           uint8 = 0x08
)

// ScsiRequest carries one Command Descriptor Block from the guest.
type ScsiRequest struct {
	CDB       [ScsiCDBMaxLen]byte
	CDBLen    uint32
	Direction uint32
	DataLen   uint32
}

// ScsiRequestSize is the wire size of [ScsiRequest] without trailing
// write data.
const ScsiRequestSize = ScsiCDBMaxLen + 12

// Encode appends the wire form to buf and returns the result.
func (r ScsiRequest) Encode(buf []byte) []byte {
	buf = append(buf, r.CDB[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, r.CDBLen)
	buf = binary.LittleEndian.AppendUint32(buf, r.Direction)
	buf = binary.LittleEndian.AppendUint32(buf, r.DataLen)

	return buf
}

// DecodeScsiRequest parses a [ScsiRequest].
func DecodeScsiRequest(data []byte) (ScsiRequest, error) {
	if len(data) < ScsiRequestSize {
		return ScsiRequest{}, ErrShortPayload
	}

	var req ScsiRequest

	copy(req.CDB[:], data[:ScsiCDBMaxLen])
	req.CDBLen = binary.LittleEndian.Uint32(data[16:20])
	req.Direction = binary.LittleEndian.Uint32(data[20:24])
	req.DataLen = binary.LittleEndian.Uint32(data[24:28])

	return req, nil
}

// ScsiResponse heads the reply to a [ScsiRequest]. Read data follows
// it when DataLen is nonzero.
type ScsiResponse struct {
	Status   uint8
	SenseLen uint8
	DataLen  uint32
	Sense    [ScsiSenseMaxLen]byte
}

// ScsiResponseSize is the wire size of [ScsiResponse] without trailing
// read data.
const ScsiResponseSize = 8 + ScsiSenseMaxLen

// Encode appends the wire form to buf and returns the result.
func (r ScsiResponse) Encode(buf []byte) []byte {
	buf = append(buf, r.Status, r.SenseLen, 0, 0)
	buf = binary.LittleEndian.AppendUint32(buf, r.DataLen)
	buf = append(buf, r.Sense[:]...)

	return buf
}

// DecodeScsiResponse parses a [ScsiResponse].
func DecodeScsiResponse(data []byte) (ScsiResponse, error) {
	if len(data) < ScsiResponseSize {
		return ScsiResponse{}, ErrShortPayload
	}

	rsp := ScsiResponse{
		Status:   data[0],
		SenseLen: data[1],
		DataLen:  binary.LittleEndian.Uint32(data[4:8]),
	}
	copy(rsp.Sense[:], data[8:8+ScsiSenseMaxLen])

	return rsp, nil
}

// Channel flags.
const (
	ChannelFlagExclusive  uint32 = 0x0001
	ChannelFlagPersistent uint32 = 0x0002
)

// ChannelNameMax is the maximum channel name length in UTF-16 code
// units.
const ChannelNameMax = 64

// ChannelCreateRequest asks the host to create a named channel.
type ChannelCreateRequest struct {
	Flags   uint32
	NameLen uint32 // in bytes of the UTF-16 name
	Name    [ChannelNameMax]uint16
}

// ChannelCreateRequestSize is the wire size of [ChannelCreateRequest].
const ChannelCreateRequestSize = 8 + 2*ChannelNameMax

// Encode appends the wire form to buf and returns the result.
func (r ChannelCreateRequest) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.Flags)
	buf = binary.LittleEndian.AppendUint32(buf, r.NameLen)

	for _, cu := range r.Name {
		buf = binary.LittleEndian.AppendUint16(buf, cu)
	}

	return buf
}

// DecodeChannelCreateRequest parses a [ChannelCreateRequest].
func DecodeChannelCreateRequest(data []byte) (ChannelCreateRequest, error) {
	if len(data) < ChannelCreateRequestSize {
		return ChannelCreateRequest{}, ErrShortPayload
	}

	req := ChannelCreateRequest{
		Flags:   binary.LittleEndian.Uint32(data[0:4]),
		NameLen: binary.LittleEndian.Uint32(data[4:8]),
	}

	for i := range req.Name {
		req.Name[i] = binary.LittleEndian.Uint16(data[8+2*i : 10+2*i])
	}

	return req, nil
}

// SetName fills Name and NameLen from a string. Only used by tests and
// host-initiated channel setup.
func (r *ChannelCreateRequest) SetName(name string) {
	n := len(name)
	if n > ChannelNameMax {
		n = ChannelNameMax
	}

	for i := 0; i < n; i++ {
		r.Name[i] = uint16(name[i])
	}

	r.NameLen = uint32(2 * n)
}

// ChannelCreateReply answers a [ChannelCreateRequest].
type ChannelCreateReply struct {
	Status    uint32
	ChannelID uint32
}

// ChannelCreateReplySize is the wire size of [ChannelCreateReply].
const ChannelCreateReplySize = 8

// Encode appends the wire form to buf and returns the result.
func (r ChannelCreateReply) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.Status)
	buf = binary.LittleEndian.AppendUint32(buf, r.ChannelID)

	return buf
}

// DecodeChannelCreateReply parses a [ChannelCreateReply].
func DecodeChannelCreateReply(data []byte) (ChannelCreateReply, error) {
	if len(data) < ChannelCreateReplySize {
		return ChannelCreateReply{}, ErrShortPayload
	}

	return ChannelCreateReply{
		Status:    binary.LittleEndian.Uint32(data[0:4]),
		ChannelID: binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// MountNotify tells the guest that media appeared or vanished in a
// drive.
type MountNotify struct {
	Drive uint32
	Flags uint32
}

// MountNotifySize is the wire size of [MountNotify].
const MountNotifySize = 8

// Encode appends the wire form to buf and returns the result.
func (n MountNotify) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, n.Drive)
	buf = binary.LittleEndian.AppendUint32(buf, n.Flags)

	return buf
}

// DecodeMountNotify parses a [MountNotify].
func DecodeMountNotify(data []byte) (MountNotify, error) {
	if len(data) < MountNotifySize {
		return MountNotify{}, ErrShortPayload
	}

	return MountNotify{
		Drive: binary.LittleEndian.Uint32(data[0:4]),
		Flags: binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// Input event flag bits.
const (
	KeyPressed  uint16 = 0x0001
	KeyReleased uint16 = 0x0002
	KeyExtended uint16 = 0x0004
)

// Input dispatcher commands.
const (
	InputKeyboard    uint16 = 0x0001
	InputMouseMove   uint16 = 0x0002
	InputMouseButton uint16 = 0x0003
	InputMouseWheel  uint16 = 0x0004
)

// KeyEvent is a keyboard scancode event injected into the guest.
type KeyEvent struct {
	Scancode uint16
	Flags    uint16
}

// Encode appends the wire form to buf and returns the result.
func (e KeyEvent) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, e.Scancode)
	buf = binary.LittleEndian.AppendUint16(buf, e.Flags)

	return buf
}

// MouseEvent is a mouse state event injected into the guest.
type MouseEvent struct {
	X       uint32
	Y       uint32
	Buttons uint32
	Wheel   uint32
}

// Encode appends the wire form to buf and returns the result.
func (e MouseEvent) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, e.X)
	buf = binary.LittleEndian.AppendUint32(buf, e.Y)
	buf = binary.LittleEndian.AppendUint32(buf, e.Buttons)
	buf = binary.LittleEndian.AppendUint32(buf, e.Wheel)

	return buf
}

// Clipboard dispatcher commands.
const (
	ClipSet    uint16 = 0x0001
	ClipGet    uint16 = 0x0002
	ClipNotify uint16 = 0x0003
	ClipData   uint16 = 0x0004
)

// Clipboard formats, matching Windows clipboard format numbers.
const (
	ClipFormatText    uint32 = 1
	ClipFormatUnicode uint32 = 13
)

// ClipMaxSize caps one clipboard transfer.
const ClipMaxSize = 32 * 1024

// ClipHeader precedes clipboard bytes on the wire.
type ClipHeader struct {
	Format uint32
	Length uint32
}

// ClipHeaderSize is the wire size of [ClipHeader].
const ClipHeaderSize = 8

// Encode appends the wire form to buf and returns the result.
func (h ClipHeader) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, h.Format)
	buf = binary.LittleEndian.AppendUint32(buf, h.Length)

	return buf
}

// DecodeClipHeader parses a [ClipHeader].
func DecodeClipHeader(data []byte) (ClipHeader, error) {
	if len(data) < ClipHeaderSize {
		return ClipHeader{}, ErrShortPayload
	}

	return ClipHeader{
		Format: binary.LittleEndian.Uint32(data[0:4]),
		Length: binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}
