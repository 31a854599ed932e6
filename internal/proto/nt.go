// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package proto

import "encoding/binary"

// The NT guest driver speaks its own packet format over named
// channels. A 5 byte header leads each request, an 8 byte header each
// response, both followed by command specific data.

// NT disk command codes.
const (
	NTCmdRead      uint8 = 0x0a
	NTCmdWrite     uint8 = 0x0b
	NTCmdGetParams uint8 = 0x0c
	NTCmdScsi      uint8 = 0x0f
	NTCmdExtInfo   uint8 = 0x10
	NTCmdMediaInfo uint8 = 0x11
)

// NT response type codes.
const (
	NTRspDiskRead  uint8 = 0x97
	NTRspGetParams uint8 = 0x99
	NTRspScsi      uint8 = 0x9c
	NTRspExtInfo   uint8 = 0x9d
	NTRspMediaInfo uint8 = 0x9e
	NTRspError     uint8 = 0x9f
)

// NTDiskRequest is the fixed header of an NT guest disk request.
//
// DriveNum is the NT drive slot, not a BIOS drive number. Slots 0 and
// 1 are the floppies, 2 and 3 the hard disks and 4 the CD-ROM.
type NTDiskRequest struct {
	DriveType uint8
	Command   uint8
	SizeHi    uint8
	SizeLo    uint8
	DriveNum  uint8
}

// NTDiskRequestSize is the wire size of [NTDiskRequest].
const NTDiskRequestSize = 5

// Encode appends the wire form to buf and returns the result.
func (r NTDiskRequest) Encode(buf []byte) []byte {
	return append(buf, r.DriveType, r.Command, r.SizeHi, r.SizeLo, r.DriveNum)
}

// DecodeNTDiskRequest parses an [NTDiskRequest].
func DecodeNTDiskRequest(data []byte) (NTDiskRequest, error) {
	if len(data) < NTDiskRequestSize {
		return NTDiskRequest{}, ErrShortPayload
	}

	return NTDiskRequest{
		DriveType: data[0],
		Command:   data[1],
		SizeHi:    data[2],
		SizeLo:    data[3],
		DriveNum:  data[4],
	}, nil
}

// BiosDrive maps the NT drive slot to a BIOS drive number. It returns
// false for unknown slots.
func (r NTDiskRequest) BiosDrive() (uint32, bool) {
	switch r.DriveNum {
	case 0:
		return DriveFloppyA, true
	case 1:
		return DriveFloppyB, true
	case 2:
		return DriveHD0, true
	case 3:
		return DriveHD1, true
	case 4:
		return DriveCDROM, true
	default:
		return 0, false
	}
}

// NTTransferSize is the LBA and count block following the header of NT
// read and write requests.
const NTTransferSize = 8

// NTTransfer addresses an NT read or write.
type NTTransfer struct {
	LBA   uint32
	Count uint16
}

// Encode appends the wire form to buf and returns the result.
func (t NTTransfer) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, t.LBA)
	buf = binary.LittleEndian.AppendUint16(buf, t.Count)
	buf = append(buf, 0, 0)

	return buf
}

// DecodeNTTransfer parses the transfer block of an NT read or write.
func DecodeNTTransfer(data []byte) (NTTransfer, error) {
	if len(data) < NTTransferSize {
		return NTTransfer{}, ErrShortPayload
	}

	return NTTransfer{
		LBA:   binary.LittleEndian.Uint32(data[0:4]),
		Count: binary.LittleEndian.Uint16(data[4:6]),
	}, nil
}

// NTScsiRequest follows the disk header of an [NTCmdScsi] request.
type NTScsiRequest struct {
	CDBLength  uint8
	XferInLen  uint32
	XferOutLen uint32
	CDB        [ScsiCDBMaxLen]byte
}

// NTScsiRequestSize is the wire size of [NTScsiRequest] without
// trailing write data.
const NTScsiRequestSize = 12 + ScsiCDBMaxLen

// Encode appends the wire form to buf and returns the result.
func (r NTScsiRequest) Encode(buf []byte) []byte {
	buf = append(buf, r.CDBLength, 0, 0, 0)
	buf = binary.LittleEndian.AppendUint32(buf, r.XferInLen)
	buf = binary.LittleEndian.AppendUint32(buf, r.XferOutLen)
	buf = append(buf, r.CDB[:]...)

	return buf
}

// DecodeNTScsiRequest parses an [NTScsiRequest].
func DecodeNTScsiRequest(data []byte) (NTScsiRequest, error) {
	if len(data) < NTScsiRequestSize {
		return NTScsiRequest{}, ErrShortPayload
	}

	req := NTScsiRequest{
		CDBLength:  data[0],
		XferInLen:  binary.LittleEndian.Uint32(data[4:8]),
		XferOutLen: binary.LittleEndian.Uint32(data[8:12]),
	}
	copy(req.CDB[:], data[12:12+ScsiCDBMaxLen])

	return req, nil
}

// Direction derives the canonical SCSI transfer direction from the NT
// request: any data-out makes it a write, otherwise any data-in makes
// it a read.
func (r NTScsiRequest) Direction() uint32 {
	switch {
	case r.XferOutLen > 0:
		return ScsiDirWrite
	case r.XferInLen > 0:
		return ScsiDirRead
	default:
		return ScsiDirNone
	}
}

// NTDiskResponse is the fixed header of an NT disk response.
type NTDiskResponse struct {
	Command      uint8
	ResponseType uint8
	SizeHi       uint8
	SizeLo       uint8
	ErrorCode    uint8
	ErrorDetail  uint8
	Count        uint8
}

// NTDiskResponseSize is the wire size of [NTDiskResponse].
const NTDiskResponseSize = 8

// Encode appends the wire form to buf and returns the result.
func (r NTDiskResponse) Encode(buf []byte) []byte {
	return append(buf,
		r.Command, r.ResponseType, r.SizeHi, r.SizeLo,
		r.ErrorCode, r.ErrorDetail, r.Count, 0,
	)
}

// DecodeNTDiskResponse parses an [NTDiskResponse].
func DecodeNTDiskResponse(data []byte) (NTDiskResponse, error) {
	if len(data) < NTDiskResponseSize {
		return NTDiskResponse{}, ErrShortPayload
	}

	return NTDiskResponse{
		Command:      data[0],
		ResponseType: data[1],
		SizeHi:       data[2],
		SizeLo:       data[3],
		ErrorCode:    data[4],
		ErrorDetail:  data[5],
		Count:        data[6],
	}, nil
}
