// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"encoding/binary"
	"log/slog"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// SCSI command opcodes (SPC-2/MMC-2).
const (
	scsiTestUnitReady       = 0x00
	scsiRequestSense        = 0x03
	scsiInquiry             = 0x12
	scsiModeSense6          = 0x1A
	scsiPreventAllowRemoval = 0x1E
	scsiReadCapacity        = 0x25
	scsiRead10              = 0x28
	scsiReadTOC             = 0x43
	scsiGetConfiguration    = 0x46
	scsiGetEventStatus      = 0x4A
	scsiReadDiscInfo        = 0x51
	scsiModeSense10         = 0x5A
	scsiRead12              = 0xA8
)

// SCSI sense keys.
const (
	senseNoSense        = 0x00
	senseNotReady       = 0x02
	senseMediumError    = 0x03
	senseIllegalRequest = 0x05
)

// Additional sense codes.
const (
	ascNoAdditionalSense = 0x00
	ascInvalidCommand    = 0x20
	ascLBAOutOfRange     = 0x21
	ascInvalidFieldInCDB = 0x24
	ascMediumNotPresent  = 0x3A
	ascUnrecoveredRead   = 0x11
)

// buildSense fills fixed format sense data (SPC-2 response code 0x70).
func buildSense(key, asc, ascq uint8) [proto.ScsiSenseMaxLen]byte {
	var sense [proto.ScsiSenseMaxLen]byte

	sense[0] = 0x70
	sense[2] = key
	sense[7] = 10
	sense[12] = asc
	sense[13] = ascq

	return sense
}

func checkCondition(key, asc, ascq uint8) proto.ScsiResponse {
	return proto.ScsiResponse{
		Status:   proto.ScsiStatusCheckCondition,
		SenseLen: proto.ScsiSenseMaxLen,
		Sense:    buildSense(key, asc, ascq),
	}
}

func noMedium() proto.ScsiResponse {
	return checkCondition(senseNotReady, ascMediumNotPresent, 0x01)
}

// ScsiCommand emulates one CD-ROM SCSI command. The data argument
// carries write data (unused, the emulated unit is read only), the
// returned slice carries data-in.
func (e *Emulator) ScsiCommand(
	_ context.Context,
	req proto.ScsiRequest,
	_ []byte,
) (proto.ScsiResponse, []byte) {
	e.mu.Lock()
	dev := e.cdrom
	e.mu.Unlock()

	opcode := req.CDB[0]

	switch opcode {
	case scsiTestUnitReady:
		if dev == nil {
			return noMedium(), nil
		}

		return proto.ScsiResponse{Status: proto.ScsiStatusGood}, nil

	case scsiRequestSense:
		// Sense is cleared after every command, so report no sense.
		sense := buildSense(senseNoSense, ascNoAdditionalSense, 0)

		allocLen := int(req.CDB[4])
		if allocLen > len(sense) {
			allocLen = len(sense)
		}

		return proto.ScsiResponse{
			Status:  proto.ScsiStatusGood,
			DataLen: uint32(allocLen),
		}, sense[:allocLen]

	case scsiInquiry:
		return scsiDoInquiry(req.CDB)

	case scsiReadCapacity:
		if dev == nil {
			return noMedium(), nil
		}

		return scsiDoReadCapacity(dev)

	case scsiRead10, scsiRead12:
		if dev == nil {
			return noMedium(), nil
		}

		return e.scsiDoRead(dev, req.CDB, opcode == scsiRead12)

	case scsiReadTOC:
		if dev == nil {
			return noMedium(), nil
		}

		return scsiDoReadTOC(dev, req.CDB)

	case scsiModeSense6:
		return scsiDoModeSense(req.CDB, true)

	case scsiModeSense10:
		return scsiDoModeSense(req.CDB, false)

	case scsiPreventAllowRemoval:
		// Nothing to lock on an image file.
		return proto.ScsiResponse{Status: proto.ScsiStatusGood}, nil

	case scsiGetConfiguration, scsiGetEventStatus, scsiReadDiscInfo:
		return checkCondition(senseIllegalRequest, ascInvalidCommand, 0), nil

	default:
		e.log.Debug("Unsupported SCSI opcode",
			slog.Uint64("opcode", uint64(opcode)))

		return checkCondition(senseIllegalRequest, ascInvalidCommand, 0), nil
	}
}

// scsiDoInquiry returns the standard INQUIRY data of the virtual unit.
func scsiDoInquiry(cdb [proto.ScsiCDBMaxLen]byte) (proto.ScsiResponse, []byte) {
	var response [36]byte

	response[0] = 0x05 // CD-ROM device
	response[1] = 0x80 // removable media
	response[2] = 0x02 // SCSI-2
	response[3] = 0x02 // response format 2
	response[4] = 31   // additional length

	copy(response[8:16], "SUN     ")
	copy(response[16:32], "Virtual CDROM   ")
	copy(response[32:36], "1.0 ")

	allocLen := int(cdb[4])
	if allocLen > len(response) {
		allocLen = len(response)
	}

	return proto.ScsiResponse{
		Status:  proto.ScsiStatusGood,
		DataLen: uint32(allocLen),
	}, response[:allocLen]
}

// scsiDoReadCapacity returns last LBA and block size, big-endian.
func scsiDoReadCapacity(dev *Device) (proto.ScsiResponse, []byte) {
	var lastLBA uint32
	if total := dev.TotalSectors(); total > 0 {
		lastLBA = uint32(total - 1)
	}

	data := make([]byte, 8)
	binary.BigEndian.PutUint32(data[0:4], lastLBA)
	binary.BigEndian.PutUint32(data[4:8], SectorSizeCDROM)

	return proto.ScsiResponse{
		Status:  proto.ScsiStatusGood,
		DataLen: 8,
	}, data
}

func (e *Emulator) scsiDoRead(
	dev *Device,
	cdb [proto.ScsiCDBMaxLen]byte,
	is12 bool,
) (proto.ScsiResponse, []byte) {
	lba := binary.BigEndian.Uint32(cdb[2:6])

	var count uint32
	if is12 {
		count = binary.BigEndian.Uint32(cdb[6:10])
	} else {
		count = uint32(binary.BigEndian.Uint16(cdb[7:9]))
	}

	if uint64(lba)+uint64(count) > dev.TotalSectors() {
		return checkCondition(senseIllegalRequest, ascLBAOutOfRange, 0), nil
	}

	if limit := maxTransferSectors(SectorSizeCDROM); count > limit {
		count = limit
	}

	data, err := dev.ReadSectors(uint64(lba), count)
	if err != nil {
		return checkCondition(senseMediumError, ascUnrecoveredRead, 0), nil
	}

	return proto.ScsiResponse{
		Status:  proto.ScsiStatusGood,
		DataLen: uint32(len(data)),
	}, data
}

// scsiDoReadTOC builds the single data track TOC of the mounted image,
// lead-out at the image's end.
func scsiDoReadTOC(
	dev *Device,
	cdb [proto.ScsiCDBMaxLen]byte,
) (proto.ScsiResponse, []byte) {
	format := cdb[2] & 0x0F
	if format != 0 && format != 2 {
		return checkCondition(senseIllegalRequest, ascInvalidFieldInCDB, 0), nil
	}

	allocLen := int(binary.BigEndian.Uint16(cdb[7:9]))

	var toc [20]byte

	toc[1] = 18 // data length, excluding this field
	toc[2] = 1  // first track
	toc[3] = 1  // last track

	// Track 1, a data track starting at LBA 0.
	toc[5] = 0x14
	toc[6] = 1

	// Lead-out track 0xAA at the end of the image.
	toc[13] = 0x14
	toc[14] = 0xAA
	binary.BigEndian.PutUint32(toc[16:20], uint32(dev.TotalSectors()))

	if allocLen > len(toc) {
		allocLen = len(toc)
	}

	return proto.ScsiResponse{
		Status:  proto.ScsiStatusGood,
		DataLen: uint32(allocLen),
	}, toc[:allocLen]
}

// scsiDoModeSense answers MODE SENSE (6) and (10) with the CD
// capabilities page when requested.
func scsiDoModeSense(
	cdb [proto.ScsiCDBMaxLen]byte,
	is6 bool,
) (proto.ScsiResponse, []byte) {
	pageCode := cdb[2] & 0x3F

	var (
		allocLen  int
		headerLen int
	)

	if is6 {
		allocLen = int(cdb[4])
		headerLen = 4
	} else {
		allocLen = int(binary.BigEndian.Uint16(cdb[7:9]))
		headerLen = 8
	}

	data := make([]byte, headerLen, headerLen+20)

	// Mode parameter header: CD-ROM data medium, write protected.
	if is6 {
		data[1] = 0x05
		data[2] = 0x80
	} else {
		data[2] = 0x05
		data[3] = 0x80
	}

	if pageCode == 0x2A || pageCode == 0x3F {
		// Capabilities and mechanical status page.
		data = append(data,
			0x2A, 18,
			0x3B,       // reads CD-R, CD-RW, method 2
			0x00,       // no write capability
			0x7F, 0x03, // audio play, lock, eject
			0x29, 0x00, // tray loader
			0x17, 0x70, // max read speed, 40x
			0x01, 0x00, // one volume level
			0x00, 0x80, // 128 KB buffer
			0x17, 0x70, // current read speed
			0, 0, 0, 0,
		)
	}

	if is6 {
		data[0] = uint8(len(data) - 1)
	} else {
		binary.BigEndian.PutUint16(data[0:2], uint16(len(data)-2))
	}

	if allocLen < len(data) {
		data = data[:allocLen]
	}

	return proto.ScsiResponse{
		Status:  proto.ScsiStatusGood,
		DataLen: uint32(len(data)),
	}, data
}
