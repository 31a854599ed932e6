// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risingsunproject/sunpci/internal/proto"
	"github.com/risingsunproject/sunpci/internal/storage"
)

func scsi(
	t *testing.T,
	e *storage.Emulator,
	cdb ...byte,
) (proto.ScsiResponse, []byte) {
	t.Helper()

	var req proto.ScsiRequest

	copy(req.CDB[:], cdb)
	req.CDBLen = uint32(len(cdb))

	return e.ScsiCommand(context.Background(), req, nil)
}

func cdromEmulator(t *testing.T, sectors int64) *storage.Emulator {
	t.Helper()

	e := storage.NewEmulator(discardLog())
	require.NoError(t, e.MountCDROM(isoImage(t, sectors)))

	return e
}

func assertSense(
	t *testing.T,
	rsp proto.ScsiResponse,
	key, asc uint8,
) {
	t.Helper()

	require.Equal(t, proto.ScsiStatusCheckCondition, rsp.Status)
	require.Equal(t, uint8(proto.ScsiSenseMaxLen), rsp.SenseLen)
	assert.EqualValues(t, 0x70, rsp.Sense[0], "fixed format sense")
	assert.Equal(t, key, rsp.Sense[2], "sense key")
	assert.Equal(t, asc, rsp.Sense[12], "additional sense code")
}

func TestScsiTestUnitReady(t *testing.T) {
	t.Run("media present", func(t *testing.T) {
		e := cdromEmulator(t, 100)

		rsp, _ := scsi(t, e, 0x00)
		assert.Equal(t, proto.ScsiStatusGood, rsp.Status)
	})

	t.Run("no media", func(t *testing.T) {
		e := storage.NewEmulator(discardLog())

		rsp, _ := scsi(t, e, 0x00)
		assertSense(t, rsp, 0x02, 0x3A)
	})
}

func TestScsiInquiry(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	rsp, data := scsi(t, e, 0x12, 0, 0, 0, 36, 0)
	require.Equal(t, proto.ScsiStatusGood, rsp.Status)
	require.Len(t, data, 36)

	assert.EqualValues(t, 0x05, data[0], "CD-ROM device type")
	assert.EqualValues(t, 0x80, data[1], "removable")
	assert.Equal(t, "SUN     ", string(data[8:16]))
	assert.Equal(t, "Virtual CDROM   ", string(data[16:32]))
	assert.Equal(t, "1.0 ", string(data[32:36]))

	t.Run("truncated by allocation length", func(t *testing.T) {
		rsp, data := scsi(t, e, 0x12, 0, 0, 0, 8, 0)
		require.Equal(t, proto.ScsiStatusGood, rsp.Status)
		assert.Len(t, data, 8)
	})
}

func TestScsiReadCapacity(t *testing.T) {
	e := cdromEmulator(t, 250)

	rsp, data := scsi(t, e, 0x25)
	require.Equal(t, proto.ScsiStatusGood, rsp.Status)
	require.Len(t, data, 8)

	assert.EqualValues(t, 249, binary.BigEndian.Uint32(data[0:4]),
		"last LBA, big-endian")
	assert.EqualValues(t, storage.SectorSizeCDROM,
		binary.BigEndian.Uint32(data[4:8]))

	t.Run("no media", func(t *testing.T) {
		e := storage.NewEmulator(discardLog())

		rsp, _ := scsi(t, e, 0x25)
		assertSense(t, rsp, 0x02, 0x3A)
	})
}

func TestScsiReadTOC(t *testing.T) {
	e := cdromEmulator(t, 300)

	rsp, data := scsi(t, e, 0x43, 0, 0, 0, 0, 0, 0, 0, 20, 0)
	require.Equal(t, proto.ScsiStatusGood, rsp.Status)
	require.Len(t, data, 20)

	assert.EqualValues(t, 18, data[1], "TOC data length")
	assert.EqualValues(t, 1, data[2], "first track")
	assert.EqualValues(t, 1, data[3], "last track")
	assert.EqualValues(t, 0x14, data[5], "data track control")
	assert.EqualValues(t, 0xAA, data[14], "lead-out track")
	assert.EqualValues(t, 300, binary.BigEndian.Uint32(data[16:20]),
		"lead-out at end of image")

	t.Run("unsupported format", func(t *testing.T) {
		rsp, _ := scsi(t, e, 0x43, 0, 0x05, 0, 0, 0, 0, 0, 20, 0)
		assertSense(t, rsp, 0x05, 0x24)
	})
}

func TestScsiRead10(t *testing.T) {
	e := cdromEmulator(t, 100)

	cdb := make([]byte, 10)
	cdb[0] = 0x28
	binary.BigEndian.PutUint32(cdb[2:6], 16)
	binary.BigEndian.PutUint16(cdb[7:9], 2)

	rsp, data := scsi(t, e, cdb...)
	require.Equal(t, proto.ScsiStatusGood, rsp.Status)
	assert.Len(t, data, 2*storage.SectorSizeCDROM)
	assert.EqualValues(t, len(data), rsp.DataLen)

	// Sector 16 starts with the ISO volume descriptor, its signature
	// sits one byte in.
	assert.Equal(t, []byte("CD001"), data[1:6])

	t.Run("out of range", func(t *testing.T) {
		binary.BigEndian.PutUint32(cdb[2:6], 99)
		binary.BigEndian.PutUint16(cdb[7:9], 2)

		rsp, _ := scsi(t, e, cdb...)
		assertSense(t, rsp, 0x05, 0x21)
	})
}

func TestScsiRead12(t *testing.T) {
	e := cdromEmulator(t, 100)

	cdb := make([]byte, 12)
	cdb[0] = 0xA8
	binary.BigEndian.PutUint32(cdb[2:6], 0)
	binary.BigEndian.PutUint32(cdb[6:10], 1)

	rsp, data := scsi(t, e, cdb...)
	require.Equal(t, proto.ScsiStatusGood, rsp.Status)
	assert.Len(t, data, storage.SectorSizeCDROM)
}

func TestScsiModeSense(t *testing.T) {
	e := cdromEmulator(t, 100)

	t.Run("6 byte with capabilities page", func(t *testing.T) {
		rsp, data := scsi(t, e, 0x1A, 0, 0x2A, 0, 64, 0)
		require.Equal(t, proto.ScsiStatusGood, rsp.Status)
		require.GreaterOrEqual(t, len(data), 24)

		assert.EqualValues(t, 0x05, data[1], "CD-ROM medium type")
		assert.EqualValues(t, 0x80, data[2], "write protected")
		assert.EqualValues(t, 0x2A, data[4], "capabilities page code")
		assert.EqualValues(t, 18, data[5], "page length")
	})

	t.Run("10 byte", func(t *testing.T) {
		rsp, data := scsi(t, e, 0x5A, 0, 0x2A, 0, 0, 0, 0, 0, 64, 0)
		require.Equal(t, proto.ScsiStatusGood, rsp.Status)
		require.GreaterOrEqual(t, len(data), 28)

		assert.EqualValues(t, 0x05, data[2], "CD-ROM medium type")
		assert.EqualValues(t, 0x2A, data[8], "capabilities page code")
	})
}

func TestScsiRequestSense(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	rsp, data := scsi(t, e, 0x03, 0, 0, 0, 18, 0)
	require.Equal(t, proto.ScsiStatusGood, rsp.Status)
	require.Len(t, data, 18)
	assert.EqualValues(t, 0x70, data[0])
	assert.Zero(t, data[2], "no sense after clean state")
}

func TestScsiUnsupportedOpcodes(t *testing.T) {
	e := cdromEmulator(t, 100)

	for _, opcode := range []byte{0x46, 0x4A, 0x51, 0xBE, 0xF0} {
		rsp, _ := scsi(t, e, opcode)
		assertSense(t, rsp, 0x05, 0x20)
	}
}

func TestScsiPreventAllowRemoval(t *testing.T) {
	e := cdromEmulator(t, 100)

	rsp, _ := scsi(t, e, 0x1E)
	assert.Equal(t, proto.ScsiStatusGood, rsp.Status)
}
