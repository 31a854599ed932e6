// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risingsunproject/sunpci/internal/proto"
	"github.com/risingsunproject/sunpci/internal/storage"
)

type notification struct {
	dispatcher proto.DispatcherID
	command    uint16
	payload    []byte
}

type fakeNotifier struct {
	sent []notification
}

func (n *fakeNotifier) Post(
	dispatcher proto.DispatcherID,
	command uint16,
	payload []byte,
) (uint32, error) {
	n.sent = append(n.sent, notification{dispatcher, command, payload})
	return uint32(len(n.sent)), nil
}

func request(
	t *testing.T,
	e *storage.Emulator,
	req proto.StorageRequest,
	data []byte,
) (proto.StorageResponse, []byte) {
	t.Helper()

	return e.Request(context.Background(), req, data)
}

func TestEmulatorNoMedia(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	for _, drive := range []uint32{
		proto.DriveFloppyA, proto.DriveHD0, proto.DriveCDROM,
	} {
		rsp, _ := request(t, e, proto.StorageRequest{
			Drive:   drive,
			Command: uint32(proto.StorageRead),
			Sector:  1,
			Count:   1,
		}, nil)

		assert.Equal(t, proto.BiosNoMedia, rsp.Status, "drive %#x", drive)
	}
}

func TestEmulatorUnknownDrive(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	rsp, _ := request(t, e, proto.StorageRequest{Drive: 0x42}, nil)
	assert.Equal(t, proto.BiosNoMedia, rsp.Status)
}

func TestEmulatorFloppyRoundTrip(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	path := writeImage(t, 1474560, nil)
	require.NoError(t, e.MountFloppy(proto.DriveFloppyA, path))

	sector := make([]byte, storage.SectorSizeFloppy)
	for i := range sector {
		sector[i] = 0x5A
	}

	// Write via CHS addressing: cylinder 1, head 0, sector 1 is LBA 36
	// on 80/2/18 geometry.
	writeReq := proto.StorageRequest{
		Drive:    proto.DriveFloppyA,
		Command:  uint32(proto.StorageWrite),
		Cylinder: 1,
		Sector:   1,
		Count:    1,
	}

	rsp, _ := request(t, e, writeReq, sector)
	require.Equal(t, proto.BiosOK, rsp.Status)
	assert.EqualValues(t, 1, rsp.Count)

	// Read the same block back via LBA addressing.
	readReq := proto.StorageRequest{
		Drive:   proto.DriveFloppyA,
		Command: uint32(proto.StorageRead),
		LBALo:   36,
		Count:   1,
	}

	rsp, data := request(t, e, readReq, nil)
	require.Equal(t, proto.BiosOK, rsp.Status)
	assert.Equal(t, sector, data)
}

func TestEmulatorTransferClamp(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	path := writeImage(t, 64<<20, map[int64][]byte{510: {0x55, 0xAA}})
	require.NoError(t, e.MountDisk(0, path, 0))

	rsp, data := request(t, e, proto.StorageRequest{
		Drive:   proto.DriveHD0,
		Command: uint32(proto.StorageRead),
		LBALo:   1,
		Count:   1000,
	}, nil)

	require.Equal(t, proto.BiosOK, rsp.Status)
	assert.LessOrEqual(t, rsp.Count, uint32(storage.MaxSectorsPerIO))
	assert.EqualValues(t, rsp.Count*storage.SectorSizeHD, len(data))
	assert.LessOrEqual(t,
		len(data)+proto.StorageResponseSize, proto.MaxPayload)
}

func TestEmulatorWriteProtect(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	path := writeImage(t, 1<<20, map[int64][]byte{510: {0x55, 0xAA}})
	require.NoError(t, e.MountDisk(0, path, storage.MountReadOnly))

	rsp, _ := request(t, e, proto.StorageRequest{
		Drive:   proto.DriveHD0,
		Command: uint32(proto.StorageWrite),
		Sector:  1,
		Count:   1,
	}, make([]byte, storage.SectorSizeHD))

	assert.Equal(t, proto.BiosWriteProt, rsp.Status)
}

func TestEmulatorVerify(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	path := writeImage(t, 1<<20, map[int64][]byte{510: {0x55, 0xAA}})
	require.NoError(t, e.MountDisk(0, path, 0))

	rsp, _ := request(t, e, proto.StorageRequest{
		Drive:   proto.DriveHD0,
		Command: uint32(proto.StorageVerify),
		Sector:  1,
		Count:   16,
	}, nil)
	assert.Equal(t, proto.BiosOK, rsp.Status)

	rsp, _ = request(t, e, proto.StorageRequest{
		Drive:   proto.DriveHD0,
		Command: uint32(proto.StorageVerify),
		LBALo:   2040,
		Count:   16,
	}, nil)
	assert.Equal(t, proto.BiosSectorNF, rsp.Status)
}

func TestEmulatorGetParams(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	path := writeImage(t, 1474560, nil)
	require.NoError(t, e.MountFloppy(proto.DriveFloppyB, path))

	rsp, data := request(t, e, proto.StorageRequest{
		Drive:   proto.DriveFloppyB,
		Command: uint32(proto.StorageGetParams),
	}, nil)
	require.Equal(t, proto.BiosOK, rsp.Status)

	params, err := proto.DecodeDriveParams(data)
	require.NoError(t, err)
	assert.EqualValues(t, 80, params.Cylinders)
	assert.EqualValues(t, 2, params.Heads)
	assert.EqualValues(t, 18, params.Sectors)
	assert.EqualValues(t, 2880, params.TotalLo)
	assert.EqualValues(t, storage.SectorSizeFloppy, params.SectorSize)
}

func TestEmulatorGetType(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	require.NoError(t, e.MountCDROM(isoImage(t, 100)))

	rsp, _ := request(t, e, proto.StorageRequest{
		Drive:   proto.DriveCDROM,
		Command: uint32(proto.StorageGetType),
	}, nil)
	require.Equal(t, proto.BiosOK, rsp.Status)
	assert.EqualValues(t, 5, rsp.Count, "CD-ROM type")
}

func TestEmulatorBadCommand(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	path := writeImage(t, 1<<20, map[int64][]byte{510: {0x55, 0xAA}})
	require.NoError(t, e.MountDisk(0, path, 0))

	rsp, _ := request(t, e, proto.StorageRequest{
		Drive:   proto.DriveHD0,
		Command: 0x99,
	}, nil)
	assert.Equal(t, proto.BiosBadCommand, rsp.Status)
}

func TestEmulatorMountNotifications(t *testing.T) {
	e := storage.NewEmulator(discardLog())
	notifier := &fakeNotifier{}
	e.SetNotifier(notifier)

	path := writeImage(t, 1<<20, map[int64][]byte{510: {0x55, 0xAA}})
	require.NoError(t, e.MountDisk(1, path, 0))
	require.NoError(t, e.UnmountDisk(1))
	require.NoError(t, e.MountCDROM(isoImage(t, 100)))
	require.NoError(t, e.EjectCDROM())

	require.Len(t, notifier.sent, 4)

	assert.Equal(t, proto.StorageMount, notifier.sent[0].command)
	mount, err := proto.DecodeMountNotify(notifier.sent[0].payload)
	require.NoError(t, err)
	assert.Equal(t, proto.DriveHD1, mount.Drive)

	assert.Equal(t, proto.StorageUnmount, notifier.sent[1].command)
	assert.Equal(t, proto.StorageMount, notifier.sent[2].command)

	assert.Equal(t, proto.StorageEject, notifier.sent[3].command)
	eject, err := proto.DecodeMountNotify(notifier.sent[3].payload)
	require.NoError(t, err)
	assert.Equal(t, proto.DriveCDROM, eject.Drive)
}

func TestEmulatorNoNotifierIsQuiet(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	// Mount without a notifier must not panic or block.
	path := writeImage(t, 1<<20, map[int64][]byte{510: {0x55, 0xAA}})
	require.NoError(t, e.MountDisk(0, path, 0))
	require.NoError(t, e.UnmountDisk(0))
}

func TestEmulatorBadSlot(t *testing.T) {
	e := storage.NewEmulator(discardLog())

	assert.ErrorIs(t, e.MountDisk(2, "x", 0), storage.ErrBadSlot)
	assert.ErrorIs(t, e.UnmountDisk(5), storage.ErrBadSlot)
	assert.ErrorIs(t, e.MountFloppy(2, "x"), storage.ErrBadSlot)
}
