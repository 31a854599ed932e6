// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// Mount flags.
const (
	MountReadOnly uint32 = 1 << 0
)

// BIOS drive type codes reported to the guest.
const (
	driveTypeHD        uint32 = 3
	driveTypeRemovable uint32 = 4
	driveTypeCDROM     uint32 = 5
)

// Notifier delivers mount and eject notifications to a running guest.
// It is unset while no session runs.
type Notifier interface {
	Post(
		dispatcher proto.DispatcherID,
		command uint16,
		payload []byte,
	) (uint32, error)
}

// Emulator owns the guest's drives: two floppies, two hard disks and
// one CD-ROM.
type Emulator struct {
	log *slog.Logger

	mu       sync.Mutex
	floppies [2]*Device
	disks    [2]*Device
	cdrom    *Device
	notifier Notifier
}

// NewEmulator returns an emulator with no mounted media.
func NewEmulator(log *slog.Logger) *Emulator {
	return &Emulator{log: log}
}

// SetNotifier installs or clears the guest notification path. Pass nil
// when the session stops.
func (e *Emulator) SetNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.notifier = n
}

// device returns the mounted device for a BIOS drive number, or nil.
// Callers must hold e.mu.
func (e *Emulator) device(drive uint32) *Device {
	switch {
	case drive <= proto.DriveFloppyB:
		return e.floppies[drive]
	case drive >= proto.DriveHD0 && drive <= proto.DriveHD1:
		return e.disks[drive-proto.DriveHD0]
	case drive == proto.DriveCDROM:
		return e.cdrom
	default:
		return nil
	}
}

// MountDisk mounts a hard disk image into slot 0 or 1, replacing any
// existing image.
func (e *Emulator) MountDisk(slot uint32, path string, flags uint32) error {
	if slot > 1 {
		return ErrBadSlot
	}

	readonly := flags&MountReadOnly != 0

	dev, err := OpenImage(path, TypeHDD, readonly, e.log)
	if err != nil {
		return err
	}

	drive := proto.DriveHD0 + slot

	e.mu.Lock()
	if old := e.disks[slot]; old != nil {
		_ = old.Close()
	}
	e.disks[slot] = dev
	e.mu.Unlock()

	e.log.Info("Disk mounted",
		slog.String("path", path),
		slog.Uint64("drive", uint64(drive)),
		slog.Bool("readonly", readonly))

	e.notifyMount(drive, flags)

	return nil
}

// UnmountDisk removes the hard disk image in slot 0 or 1.
func (e *Emulator) UnmountDisk(slot uint32) error {
	if slot > 1 {
		return ErrBadSlot
	}

	e.mu.Lock()
	dev := e.disks[slot]
	e.disks[slot] = nil
	e.mu.Unlock()

	if dev != nil {
		_ = dev.Close()
	}

	e.notifyUnmount(proto.DriveHD0 + slot)

	return nil
}

// MountFloppy mounts a floppy image into drive A or B.
func (e *Emulator) MountFloppy(drive uint32, path string) error {
	if drive > proto.DriveFloppyB {
		return ErrBadSlot
	}

	dev, err := OpenImage(path, TypeFloppy, false, e.log)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if old := e.floppies[drive]; old != nil {
		_ = old.Close()
	}
	e.floppies[drive] = dev
	e.mu.Unlock()

	e.log.Info("Floppy mounted",
		slog.String("path", path),
		slog.Uint64("drive", uint64(drive)))

	e.notifyMount(drive, 0)

	return nil
}

// UnmountFloppy removes the floppy image from drive A or B.
func (e *Emulator) UnmountFloppy(drive uint32) error {
	if drive > proto.DriveFloppyB {
		return ErrBadSlot
	}

	e.mu.Lock()
	dev := e.floppies[drive]
	e.floppies[drive] = nil
	e.mu.Unlock()

	if dev != nil {
		_ = dev.Close()
	}

	e.notifyUnmount(drive)

	return nil
}

// MountCDROM inserts an ISO image. CD-ROM media is always read only.
func (e *Emulator) MountCDROM(path string) error {
	dev, err := OpenImage(path, TypeCDROM, true, e.log)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if old := e.cdrom; old != nil {
		_ = old.Close()
	}
	e.cdrom = dev
	e.mu.Unlock()

	e.log.Info("CD-ROM mounted", slog.String("path", path))

	e.notifyMount(proto.DriveCDROM, MountReadOnly)

	return nil
}

// EjectCDROM removes the inserted ISO image.
func (e *Emulator) EjectCDROM() error {
	e.mu.Lock()
	dev := e.cdrom
	e.cdrom = nil
	e.mu.Unlock()

	if dev != nil {
		_ = dev.Close()
	}

	e.notifyEject(proto.DriveCDROM)

	return nil
}

func (e *Emulator) notifyMount(drive, flags uint32) {
	e.notify(proto.StorageMount,
		proto.MountNotify{Drive: drive, Flags: flags}.Encode(nil))
}

func (e *Emulator) notifyUnmount(drive uint32) {
	e.notify(proto.StorageUnmount,
		proto.MountNotify{Drive: drive}.Encode(nil))
}

func (e *Emulator) notifyEject(drive uint32) {
	e.notify(proto.StorageEject,
		proto.MountNotify{Drive: drive}.Encode(nil))
}

func (e *Emulator) notify(command uint16, payload []byte) {
	e.mu.Lock()
	notifier := e.notifier
	e.mu.Unlock()

	if notifier == nil {
		return
	}

	if _, err := notifier.Post(
		proto.DispStorage, command, payload,
	); err != nil {
		e.log.Warn("Failed to notify guest of media change",
			slog.Any("error", err))
	}
}

// maxTransferSectors clamps a transfer so its data fits a response
// payload together with the response header.
func maxTransferSectors(sectorSize uint32) uint32 {
	limit := uint32(proto.MaxPayload-proto.StorageResponseSize) / sectorSize
	if limit > MaxSectorsPerIO {
		limit = MaxSectorsPerIO
	}

	return limit
}

// Request serves one BIOS style storage request. The data argument
// carries write data, the returned slice read data or the parameter
// block. The response status uses the BIOS INT 13h status codes.
func (e *Emulator) Request(
	_ context.Context,
	req proto.StorageRequest,
	data []byte,
) (proto.StorageResponse, []byte) {
	e.mu.Lock()
	dev := e.device(req.Drive)
	e.mu.Unlock()

	if dev == nil {
		return proto.StorageResponse{Status: proto.BiosNoMedia}, nil
	}

	lba, ok := req.LBA()
	if !ok {
		lba = dev.LBA(req.Cylinder, req.Head, req.Sector)
	}

	count := req.Count
	if limit := maxTransferSectors(dev.SectorSize()); count > limit {
		count = limit
	}

	switch req.Command {
	case uint32(proto.StorageRead):
		buf, err := dev.ReadSectors(lba, count)
		if err != nil {
			return proto.StorageResponse{Status: proto.BiosSectorNF}, nil
		}

		return proto.StorageResponse{
			Status: proto.BiosOK,
			Count:  count,
		}, buf

	case uint32(proto.StorageWrite):
		err := dev.WriteSectors(lba, data)
		switch {
		case errors.Is(err, ErrReadOnly):
			return proto.StorageResponse{Status: proto.BiosWriteProt}, nil
		case err != nil:
			return proto.StorageResponse{Status: proto.BiosSectorNF}, nil
		}

		return proto.StorageResponse{
			Status: proto.BiosOK,
			Count:  uint32(len(data)) / dev.SectorSize(),
		}, nil

	case uint32(proto.StorageVerify):
		if lba+uint64(req.Count) > dev.TotalSectors() {
			return proto.StorageResponse{Status: proto.BiosSectorNF}, nil
		}

		return proto.StorageResponse{
			Status: proto.BiosOK,
			Count:  req.Count,
		}, nil

	case uint32(proto.StorageReset), uint32(proto.StorageRecal):
		return proto.StorageResponse{Status: proto.BiosOK}, nil

	case uint32(proto.StorageGetParams):
		params := dev.Params(e.driveType(req.Drive))

		return proto.StorageResponse{
			Status: proto.BiosOK,
			Count:  proto.DriveParamsSize,
		}, params.Encode(nil)

	case uint32(proto.StorageGetType):
		return proto.StorageResponse{
			Status: proto.BiosOK,
			Count:  e.driveType(req.Drive),
		}, nil

	default:
		return proto.StorageResponse{Status: proto.BiosBadCommand}, nil
	}
}

func (e *Emulator) driveType(drive uint32) uint32 {
	switch {
	case drive >= proto.DriveCDROM:
		return driveTypeCDROM
	case drive >= proto.DriveHD0:
		return driveTypeHD
	default:
		return driveTypeRemovable
	}
}
