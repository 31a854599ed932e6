// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"os"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// Sector sizes.
const (
	SectorSizeHD     = 512
	SectorSizeCDROM  = 2048
	SectorSizeFloppy = 512
)

// MaxSectorsPerIO caps a single transfer.
const MaxSectorsPerIO = 128

// Native disk image signature, the protocol magic at offset 12.
const (
	diskMagicOffset = 12
)

// ISO 9660 signature, "CD001" at sector 16 offset 1.
const (
	isoMagicOffset = 16*SectorSizeCDROM + 1
)

var isoMagic = []byte("CD001")

// Type selects the validation and geometry rules for an image.
type Type int

// Image types.
const (
	TypeHDD Type = iota
	TypeCDROM
	TypeFloppy
)

// floppyFormats lists the accepted floppy image sizes.
var floppyFormats = []int64{
	163840,  // 160 KB 5.25" SS/DD
	184320,  // 180 KB 5.25" SS/DD
	327680,  // 320 KB 5.25" DS/DD
	368640,  // 360 KB 5.25" DS/DD
	737280,  // 720 KB 3.5" DD
	1228800, // 1.2 MB 5.25" HD
	1474560, // 1.44 MB 3.5" HD
	2949120, // 2.88 MB 3.5" ED
}

// Geometry is a CHS disk geometry.
type Geometry struct {
	Cylinders uint32
	Heads     uint32
	Sectors   uint32
}

// DiskGeometry derives a hard disk CHS geometry from its capacity.
// Sectors per track are fixed at 63, heads escalate with size and
// cylinders are clamped to the CHS limit of 1024.
func DiskGeometry(totalSectors uint64, sectorSize uint32) Geometry {
	sizeMB := totalSectors * uint64(sectorSize) / (1024 * 1024)

	var heads uint32

	switch {
	case sizeMB <= 504:
		heads = 16
	case sizeMB <= 1008:
		heads = 32
	case sizeMB <= 2016:
		heads = 64
	case sizeMB <= 4032:
		heads = 128
	default:
		heads = 255
	}

	const sectors = 63

	cylinders := uint32(totalSectors / uint64(heads*sectors))
	if cylinders > 1024 {
		cylinders = 1024
	}

	return Geometry{Cylinders: cylinders, Heads: heads, Sectors: sectors}
}

// FloppyGeometry maps a floppy image size to its standard geometry.
// Unknown sizes fall back to 1.44 MB geometry.
func FloppyGeometry(size int64) Geometry {
	switch size {
	case 1474560:
		return Geometry{80, 2, 18}
	case 1228800:
		return Geometry{80, 2, 15}
	case 737280:
		return Geometry{80, 2, 9}
	case 368640:
		return Geometry{40, 2, 9}
	case 163840:
		return Geometry{40, 1, 8}
	default:
		return Geometry{80, 2, 18}
	}
}

// Device is one mounted disk image.
type Device struct {
	file         *os.File
	size         int64
	sectorSize   uint32
	totalSectors uint64
	geometry     Geometry
	readonly     bool
}

// OpenImage opens and validates a disk image.
func OpenImage(
	path string,
	typ Type,
	readonly bool,
	log *slog.Logger,
) (*Device, error) {
	flag := os.O_RDWR
	if readonly {
		flag = os.O_RDONLY
	}

	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, &ImageError{Path: path, Err: err}
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, &ImageError{Path: path, Err: err}
	}

	size := info.Size()

	var sectorSize uint32

	switch typ {
	case TypeCDROM:
		sectorSize = SectorSizeCDROM
		err = validateISO9660(file, size)
	case TypeFloppy:
		sectorSize = SectorSizeFloppy
		err = validateFloppy(size)
	case TypeHDD:
		sectorSize = SectorSizeHD
		err = validateHDD(file, size, path, log)
	}

	if err != nil {
		_ = file.Close()
		return nil, &ImageError{Path: path, Err: err}
	}

	dev := &Device{
		file:         file,
		size:         size,
		sectorSize:   sectorSize,
		totalSectors: uint64(size) / uint64(sectorSize),
		readonly:     readonly,
	}

	if typ == TypeFloppy {
		dev.geometry = FloppyGeometry(size)
	} else {
		dev.geometry = DiskGeometry(dev.totalSectors, sectorSize)
	}

	return dev, nil
}

// validateISO9660 checks the "CD001" signature in the primary volume
// descriptor. An ISO needs at least 17 sectors to contain it.
func validateISO9660(file *os.File, size int64) error {
	if size < 17*SectorSizeCDROM {
		return ErrNotISO9660
	}

	var buf [5]byte

	if _, err := file.ReadAt(buf[:], isoMagicOffset); err != nil {
		return err
	}

	if !bytes.Equal(buf[:], isoMagic) {
		return ErrNotISO9660
	}

	return nil
}

// validateFloppy accepts only exact standard format sizes.
func validateFloppy(size int64) error {
	for _, format := range floppyFormats {
		if size == format {
			return nil
		}
	}

	return ErrFloppySize
}

// validateHDD accepts images with the native magic at offset 12 or an
// MBR boot signature. Anything else is accepted with a warning, raw
// images without a partition table are legitimate.
func validateHDD(file *os.File, size int64, path string, log *slog.Logger) error {
	if size < SectorSizeHD {
		return ErrImageTooSmall
	}

	var head [16]byte

	if _, err := file.ReadAt(head[:], 0); err != nil {
		return err
	}

	if binary.LittleEndian.Uint32(head[diskMagicOffset:]) == proto.Magic {
		return nil
	}

	var sig [2]byte

	if _, err := file.ReadAt(sig[:], 510); err == nil {
		if sig[0] == 0x55 && sig[1] == 0xAA {
			return nil
		}
	}

	log.Warn("Disk image has no native or MBR signature, proceeding",
		slog.String("path", path))

	return nil
}

// Close releases the backing file.
func (d *Device) Close() error {
	return d.file.Close()
}

// Size returns the image size in bytes.
func (d *Device) Size() int64 {
	return d.size
}

// SectorSize returns the device's sector size in bytes.
func (d *Device) SectorSize() uint32 {
	return d.sectorSize
}

// TotalSectors returns the device capacity in sectors.
func (d *Device) TotalSectors() uint64 {
	return d.totalSectors
}

// Geometry returns the device's CHS geometry.
func (d *Device) Geometry() Geometry {
	return d.geometry
}

// ReadOnly reports whether the image is write protected.
func (d *Device) ReadOnly() bool {
	return d.readonly
}

// LBA converts a CHS address into a linear block address using the
// device geometry. Sector numbers are 1-based.
func (d *Device) LBA(cylinder, head, sector uint32) uint64 {
	return (uint64(cylinder)*uint64(d.geometry.Heads)+uint64(head))*
		uint64(d.geometry.Sectors) + uint64(sector) - 1
}

// ReadSectors reads count sectors starting at lba.
func (d *Device) ReadSectors(lba uint64, count uint32) ([]byte, error) {
	if lba+uint64(count) > d.totalSectors {
		return nil, ErrOutOfRange
	}

	buf := make([]byte, uint64(count)*uint64(d.sectorSize))

	if _, err := d.file.ReadAt(buf, int64(lba*uint64(d.sectorSize))); err != nil {
		return nil, err
	}

	return buf, nil
}

// WriteSectors writes full sectors starting at lba.
func (d *Device) WriteSectors(lba uint64, data []byte) error {
	if d.readonly {
		return ErrReadOnly
	}

	count := uint64(len(data)) / uint64(d.sectorSize)
	if lba+count > d.totalSectors {
		return ErrOutOfRange
	}

	_, err := d.file.WriteAt(data[:count*uint64(d.sectorSize)],
		int64(lba*uint64(d.sectorSize)))

	return err
}

// Params returns the drive parameter block for this device.
func (d *Device) Params(driveType uint32) proto.DriveParams {
	return proto.DriveParams{
		DriveType:  driveType,
		Cylinders:  d.geometry.Cylinders,
		Heads:      d.geometry.Heads,
		Sectors:    d.geometry.Sectors,
		TotalLo:    uint32(d.totalSectors),
		TotalHi:    uint32(d.totalSectors >> 32),
		SectorSize: d.sectorSize,
	}
}
