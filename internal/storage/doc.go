// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage emulates the guest's disks on top of image files.
//
// The emulator serves BIOS INT 13h style requests for two floppies,
// two hard disks and one CD-ROM, plus SCSI-2/MMC-2 command emulation
// for the CD-ROM. Images are validated on mount: floppies by exact
// size, ISOs by their ISO 9660 signature and hard disk images by
// native magic or MBR signature.
package storage
