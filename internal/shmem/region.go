// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package shmem

import (
	"os"

	"golang.org/x/sys/unix"
)

// Shared memory layout. The register page sits in the extended area
// past the bulk buffer.
const (
	CmdRingOffset = 0x00000
	CmdRingSize   = 0x10000

	RspRingOffset = 0x10000
	RspRingSize   = 0x10000

	BulkOffset = 0x20000
	BulkSize   = 0x20000

	RegsOffset = 0x40000
	RegsSize   = 0x1000

	// TotalSize is the size of the complete window.
	TotalSize = RegsOffset + RegsSize
)

// Region is a mapped shared memory window.
type Region struct {
	data []byte
	file *os.File
	regs *Registers
}

// Open maps the shared memory window backed by the given file,
// creating and sizing it as needed. Both bridge processes open the
// same path.
func Open(path string) (*Region, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, &MapError{Path: path, Err: err}
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, &MapError{Path: path, Err: err}
	}

	if info.Size() < TotalSize {
		if err := file.Truncate(TotalSize); err != nil {
			_ = file.Close()
			return nil, &MapError{Path: path, Err: err}
		}
	}

	data, err := unix.Mmap(
		int(file.Fd()), 0, TotalSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED,
	)
	if err != nil {
		_ = file.Close()
		return nil, &MapError{Path: path, Err: err}
	}

	return newRegion(data, file), nil
}

// OpenAnonymous maps a private window not backed by a file. Used by
// tests and single process setups.
func OpenAnonymous() (*Region, error) {
	data, err := unix.Mmap(
		-1, 0, TotalSize,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED|unix.MAP_ANONYMOUS,
	)
	if err != nil {
		return nil, &MapError{Path: "(anonymous)", Err: err}
	}

	return newRegion(data, nil), nil
}

func newRegion(data []byte, file *os.File) *Region {
	return &Region{
		data: data,
		file: file,
		regs: newRegisters(data[RegsOffset : RegsOffset+RegsSize]),
	}
}

// Close unmaps the window and closes the backing file.
func (r *Region) Close() error {
	err := unix.Munmap(r.data)
	r.data = nil

	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
	}

	return err
}

// CmdRing returns the command ring memory.
func (r *Region) CmdRing() []byte {
	return r.data[CmdRingOffset : CmdRingOffset+CmdRingSize]
}

// RspRing returns the response ring memory.
func (r *Region) RspRing() []byte {
	return r.data[RspRingOffset : RspRingOffset+RspRingSize]
}

// Bulk returns the bulk data area.
func (r *Region) Bulk() []byte {
	return r.data[BulkOffset : BulkOffset+BulkSize]
}

// Regs returns the emulated register page.
func (r *Region) Regs() *Registers {
	return r.regs
}
