// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package shmem

import (
	"sync/atomic"
	"unsafe"
)

// Register offsets within the register page, following the bridge
// chip's layout: doorbells for cross side interrupts, scratchpads for
// small state.
const (
	RegHostDoorbell  = 0x58 // host to guest
	RegGuestDoorbell = 0x64 // guest to host

	RegVersion = 0x80
	RegStatus  = 0x84
	RegCmdHead = 0x88
	RegCmdTail = 0x8C
	RegRspHead = 0x90
	RegRspTail = 0x94
)

// Status register bits.
const (
	StatusRunning  uint32 = 1 << 0
	StatusHalted   uint32 = 1 << 1
	StatusGraphics uint32 = 1 << 2
	StatusNetwork  uint32 = 1 << 3
)

// Registers emulates the bridge register page over shared memory. All
// access is 32 bit atomic so both processes observe each other's
// writes without tearing.
type Registers struct {
	page []byte
}

func newRegisters(page []byte) *Registers {
	return &Registers{page: page}
}

func (r *Registers) addr(offset uint32) *uint32 {
	if offset%4 != 0 || int(offset)+4 > len(r.page) {
		panic(ErrRegisterUnaligned)
	}

	return (*uint32)(unsafe.Pointer(&r.page[offset]))
}

// Read32 implements the ring register interface.
func (r *Registers) Read32(offset uint32) uint32 {
	return atomic.LoadUint32(r.addr(offset))
}

// Write32 implements the ring register interface.
func (r *Registers) Write32(offset uint32, value uint32) {
	atomic.StoreUint32(r.addr(offset), value)
}

// Ring implements the transport doorbell interface by setting bits in
// the host to guest doorbell register.
func (r *Registers) Ring(bits uint32) {
	atomic.OrUint32(r.addr(RegHostDoorbell), bits)
}

// TakeGuestDoorbell atomically reads and clears the guest to host
// doorbell register. The interrupt poll loop calls this to collect
// pending bits.
func (r *Registers) TakeGuestDoorbell() uint32 {
	return atomic.SwapUint32(r.addr(RegGuestDoorbell), 0)
}

// RingGuestDoorbell sets bits in the guest to host doorbell register.
// Only the guest side and tests use this.
func (r *Registers) RingGuestDoorbell(bits uint32) {
	atomic.OrUint32(r.addr(RegGuestDoorbell), bits)
}
