// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package audio

import (
	"encoding/binary"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// RegionSize is the shared memory the audio ring occupies, a control
// header followed by the slot buffers.
const RegionSize = proto.AudioHeaderSize +
	proto.AudioSlotCount*proto.AudioSlotSize

// ring is the host view of the shared slot ring. The guest advances
// the write pointer after filling a slot, the host the read pointer
// after draining one. Pointers are slot indexes.
type ring struct {
	mem []byte
}

func newRing(mem []byte) (*ring, error) {
	if len(mem) < RegionSize {
		return nil, ErrRegionSize
	}

	return &ring{mem: mem}, nil
}

// init resets the header for a fresh guest session.
func (r *ring) init(format proto.AudioFormat) {
	r.setField(proto.AudioOffMagic, proto.AudioMagic)
	r.setField(proto.AudioOffWritePtr, 0)
	r.setField(proto.AudioOffReadPtr, 0)
	r.setField(proto.AudioOffSampleRate, format.SampleRate)
	r.setField(proto.AudioOffFormat, format.Format)
	r.setField(proto.AudioOffVolumeL, 255)
	r.setField(proto.AudioOffVolumeR, 255)
	r.setField(proto.AudioOffStatus, 0)
}

func (r *ring) field(off int) uint32 {
	return binary.LittleEndian.Uint32(r.mem[off:])
}

func (r *ring) setField(off int, v uint32) {
	binary.LittleEndian.PutUint32(r.mem[off:], v)
}

func (r *ring) available() uint32 {
	write := r.field(proto.AudioOffWritePtr)
	read := r.field(proto.AudioOffReadPtr)

	return (write - read) % proto.AudioSlotCount
}

// takeSlot returns the next filled slot buffer and advances the read
// pointer. The second result is false if the ring is empty.
func (r *ring) takeSlot() ([]byte, bool) {
	if r.available() == 0 {
		return nil, false
	}

	idx := r.field(proto.AudioOffReadPtr) % proto.AudioSlotCount
	start := proto.AudioHeaderSize + int(idx)*proto.AudioSlotSize
	slot := r.mem[start : start+proto.AudioSlotSize]

	r.setField(proto.AudioOffReadPtr,
		(r.field(proto.AudioOffReadPtr)+1)%proto.AudioSlotCount)

	return slot, true
}
