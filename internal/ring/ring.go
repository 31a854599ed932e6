// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package ring

import (
	"sync"
	"sync/atomic"
)

// Registers provides 32 bit access to the hardware register file
// holding mirrored ring cursors.
type Registers interface {
	Read32(offset uint32) uint32
	Write32(offset uint32, value uint32)
}

// Buffer is a fixed-size circular byte buffer with separate producer
// and consumer cursors.
//
// The buffer is empty when head == tail and full when advancing head
// would make them equal again, so one slot always stays unused to
// distinguish the two states.
//
// All mutating operations hold the per-buffer lock. Cursor updates go
// through [sync/atomic] stores so the far side, which reads cursors
// without taking the lock, never observes a torn or stale-past-publish
// value.
type Buffer struct {
	mu   sync.Mutex
	data []byte
	size uint32

	head atomic.Uint32
	tail atomic.Uint32

	regs    Registers
	headReg uint32
	tailReg uint32
}

// New creates a Buffer over the given memory window. The window size
// must be a power of two of at least 64 bytes.
func New(data []byte) (*Buffer, error) {
	size := uint32(len(data))
	if size < 64 || size&(size-1) != 0 {
		return nil, ErrSizeInvalid
	}

	return &Buffer{
		data: data,
		size: size,
	}, nil
}

// MirrorCursors attaches the hardware registers holding the
// authoritative head and tail cursors. The Sync and Publish methods
// stay no-ops until this is called.
func (b *Buffer) MirrorCursors(regs Registers, headReg, tailReg uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.regs = regs
	b.headReg = headReg
	b.tailReg = tailReg
}

// Size returns the total capacity of the buffer in bytes. The usable
// occupancy is Size()-1.
func (b *Buffer) Size() uint32 {
	return b.size
}

// Reset zeroes both cursors, discarding any buffered data.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.head.Store(0)
	b.tail.Store(0)
}

// Space returns the number of bytes available for writing.
func (b *Buffer) Space() uint32 {
	head := b.head.Load()
	tail := b.tail.Load()

	if head >= tail {
		return b.size - (head - tail) - 1
	}

	return tail - head - 1
}

// Used returns the number of bytes available for reading.
func (b *Buffer) Used() uint32 {
	head := b.head.Load()
	tail := b.tail.Load()

	if head >= tail {
		return head - tail
	}

	return b.size - (tail - head)
}

// Write copies data into the buffer at the producer cursor, wrapping
// across the end of the window as two sub-copies if necessary, and
// advances the cursor. It fails with [ErrInsufficientSpace] if the
// data does not fit entirely.
func (b *Buffer) Write(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	length := uint32(len(data))
	if length > b.Space() {
		return ErrInsufficientSpace
	}

	head := b.head.Load()
	if head+length <= b.size {
		copy(b.data[head:], data)
	} else {
		chunk := b.size - head
		copy(b.data[head:], data[:chunk])
		copy(b.data, data[chunk:])
	}

	// The store publishes the new data to unlocked readers.
	b.head.Store((head + length) % b.size)

	return nil
}

// Read copies up to len(data) bytes from the consumer cursor into data
// and advances the cursor by the amount copied. It returns the number
// of bytes copied, which is 0 if the buffer is empty. A short read is
// not an error.
func (b *Buffer) Read(data []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	length := b.copyOut(data)
	if length > 0 {
		b.tail.Store((b.tail.Load() + length) % b.size)
	}

	return int(length)
}

// Peek is identical to Read but does not advance the consumer cursor.
func (b *Buffer) Peek(data []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return int(b.copyOut(data))
}

// Skip advances the consumer cursor by n bytes without copying. It
// fails with [ErrSkipBeyondUsed] if fewer than n bytes are buffered.
func (b *Buffer) Skip(n uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.Used() {
		return ErrSkipBeyondUsed
	}

	b.tail.Store((b.tail.Load() + n) % b.size)

	return nil
}

func (b *Buffer) copyOut(data []byte) uint32 {
	length := uint32(len(data))
	if used := b.Used(); length > used {
		length = used
	}

	if length == 0 {
		return 0
	}

	tail := b.tail.Load()
	if tail+length <= b.size {
		copy(data, b.data[tail:tail+length])
	} else {
		chunk := b.size - tail
		copy(data, b.data[tail:])
		copy(data[chunk:], b.data[:length-chunk])
	}

	return length
}

// SyncHead copies the hardware head register into the local producer
// cursor. The consumer side calls this before reading to observe the
// far producer's progress.
func (b *Buffer) SyncHead() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.regs != nil {
		b.head.Store(b.regs.Read32(b.headReg) % b.size)
	}
}

// SyncTail copies the hardware tail register into the local consumer
// cursor. The producer side calls this before writing to observe the
// far consumer's progress.
func (b *Buffer) SyncTail() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.regs != nil {
		b.tail.Store(b.regs.Read32(b.tailReg) % b.size)
	}
}

// PublishHead copies the local producer cursor into the hardware head
// register. The producer side calls this after writing.
func (b *Buffer) PublishHead() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.regs != nil {
		b.regs.Write32(b.headReg, b.head.Load())
	}
}

// PublishTail copies the local consumer cursor into the hardware tail
// register. The consumer side calls this after reading.
func (b *Buffer) PublishTail() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.regs != nil {
		b.regs.Write32(b.tailReg, b.tail.Load())
	}
}
