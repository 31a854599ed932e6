// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package shmem_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risingsunproject/sunpci/internal/ring"
	"github.com/risingsunproject/sunpci/internal/shmem"
)

func TestOpenCreatesBackingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shmem")

	region, err := shmem.Open(path)
	require.NoError(t, err)
	defer region.Close()

	assert.Len(t, region.CmdRing(), shmem.CmdRingSize)
	assert.Len(t, region.RspRing(), shmem.RspRingSize)
	assert.Len(t, region.Bulk(), shmem.BulkSize)
}

func TestSharedVisibility(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shmem")

	host, err := shmem.Open(path)
	require.NoError(t, err)
	defer host.Close()

	guest, err := shmem.Open(path)
	require.NoError(t, err)
	defer guest.Close()

	// Data written through one mapping is visible through the other.
	copy(host.CmdRing(), "ping")
	assert.Equal(t, []byte("ping"), guest.CmdRing()[:4])

	host.Regs().Write32(shmem.RegCmdHead, 1234)
	assert.EqualValues(t, 1234, guest.Regs().Read32(shmem.RegCmdHead))
}

func TestDoorbells(t *testing.T) {
	region, err := shmem.OpenAnonymous()
	require.NoError(t, err)
	defer region.Close()

	regs := region.Regs()

	regs.Ring(1 << 0)
	regs.Ring(1 << 2)
	assert.EqualValues(t, 0b101, regs.Read32(shmem.RegHostDoorbell),
		"doorbell bits accumulate")

	regs.RingGuestDoorbell(1 << 1)
	assert.EqualValues(t, 1<<1, regs.TakeGuestDoorbell())
	assert.Zero(t, regs.TakeGuestDoorbell(), "take clears pending bits")
}

func TestRegistersBackRingCursors(t *testing.T) {
	region, err := shmem.OpenAnonymous()
	require.NoError(t, err)
	defer region.Close()

	buf, err := ring.New(region.CmdRing())
	require.NoError(t, err)

	buf.MirrorCursors(region.Regs(), shmem.RegCmdHead, shmem.RegCmdTail)

	require.NoError(t, buf.Write([]byte("hello")))
	buf.PublishHead()

	assert.EqualValues(t, 5, region.Regs().Read32(shmem.RegCmdHead))
}
