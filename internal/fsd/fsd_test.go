// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package fsd_test

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/risingsunproject/sunpci/internal/fsd"
	"github.com/risingsunproject/sunpci/internal/proto"
)

type harness struct {
	redirector *fsd.Redirector
	dir        string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	redirector := fsd.NewRedirector(log)

	require.NoError(t, redirector.Mount('F', dir))
	t.Cleanup(func() { _ = redirector.Close() })

	return &harness{redirector: redirector, dir: dir}
}

func (h *harness) command(
	t *testing.T,
	command uint16,
	payload []byte,
) []byte {
	t.Helper()

	status, reply, err := h.redirector.Handle(
		context.Background(), command, payload,
	)
	require.NoError(t, err)
	require.Equal(t, proto.StatusSuccess, status)

	return reply
}

func (h *harness) open(t *testing.T, path string, flags uint32) uint32 {
	t.Helper()

	req := proto.FSDOpenRequest{Flags: flags, Path: path}
	reply, err := proto.DecodeFSDOpenReply(
		h.command(t, proto.FSDOpen, req.Encode(nil)),
	)
	require.NoError(t, err)
	require.Zero(t, reply.Status)
	require.NotZero(t, reply.Handle)

	return reply.Handle
}

func TestMountValidation(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	redirector := fsd.NewRedirector(log)

	require.Error(t, redirector.Mount('F', "/does/not/exist"))

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	require.ErrorIs(t, redirector.Mount('F', file), fsd.ErrBadPath)

	require.ErrorIs(t, redirector.Unmount('F'), fsd.ErrNotMounted)
}

func TestMountCommand(t *testing.T) {
	h := newHarness(t)

	reply := h.command(t, proto.FSDMount, []byte{'F'})
	assert.Zero(t, binary.LittleEndian.Uint32(reply))

	// Lowercase letters address the same share.
	reply = h.command(t, proto.FSDMount, []byte{'f'})
	assert.Zero(t, binary.LittleEndian.Uint32(reply))

	reply = h.command(t, proto.FSDMount, []byte{'X'})
	assert.EqualValues(t, unix.ENOENT, binary.LittleEndian.Uint32(reply))
}

func TestOpenWriteReadClose(t *testing.T) {
	h := newHarness(t)

	handle := h.open(t, `F:\hello.txt`,
		proto.FSDOpenRead|proto.FSDOpenWrite|proto.FSDOpenCreate,
	)

	content := []byte("redirected")
	writeReq := proto.FSDIORequest{
		Handle: handle,
		Count:  uint32(len(content)),
	}

	reply, err := proto.DecodeFSDIOReply(h.command(
		t, proto.FSDWrite, append(writeReq.Encode(nil), content...),
	))
	require.NoError(t, err)
	require.Zero(t, reply.Status)
	assert.EqualValues(t, len(content), reply.Count)

	readReq := proto.FSDIORequest{Handle: handle, Count: 1024}
	readReply := h.command(t, proto.FSDRead, readReq.Encode(nil))

	reply, err = proto.DecodeFSDIOReply(readReply)
	require.NoError(t, err)
	require.Zero(t, reply.Status)
	assert.Equal(t, content, readReply[proto.FSDIOReplySize:])

	closeReply := h.command(t, proto.FSDClose,
		binary.LittleEndian.AppendUint32(nil, handle),
	)
	assert.Zero(t, binary.LittleEndian.Uint32(closeReply))

	// The file exists on the host below the share.
	hostData, err := os.ReadFile(filepath.Join(h.dir, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, hostData)
}

func TestCloseUnknownHandle(t *testing.T) {
	h := newHarness(t)

	reply := h.command(t, proto.FSDClose,
		binary.LittleEndian.AppendUint32(nil, 999),
	)
	assert.EqualValues(t, unix.EBADF, binary.LittleEndian.Uint32(reply))
}

func TestOpenMissingFile(t *testing.T) {
	h := newHarness(t)

	req := proto.FSDOpenRequest{
		Flags: proto.FSDOpenRead,
		Path:  `F:\nope.txt`,
	}

	reply, err := proto.DecodeFSDOpenReply(
		h.command(t, proto.FSDOpen, req.Encode(nil)),
	)
	require.NoError(t, err)
	assert.EqualValues(t, unix.ENOENT, reply.Status)
}

func TestPathTraversalIsContained(t *testing.T) {
	h := newHarness(t)

	outside := filepath.Join(filepath.Dir(h.dir), "escape.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	// Escaping components collapse to the share root, so the lookup
	// misses instead of leaving the share.
	req := proto.FSDOpenRequest{
		Flags: proto.FSDOpenRead,
		Path:  `F:\..\escape.txt`,
	}

	reply, err := proto.DecodeFSDOpenReply(
		h.command(t, proto.FSDOpen, req.Encode(nil)),
	)
	require.NoError(t, err)
	assert.EqualValues(t, unix.ENOENT, reply.Status)
}

func TestStat(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(h.dir, "stat.txt")
	require.NoError(t, os.WriteFile(path, make([]byte, 1234), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(h.dir, "sub"), 0o755))

	req := proto.FSDStatRequest{Path: `F:\stat.txt`}

	reply, err := proto.DecodeFSDStatReply(
		h.command(t, proto.FSDStat, req.Encode(nil)),
	)
	require.NoError(t, err)
	require.Zero(t, reply.Status)
	assert.EqualValues(t, 1234, reply.SizeLow)
	assert.NotZero(t, reply.Date)
	assert.NotZero(t, reply.Attr&proto.DOSAttrArchive)

	req = proto.FSDStatRequest{Path: `F:\sub`}

	reply, err = proto.DecodeFSDStatReply(
		h.command(t, proto.FSDStat, req.Encode(nil)),
	)
	require.NoError(t, err)
	require.Zero(t, reply.Status)
	assert.NotZero(t, reply.Attr&proto.DOSAttrDirectory)
}

func TestMkdirDeleteRename(t *testing.T) {
	h := newHarness(t)

	mkReq := proto.FSDStatRequest{Path: `F:\newdir`}
	reply := h.command(t, proto.FSDMkdir, mkReq.Encode(nil))
	require.Zero(t, binary.LittleEndian.Uint32(reply))

	info, err := os.Stat(filepath.Join(h.dir, "newdir"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t,
		os.WriteFile(filepath.Join(h.dir, "old.txt"), nil, 0o644),
	)

	renamePayload := proto.FSDStatRequest{Path: `F:\old.txt`}.Encode(nil)
	renamePayload = proto.FSDStatRequest{Path: `F:\new.txt`}.
		Encode(renamePayload)

	reply = h.command(t, proto.FSDRename, renamePayload)
	require.Zero(t, binary.LittleEndian.Uint32(reply))

	assert.NoFileExists(t, filepath.Join(h.dir, "old.txt"))
	assert.FileExists(t, filepath.Join(h.dir, "new.txt"))

	delReq := proto.FSDStatRequest{Path: `F:\new.txt`}
	reply = h.command(t, proto.FSDDelete, delReq.Encode(nil))
	require.Zero(t, binary.LittleEndian.Uint32(reply))
	assert.NoFileExists(t, filepath.Join(h.dir, "new.txt"))
}

func TestTruncate(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(h.dir, "trunc.txt")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	handle := h.open(t, `F:\trunc.txt`, proto.FSDOpenWrite)

	req := proto.FSDIORequest{Handle: handle, Offset: 10}
	reply := h.command(t, proto.FSDTruncate, req.Encode(nil))
	require.Zero(t, binary.LittleEndian.Uint32(reply))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 10, info.Size())
}

func TestStatFS(t *testing.T) {
	h := newHarness(t)

	reply, err := proto.DecodeFSDStatFSReply(
		h.command(t, proto.FSDStatFS, []byte{'F'}),
	)
	require.NoError(t, err)
	require.Zero(t, reply.Status)
	assert.EqualValues(t, 512, reply.BytesPerSector)
	assert.NotZero(t, reply.TotalClusters)
	assert.NotZero(t, reply.SectorsPerCluster)
}

func TestUnimplementedCommands(t *testing.T) {
	h := newHarness(t)

	for _, command := range []uint16{
		proto.FSDSeek, proto.FSDReadDir, proto.FSDLock,
	} {
		reply := h.command(t, command, nil)
		assert.EqualValues(t,
			unix.ENOSYS, binary.LittleEndian.Uint32(reply),
		)
	}
}
