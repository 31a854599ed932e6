// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package fsd

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// Redirector is the file system dispatcher endpoint. It maps drive
// letters to host directories and tracks open file handles for the
// guest.
type Redirector struct {
	log *slog.Logger

	mu         sync.Mutex
	mounts     map[byte]string
	handles    map[uint32]*os.File
	nextHandle uint32
}

// NewRedirector returns a redirector without mounts.
func NewRedirector(log *slog.Logger) *Redirector {
	return &Redirector{
		log:     log,
		mounts:  make(map[byte]string),
		handles: make(map[uint32]*os.File),
	}
}

// Mount maps a drive letter to a host directory.
func (r *Redirector) Mount(letter byte, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return ErrBadPath
	}

	r.mu.Lock()
	r.mounts[upper(letter)] = dir
	r.mu.Unlock()

	r.log.Info("Drive mounted",
		slog.String("drive", string(upper(letter))+":"),
		slog.String("dir", dir),
	)

	return nil
}

// Unmount removes a drive letter mapping. Open handles stay valid.
func (r *Redirector) Unmount(letter byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mounts[upper(letter)]; !ok {
		return ErrNotMounted
	}

	delete(r.mounts, upper(letter))

	return nil
}

// Close releases all guest file handles.
func (r *Redirector) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for handle, file := range r.handles {
		_ = file.Close()
		delete(r.handles, handle)
	}

	return nil
}

// resolve translates a guest path like `F:\dir\file` into the host
// path below the mounted share. Components escaping the share root
// are folded away.
func (r *Redirector) resolve(guestPath string) (string, error) {
	if len(guestPath) < 2 || guestPath[1] != ':' {
		return "", ErrBadPath
	}

	r.mu.Lock()
	base, ok := r.mounts[upper(guestPath[0])]
	r.mu.Unlock()

	if !ok {
		return "", ErrNotMounted
	}

	rel := strings.ReplaceAll(guestPath[2:], `\`, "/")
	rel = filepath.Clean("/" + rel)

	return filepath.Join(base, rel), nil
}

// Handle implements the ipc handler interface.
func (r *Redirector) Handle(
	_ context.Context,
	command uint16,
	payload []byte,
) (proto.Status, []byte, error) {
	switch command {
	case proto.FSDMount:
		return r.mountCmd(payload)
	case proto.FSDUnmount:
		return ok(statusReply(0))
	case proto.FSDOpen:
		return r.open(payload)
	case proto.FSDClose:
		return r.closeCmd(payload)
	case proto.FSDRead:
		return r.read(payload)
	case proto.FSDWrite:
		return r.write(payload)
	case proto.FSDStat:
		return r.stat(payload)
	case proto.FSDMkdir:
		return r.pathCmd(payload, func(path string) error {
			return os.Mkdir(path, 0o755)
		})
	case proto.FSDRmdir, proto.FSDDelete:
		return r.pathCmd(payload, os.Remove)
	case proto.FSDRename:
		return r.rename(payload)
	case proto.FSDTruncate:
		return r.truncate(payload)
	case proto.FSDStatFS:
		return r.statfs(payload)
	case proto.FSDSeek, proto.FSDOpenDir, proto.FSDReadDir,
		proto.FSDCloseDir, proto.FSDSetAttr, proto.FSDLock,
		proto.FSDUnlock:
		return ok(statusReply(uint32(unix.ENOSYS)))
	default:
		return proto.StatusInvalidCommand, nil, nil
	}
}

func ok(reply []byte) (proto.Status, []byte, error) {
	return proto.StatusSuccess, reply, nil
}

func statusReply(code uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, code)
}

// errno maps host errors onto the positive error codes the guest
// driver translates to DOS errors.
func errno(err error) uint32 {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, ErrNotMounted),
		errors.Is(err, ErrBadPath):
		return uint32(unix.ENOENT)
	case errors.Is(err, fs.ErrPermission):
		return uint32(unix.EACCES)
	case errors.Is(err, fs.ErrExist):
		return uint32(unix.EEXIST)
	default:
		return uint32(unix.EIO)
	}
}

// mountCmd reports whether the requested drive letter has a share.
// Shares themselves are configured host side.
func (r *Redirector) mountCmd(payload []byte) (proto.Status, []byte, error) {
	if len(payload) < 1 {
		return proto.StatusError, nil, proto.ErrShortPayload
	}

	r.mu.Lock()
	_, mounted := r.mounts[upper(payload[0])]
	r.mu.Unlock()

	if !mounted {
		return ok(statusReply(uint32(unix.ENOENT)))
	}

	return ok(statusReply(0))
}

func (r *Redirector) open(payload []byte) (proto.Status, []byte, error) {
	req, err := proto.DecodeFSDOpenRequest(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	r.mu.Lock()
	full := len(r.handles) >= proto.FSDMaxHandles
	r.mu.Unlock()

	if full {
		reply := proto.FSDOpenReply{Status: uint32(unix.EMFILE)}

		return ok(reply.Encode(nil))
	}

	path, err := r.resolve(req.Path)
	if err != nil {
		reply := proto.FSDOpenReply{Status: errno(err)}

		return ok(reply.Encode(nil))
	}

	file, err := os.OpenFile(path, openFlags(req.Flags), 0o644)
	if err != nil {
		reply := proto.FSDOpenReply{Status: errno(err)}

		return ok(reply.Encode(nil))
	}

	r.mu.Lock()

	r.nextHandle++
	if r.nextHandle == 0 {
		r.nextHandle++
	}

	handle := r.nextHandle
	r.handles[handle] = file

	r.mu.Unlock()

	return ok(proto.FSDOpenReply{Handle: handle}.Encode(nil))
}

func openFlags(flags uint32) int {
	var mode int

	switch {
	case flags&proto.FSDOpenWrite != 0 && flags&proto.FSDOpenRead != 0:
		mode = os.O_RDWR
	case flags&proto.FSDOpenWrite != 0:
		mode = os.O_WRONLY
	default:
		mode = os.O_RDONLY
	}

	if flags&proto.FSDOpenCreate != 0 {
		mode |= os.O_CREATE
	}

	if flags&proto.FSDOpenTruncate != 0 {
		mode |= os.O_TRUNC
	}

	if flags&proto.FSDOpenAppend != 0 {
		mode |= os.O_APPEND
	}

	return mode
}

func (r *Redirector) closeCmd(payload []byte) (proto.Status, []byte, error) {
	if len(payload) < 4 {
		return proto.StatusError, nil, proto.ErrShortPayload
	}

	handle := binary.LittleEndian.Uint32(payload)

	r.mu.Lock()
	file, found := r.handles[handle]
	delete(r.handles, handle)
	r.mu.Unlock()

	if !found {
		return ok(statusReply(uint32(unix.EBADF)))
	}

	_ = file.Close()

	return ok(statusReply(0))
}

func (r *Redirector) lookup(handle uint32) (*os.File, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, found := r.handles[handle]

	return file, found
}

func (r *Redirector) read(payload []byte) (proto.Status, []byte, error) {
	req, err := proto.DecodeFSDIORequest(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	file, found := r.lookup(req.Handle)
	if !found {
		reply := proto.FSDIOReply{Status: uint32(unix.EBADF)}

		return ok(reply.Encode(nil))
	}

	count := min(req.Count, proto.FSDMaxRead)
	buf := make([]byte, count)

	n, err := file.ReadAt(buf, int64(req.Offset))
	if err != nil && !errors.Is(err, io.EOF) {
		reply := proto.FSDIOReply{Status: errno(err)}

		return ok(reply.Encode(nil))
	}

	reply := proto.FSDIOReply{Count: uint32(n)}

	return ok(append(reply.Encode(nil), buf[:n]...))
}

func (r *Redirector) write(payload []byte) (proto.Status, []byte, error) {
	req, err := proto.DecodeFSDIORequest(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	data := payload[proto.FSDIORequestSize:]
	if int(req.Count) > len(data) {
		return proto.StatusError, nil, proto.ErrShortPayload
	}

	file, found := r.lookup(req.Handle)
	if !found {
		reply := proto.FSDIOReply{Status: uint32(unix.EBADF)}

		return ok(reply.Encode(nil))
	}

	n, err := file.WriteAt(data[:req.Count], int64(req.Offset))
	if err != nil {
		reply := proto.FSDIOReply{Status: errno(err)}

		return ok(reply.Encode(nil))
	}

	return ok(proto.FSDIOReply{Count: uint32(n)}.Encode(nil))
}

func (r *Redirector) stat(payload []byte) (proto.Status, []byte, error) {
	req, err := proto.DecodeFSDStatRequest(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	path, err := r.resolve(req.Path)
	if err != nil {
		reply := proto.FSDStatReply{Status: errno(err)}

		return ok(reply.Encode(nil))
	}

	info, err := os.Stat(path)
	if err != nil {
		reply := proto.FSDStatReply{Status: errno(err)}

		return ok(reply.Encode(nil))
	}

	mtime := info.ModTime()
	size := uint64(info.Size())

	reply := proto.FSDStatReply{
		SizeLow:  uint32(size),
		SizeHigh: uint32(size >> 32),
		Date: proto.DOSDate(
			mtime.Year(), int(mtime.Month()), mtime.Day(),
		),
		Time: proto.DOSTime(mtime.Hour(), mtime.Minute(), mtime.Second()),
		Attr: dosAttr(info),
	}

	return ok(reply.Encode(nil))
}

func dosAttr(info fs.FileInfo) uint8 {
	var attr uint8

	if info.IsDir() {
		attr |= proto.DOSAttrDirectory
	} else {
		attr |= proto.DOSAttrArchive
	}

	if info.Mode().Perm()&0o200 == 0 {
		attr |= proto.DOSAttrReadOnly
	}

	return attr
}

// pathCmd runs a host operation taking a single translated path.
func (r *Redirector) pathCmd(
	payload []byte,
	op func(path string) error,
) (proto.Status, []byte, error) {
	req, err := proto.DecodeFSDStatRequest(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	path, err := r.resolve(req.Path)
	if err != nil {
		return ok(statusReply(errno(err)))
	}

	return ok(statusReply(errno(op(path))))
}

// rename takes two length prefixed guest paths.
func (r *Redirector) rename(payload []byte) (proto.Status, []byte, error) {
	oldReq, err := proto.DecodeFSDStatRequest(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	rest := payload[2+len(oldReq.Path):]

	newReq, err := proto.DecodeFSDStatRequest(rest)
	if err != nil {
		return proto.StatusError, nil, err
	}

	oldPath, err := r.resolve(oldReq.Path)
	if err != nil {
		return ok(statusReply(errno(err)))
	}

	newPath, err := r.resolve(newReq.Path)
	if err != nil {
		return ok(statusReply(errno(err)))
	}

	return ok(statusReply(errno(os.Rename(oldPath, newPath))))
}

// truncate cuts an open file at the request offset.
func (r *Redirector) truncate(payload []byte) (proto.Status, []byte, error) {
	req, err := proto.DecodeFSDIORequest(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	file, found := r.lookup(req.Handle)
	if !found {
		return ok(statusReply(uint32(unix.EBADF)))
	}

	return ok(statusReply(errno(file.Truncate(int64(req.Offset)))))
}

func (r *Redirector) statfs(payload []byte) (proto.Status, []byte, error) {
	if len(payload) < 1 {
		return proto.StatusError, nil, proto.ErrShortPayload
	}

	r.mu.Lock()
	base, mounted := r.mounts[upper(payload[0])]
	r.mu.Unlock()

	if !mounted {
		reply := proto.FSDStatFSReply{Status: uint32(unix.ENOENT)}

		return ok(reply.Encode(nil))
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(base, &stat); err != nil {
		reply := proto.FSDStatFSReply{Status: errno(err)}

		return ok(reply.Encode(nil))
	}

	reply := proto.FSDStatFSReply{
		TotalClusters:     clampU32(stat.Blocks),
		FreeClusters:      clampU32(stat.Bavail),
		SectorsPerCluster: uint32(stat.Bsize / 512),
		BytesPerSector:    512,
	}

	return ok(reply.Encode(nil))
}

func clampU32(v uint64) uint32 {
	if v > 0xffffffff {
		return 0xffffffff
	}

	return uint32(v)
}

func upper(letter byte) byte {
	if letter >= 'a' && letter <= 'z' {
		return letter - 'a' + 'A'
	}

	return letter
}
