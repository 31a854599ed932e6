// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package clipboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/risingsunproject/sunpci/internal/ipc"
	"github.com/risingsunproject/sunpci/internal/proto"
)

// Transactor issues guest round trips.
type Transactor interface {
	Transact(
		ctx context.Context,
		dispatcher proto.DispatcherID,
		command uint16,
		payload []byte,
		timeout time.Duration,
	) (proto.Status, []byte, error)

	Post(
		dispatcher proto.DispatcherID,
		command uint16,
		payload []byte,
	) (uint32, error)
}

// pullTimeout bounds a guest clipboard query.
const pullTimeout = 2 * time.Second

// Bridge is the clipboard dispatcher endpoint and the host side
// entry point for pushing and pulling content.
type Bridge struct {
	log       *slog.Logger
	provider  Provider
	transport Transactor

	mu     sync.Mutex
	format uint32
	data   []byte
}

// NewBridge returns a clipboard bridge. The provider receives guest
// clipboard updates, the transport carries host initiated transfers.
func NewBridge(
	provider Provider,
	transport Transactor,
	log *slog.Logger,
) *Bridge {
	return &Bridge{
		log:       log,
		provider:  provider,
		transport: transport,
	}
}

// Content returns the last clipboard content received from the guest.
func (b *Bridge) Content() (uint32, []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.format, b.data
}

// Handle implements the ipc handler interface for guest initiated
// clipboard traffic.
func (b *Bridge) Handle(
	_ context.Context,
	command uint16,
	payload []byte,
) (proto.Status, []byte, error) {
	switch command {
	case proto.ClipNotify:
		// Announcement only, the data frame follows.
		return proto.StatusSuccess, nil, nil
	case proto.ClipData:
		return b.store(payload)
	default:
		return proto.StatusInvalidCommand, nil, nil
	}
}

// store keeps guest clipboard content and mirrors text onto the host
// clipboard.
func (b *Bridge) store(payload []byte) (proto.Status, []byte, error) {
	hdr, err := proto.DecodeClipHeader(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	length := min(
		int(hdr.Length), len(payload)-proto.ClipHeaderSize, proto.ClipMaxSize,
	)

	data := make([]byte, length)
	copy(data, payload[proto.ClipHeaderSize:])

	b.mu.Lock()
	b.format = hdr.Format
	b.data = data
	b.mu.Unlock()

	if hdr.Format == proto.ClipFormatText && b.provider != nil {
		if err := b.provider.WriteText(data); err != nil {
			b.log.Debug("Host clipboard not updated",
				slog.Any("error", err),
			)
		}
	}

	return proto.StatusSuccess, nil, nil
}

// Push sends clipboard content to the guest. Empty content is
// rejected, oversized content truncated to the transfer cap.
func (b *Bridge) Push(format uint32, data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}

	if len(data) > proto.ClipMaxSize {
		data = data[:proto.ClipMaxSize]
	}

	hdr := proto.ClipHeader{Format: format, Length: uint32(len(data))}
	payload := append(hdr.Encode(nil), data...)

	_, err := b.transport.Post(proto.DispClipboard, proto.ClipSet, payload)

	return err
}

// PushHost forwards the current host clipboard text to the guest.
func (b *Bridge) PushHost() error {
	if b.provider == nil {
		return ErrUnavailable
	}

	data, err := b.provider.ReadText()
	if err != nil {
		return err
	}

	return b.Push(proto.ClipFormatText, data)
}

// Pull queries the guest clipboard.
func (b *Bridge) Pull(ctx context.Context) (uint32, []byte, error) {
	status, reply, err := b.transport.Transact(
		ctx, proto.DispClipboard, proto.ClipGet, nil, pullTimeout,
	)

	switch {
	case errors.Is(err, &ipc.StatusError{}):
		return 0, nil, ErrGuestDenied
	case err != nil:
		return 0, nil, err
	case status != proto.StatusSuccess:
		return 0, nil, ErrGuestDenied
	}

	hdr, err := proto.DecodeClipHeader(reply)
	if err != nil {
		return 0, nil, err
	}

	length := min(
		int(hdr.Length), len(reply)-proto.ClipHeaderSize, proto.ClipMaxSize,
	)

	return hdr.Format, reply[proto.ClipHeaderSize : proto.ClipHeaderSize+length], nil
}
