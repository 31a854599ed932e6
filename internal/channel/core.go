// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package channel

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// Channel create reply status codes, as the NT guest expects them.
const (
	CreateStatusOK        uint32 = 0
	CreateStatusError     uint32 = 1
	CreateStatusUnknown   uint32 = 2
	CreateStatusExclusive uint32 = 3
	CreateStatusNoSlots   uint32 = 4
)

// DataHandler consumes data frames addressed to a channel and returns
// the response bytes to hand back to the guest.
type DataHandler interface {
	Handle(ctx context.Context, channelID uint32, request []byte) ([]byte, error)
}

// CoreHandler answers guest initiated core dispatcher requests. The
// channel commands operate on the registry, ping and version queries
// are answered directly, data frames go to the installed
// [DataHandler].
type CoreHandler struct {
	log      *slog.Logger
	registry *Registry
	version  uint32
	data     DataHandler
}

// NewCoreHandler returns a handler reporting the given host version.
func NewCoreHandler(
	registry *Registry,
	version uint32,
	log *slog.Logger,
) *CoreHandler {
	return &CoreHandler{
		log:      log,
		registry: registry,
		version:  version,
	}
}

// SetDataHandler installs the consumer of channel data frames. Install
// it before the transport starts serving requests.
func (h *CoreHandler) SetDataHandler(data DataHandler) {
	h.data = data
}

// Handle implements the ipc handler interface.
func (h *CoreHandler) Handle(
	ctx context.Context,
	command uint16,
	payload []byte,
) (proto.Status, []byte, error) {
	switch command {
	case proto.CorePing:
		return proto.StatusSuccess, nil, nil

	case proto.CoreGetVersion:
		reply := proto.CoreInitReply{GuestVersion: h.version}
		return proto.StatusSuccess, reply.Encode(nil), nil

	case proto.CoreChannelCreate:
		return h.channelCreate(payload)

	case proto.CoreChannelDelete:
		return h.channelDelete(payload)

	case proto.CoreChannelBind, proto.CoreChannelUnbind:
		return h.channelBind(payload)

	case proto.CoreChannelData:
		return h.channelData(ctx, payload)

	default:
		return proto.StatusInvalidCommand, nil, nil
	}
}

func (h *CoreHandler) channelCreate(
	payload []byte,
) (proto.Status, []byte, error) {
	req, err := proto.DecodeChannelCreateRequest(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	name := DecodeName(req.Name[:], req.NameLen)

	reply := proto.ChannelCreateReply{}

	ch, err := h.registry.Create(name, req.Flags)
	switch {
	case err == nil:
		reply.ChannelID = ch.ID
		h.log.Info("Channel created",
			slog.String("name", ch.Name),
			slog.Uint64("id", uint64(ch.ID)),
			slog.String("dispatcher", ch.Dispatcher.String()))
	case errors.Is(err, ErrNameUnknown):
		reply.Status = CreateStatusUnknown
		h.log.Warn("Unknown channel requested", slog.String("name", name))
	case errors.Is(err, ErrExclusive):
		reply.Status = CreateStatusExclusive
	case errors.Is(err, ErrNoSlots):
		reply.Status = CreateStatusNoSlots
	default:
		reply.Status = CreateStatusError
	}

	return proto.StatusSuccess, reply.Encode(nil), nil
}

func (h *CoreHandler) channelDelete(
	payload []byte,
) (proto.Status, []byte, error) {
	if len(payload) < 4 {
		return proto.StatusError, nil, proto.ErrShortPayload
	}

	id := binary.LittleEndian.Uint32(payload[0:4])

	if err := h.registry.Delete(id); err != nil {
		return proto.StatusError, nil, nil
	}

	h.log.Info("Channel deleted", slog.Uint64("id", uint64(id)))

	return proto.StatusSuccess, nil, nil
}

// channelData routes a data frame to the installed handler. The
// payload starts with the channel handle, the rest is the channel's
// own request format.
func (h *CoreHandler) channelData(
	ctx context.Context,
	payload []byte,
) (proto.Status, []byte, error) {
	if len(payload) < 4 {
		return proto.StatusError, nil, proto.ErrShortPayload
	}

	if h.data == nil {
		return proto.StatusInvalidCommand, nil, nil
	}

	id := binary.LittleEndian.Uint32(payload[0:4])

	reply, err := h.data.Handle(ctx, id, payload[4:])
	if err != nil {
		return proto.StatusError, nil, err
	}

	return proto.StatusSuccess, reply, nil
}

// channelBind validates the handle. Binding carries no further host
// side state, the guest tracks its own binding.
func (h *CoreHandler) channelBind(
	payload []byte,
) (proto.Status, []byte, error) {
	if len(payload) < 4 {
		return proto.StatusError, nil, proto.ErrShortPayload
	}

	id := binary.LittleEndian.Uint32(payload[0:4])

	if _, err := h.registry.Lookup(id); err != nil {
		return proto.StatusError, nil, nil
	}

	return proto.StatusSuccess, nil, nil
}
