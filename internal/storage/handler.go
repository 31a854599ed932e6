// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// Handler adapts the emulator to the storage dispatcher. Guest frames
// carry a fixed request header followed by write data, responses a
// fixed response header followed by read data.
type Handler struct {
	emulator *Emulator
}

// NewHandler returns the dispatcher handler for an emulator.
func NewHandler(emulator *Emulator) *Handler {
	return &Handler{emulator: emulator}
}

// Handle implements the ipc handler interface.
func (h *Handler) Handle(
	ctx context.Context,
	command uint16,
	payload []byte,
) (proto.Status, []byte, error) {
	if command == proto.StorageScsi {
		return h.scsi(ctx, payload)
	}

	req, err := proto.DecodeStorageRequest(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	// The header's command field mirrors the frame command.
	req.Command = uint32(command)

	rsp, data := h.emulator.Request(
		ctx, req, payload[proto.StorageRequestSize:],
	)

	return proto.StatusSuccess, append(rsp.Encode(nil), data...), nil
}

func (h *Handler) scsi(
	ctx context.Context,
	payload []byte,
) (proto.Status, []byte, error) {
	req, err := proto.DecodeScsiRequest(payload)
	if err != nil {
		return proto.StatusError, nil, err
	}

	rsp, data := h.emulator.ScsiCommand(
		ctx, req, payload[proto.ScsiRequestSize:],
	)

	return proto.StatusSuccess, append(rsp.Encode(nil), data...), nil
}
