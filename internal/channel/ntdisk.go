// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package channel

import (
	"context"
	"log/slog"

	"github.com/risingsunproject/sunpci/internal/proto"
)

// DiskService is the storage emulator surface the NT translation
// needs. Request handles BIOS style disk operations, ScsiCommand runs
// a CD-ROM CDB. The data argument carries write data in, the returned
// slice carries read data out.
type DiskService interface {
	Request(
		ctx context.Context,
		req proto.StorageRequest,
		data []byte,
	) (proto.StorageResponse, []byte)

	ScsiCommand(
		ctx context.Context,
		req proto.ScsiRequest,
		data []byte,
	) (proto.ScsiResponse, []byte)
}

// NTDiskTranslator converts NT guest disk packets into canonical
// storage requests for channels bound to the storage dispatcher.
type NTDiskTranslator struct {
	log      *slog.Logger
	registry *Registry
	disk     DiskService
}

// NewNTDiskTranslator wires the translator onto its registry and
// storage backend.
func NewNTDiskTranslator(
	registry *Registry,
	disk DiskService,
	log *slog.Logger,
) *NTDiskTranslator {
	return &NTDiskTranslator{
		log:      log,
		registry: registry,
		disk:     disk,
	}
}

// Handle translates one NT disk packet arriving on the given channel
// and returns the complete NT format response.
func (t *NTDiskTranslator) Handle(
	ctx context.Context,
	channelID uint32,
	request []byte,
) ([]byte, error) {
	ch, err := t.registry.Lookup(channelID)
	if err != nil {
		return nil, err
	}

	if ch.Dispatcher != proto.DispStorage {
		return nil, ErrWrongDispatcher
	}

	ntReq, err := proto.DecodeNTDiskRequest(request)
	if err != nil {
		return nil, err
	}

	drive, ok := ntReq.BiosDrive()
	if !ok {
		return nil, ErrBadDrive
	}

	extra := request[proto.NTDiskRequestSize:]

	switch ntReq.Command {
	case proto.NTCmdRead, proto.NTCmdWrite:
		return t.transfer(ctx, ntReq, drive, extra)
	case proto.NTCmdGetParams:
		return t.getParams(ctx, ntReq, drive)
	case proto.NTCmdScsi:
		return t.scsi(ctx, ntReq, extra)
	default:
		t.log.Debug("Unknown NT disk command",
			slog.Uint64("command", uint64(ntReq.Command)))

		return errorResponse(ntReq, proto.BiosBadCommand), nil
	}
}

func (t *NTDiskTranslator) transfer(
	ctx context.Context,
	ntReq proto.NTDiskRequest,
	drive uint32,
	extra []byte,
) ([]byte, error) {
	xfer, err := proto.DecodeNTTransfer(extra)
	if err != nil {
		return nil, err
	}

	req := proto.StorageRequest{
		Drive: drive,
		LBALo: xfer.LBA,
		Count: uint32(xfer.Count),
	}

	var writeData []byte

	if ntReq.Command == proto.NTCmdRead {
		req.Command = uint32(proto.StorageRead)
	} else {
		req.Command = uint32(proto.StorageWrite)
		writeData = extra[proto.NTTransferSize:]
	}

	rsp, data := t.disk.Request(ctx, req, writeData)

	if rsp.Status != proto.BiosOK {
		return errorResponse(ntReq, rsp.Status), nil
	}

	ntRsp := proto.NTDiskResponse{
		Command:      ntReq.Command,
		ResponseType: proto.NTRspDiskRead,
		Count:        uint8(rsp.Count),
	}

	buf := ntRsp.Encode(nil)
	if ntReq.Command == proto.NTCmdRead {
		buf = append(buf, data...)
	}

	return buf, nil
}

func (t *NTDiskTranslator) getParams(
	ctx context.Context,
	ntReq proto.NTDiskRequest,
	drive uint32,
) ([]byte, error) {
	req := proto.StorageRequest{
		Drive:   drive,
		Command: uint32(proto.StorageGetParams),
	}

	rsp, data := t.disk.Request(ctx, req, nil)

	if rsp.Status != proto.BiosOK {
		return errorResponse(ntReq, rsp.Status), nil
	}

	ntRsp := proto.NTDiskResponse{
		Command:      ntReq.Command,
		ResponseType: proto.NTRspGetParams,
	}

	return append(ntRsp.Encode(nil), data...), nil
}

func (t *NTDiskTranslator) scsi(
	ctx context.Context,
	ntReq proto.NTDiskRequest,
	extra []byte,
) ([]byte, error) {
	scsiReq, err := proto.DecodeNTScsiRequest(extra)
	if err != nil {
		return nil, err
	}

	req := proto.ScsiRequest{
		CDB:       scsiReq.CDB,
		CDBLen:    uint32(scsiReq.CDBLength),
		Direction: scsiReq.Direction(),
		DataLen:   scsiReq.XferInLen,
	}

	var writeData []byte
	if req.Direction == proto.ScsiDirWrite {
		writeData = extra[proto.NTScsiRequestSize:]
		req.DataLen = scsiReq.XferOutLen
	}

	rsp, data := t.disk.ScsiCommand(ctx, req, writeData)

	ntRsp := proto.NTDiskResponse{
		Command:      ntReq.Command,
		ResponseType: proto.NTRspScsi,
	}

	if rsp.Status != proto.ScsiStatusGood {
		ntRsp.ErrorCode = uint8(proto.BiosUndefined)
		return ntRsp.Encode(nil), nil
	}

	ntRsp.Count = uint8(rsp.DataLen / 512)

	return append(ntRsp.Encode(nil), data...), nil
}

func errorResponse(req proto.NTDiskRequest, status uint32) []byte {
	rsp := proto.NTDiskResponse{
		Command:      req.Command,
		ResponseType: proto.NTRspError,
		ErrorCode:    uint8(status),
	}

	return rsp.Encode(nil)
}
