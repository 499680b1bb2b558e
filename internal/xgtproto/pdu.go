// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package xgtproto implements the LSIS XGT TCP framing protocol: the
// 20-byte application header plus per-command instruction blocks.
package xgtproto

import (
	"encoding/binary"
	"fmt"

	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// CompanyID is the fixed 8-byte literal tag every frame carries.
var CompanyID = [8]byte{'L', 'S', 'I', 'S', '-', 'X', 'G', 'T'}

// Source-of-frame values.
const (
	SourceRequest  = 0x33
	SourceResponse = 0x11
	SourceSystem   = 0x22
)

// Command codes.
const (
	CmdContinuousReadReq   = 0x54
	CmdContinuousReadResp  = 0x55
	CmdContinuousWriteReq  = 0x58
	CmdContinuousWriteResp = 0x59
	CmdSystemStatus        = 0xEF
)

// HeaderSize is the fixed 20-byte application header length.
const HeaderSize = 20

// Header mirrors the wire layout of the 20-byte application header,
// little-endian.
type Header struct {
	CompanyID     [8]byte
	PLCInfo       uint16
	CPUInfo       uint8
	SourceOfFrame uint8
	InvokeID      uint16
	Length        uint16 // canonical instruction-byte count, offset 14-15
	FenetPosition uint8
	LengthMirror  uint16 // offset 17-18; never trusted, Length is canonical
	BCC           uint8
}

func (h *Header) put(buf []byte) {
	copy(buf[0:8], h.CompanyID[:])
	binary.LittleEndian.PutUint16(buf[8:10], h.PLCInfo)
	buf[10] = h.CPUInfo
	buf[11] = h.SourceOfFrame
	binary.LittleEndian.PutUint16(buf[12:14], h.InvokeID)
	binary.LittleEndian.PutUint16(buf[14:16], h.Length)
	buf[16] = h.FenetPosition
	binary.LittleEndian.PutUint16(buf[17:19], h.Length) // mirror canonical length
	buf[19] = h.BCC
}

func parseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, xgterrors.NewFraming("short header")
	}
	var h Header
	copy(h.CompanyID[:], buf[0:8])
	if h.CompanyID != CompanyID {
		return Header{}, xgterrors.NewFraming(fmt.Sprintf("bad company_id %q", h.CompanyID))
	}
	h.PLCInfo = binary.LittleEndian.Uint16(buf[8:10])
	h.CPUInfo = buf[10]
	h.SourceOfFrame = buf[11]
	h.InvokeID = binary.LittleEndian.Uint16(buf[12:14])
	h.Length = binary.LittleEndian.Uint16(buf[14:16])
	h.FenetPosition = buf[16]
	h.LengthMirror = binary.LittleEndian.Uint16(buf[17:19])
	h.BCC = buf[19]
	return h, nil
}

// ComputeBCC sums the header bytes preceding the BCC field, masked to a
// byte. Target PLCs ignore it on input; we compute it anyway.
func ComputeBCC(buf []byte) uint8 {
	var sum uint8
	for _, b := range buf[:HeaderSize-1] {
		sum += b
	}
	return sum
}

// ReadRequest describes a continuous-read request to build.
type ReadRequest struct {
	InvokeID uint16
	Memory   string // e.g. "%MB"
	Address  int
	Count    int // element count
}

// EncodeReadRequest builds a continuous-read request PDU (cmd 0x54).
func EncodeReadRequest(r ReadRequest) []byte {
	varName := fmt.Sprintf("%s%d", r.Memory, r.Address)
	instr := make([]byte, 0, 16+len(varName))
	instr = appendU16(instr, CmdContinuousReadReq)
	instr = appendU16(instr, 0x14) // ContinuousDataType
	instr = appendU16(instr, 0)    // reserved
	instr = appendU16(instr, 1)    // block_count = 1
	instr = append(instr, byte(len(varName)))
	instr = append(instr, varName...)
	instr = appendU16(instr, uint16(r.Count))

	buf := make([]byte, HeaderSize+len(instr))
	h := Header{
		CompanyID:     CompanyID,
		SourceOfFrame: SourceRequest,
		InvokeID:      r.InvokeID,
		Length:        uint16(len(instr)),
	}
	h.put(buf)
	buf[19] = ComputeBCC(buf)
	copy(buf[HeaderSize:], instr)
	return buf
}

// EncodeSystemStatusRequest builds a system-status request PDU (cmd
// 0xEF) carrying no instruction payload beyond the command code itself;
// the PLC's reply fills PLC_info/CPU_info, decoded by
// DecodeDetailedStatus.
func EncodeSystemStatusRequest(invokeID uint16) []byte {
	instr := appendU16(nil, CmdSystemStatus)
	buf := make([]byte, HeaderSize+len(instr))
	h := Header{
		CompanyID:     CompanyID,
		SourceOfFrame: SourceSystem,
		InvokeID:      invokeID,
		Length:        uint16(len(instr)),
	}
	h.put(buf)
	buf[19] = ComputeBCC(buf)
	copy(buf[HeaderSize:], instr)
	return buf
}

// WriteRequest describes a continuous-write request to build. Only
// block_count=1 is exercised by current callers; the codec still
// supports encoding a single block.
type WriteRequest struct {
	InvokeID uint16
	Memory   string
	Address  int
	Values   []uint16 // one u16 per data element
}

// EncodeWriteRequest builds a continuous-write request PDU (cmd 0x58).
func EncodeWriteRequest(r WriteRequest) []byte {
	varName := fmt.Sprintf("%s%d", r.Memory, r.Address)
	instr := make([]byte, 0, 16+len(varName)+2*len(r.Values))
	instr = appendU16(instr, CmdContinuousWriteReq)
	instr = appendU16(instr, 0x14)
	instr = appendU16(instr, 0)
	instr = appendU16(instr, 1) // block_count = 1
	instr = append(instr, byte(len(varName)))
	instr = append(instr, varName...)
	instr = appendU16(instr, uint16(len(r.Values)))
	for _, v := range r.Values {
		instr = appendU16(instr, v)
	}

	buf := make([]byte, HeaderSize+len(instr))
	h := Header{
		CompanyID:     CompanyID,
		SourceOfFrame: SourceRequest,
		InvokeID:      r.InvokeID,
		Length:        uint16(len(instr)),
	}
	h.put(buf)
	buf[19] = ComputeBCC(buf)
	copy(buf[HeaderSize:], instr)
	return buf
}

// Response is the decoded form of any LSIS response PDU.
type Response struct {
	Header    Header
	Command   uint16
	IsError   bool
	ErrorCode uint8

	// Continuous-read response fields.
	DataType   uint16
	BlockCount uint16
	DataCount  uint16
	Payload    []byte

	// System status response fields (valid when Command == CmdSystemStatus).
	Status DetailedStatus
}

// Decode parses a full LSIS response frame (header + instruction block).
// It validates company_id and treats a command code with a 0xFF high
// byte as an error response: the next byte is the error code and
// parsing stops there.
func Decode(buf []byte) (*Response, error) {
	h, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}
	if int(h.Length)+HeaderSize > len(buf) {
		return nil, xgterrors.NewFraming("instruction block shorter than header length field")
	}
	instr := buf[HeaderSize : HeaderSize+int(h.Length)]
	resp := &Response{Header: h}

	if len(instr) < 2 {
		return nil, xgterrors.NewFraming("instruction block too short for command code")
	}
	cmd := binary.LittleEndian.Uint16(instr[0:2])
	if cmd&0xFF00 == 0xFF00 {
		resp.IsError = true
		if len(instr) < 3 {
			return nil, xgterrors.NewFraming("error response missing error code byte")
		}
		resp.ErrorCode = instr[2]
		resp.Command = cmd
		return resp, xgterrors.NewProtocol(fmt.Sprintf("invoke_id=%d", h.InvokeID), int(resp.ErrorCode))
	}

	resp.Command = cmd
	switch cmd {
	case CmdContinuousReadResp:
		if len(instr) < 12 {
			return nil, xgterrors.NewFraming("continuous-read response truncated")
		}
		resp.DataType = binary.LittleEndian.Uint16(instr[2:4])
		resp.BlockCount = binary.LittleEndian.Uint16(instr[8:10])
		resp.DataCount = binary.LittleEndian.Uint16(instr[10:12])
		end := 12 + int(resp.DataCount)
		if end > len(instr) {
			return nil, xgterrors.NewFraming("continuous-read payload shorter than data_count")
		}
		resp.Payload = instr[12:end]
	case CmdContinuousWriteResp:
		// Acknowledged write; no payload to extract beyond the command code.
	case CmdSystemStatus:
		resp.Status = DecodeDetailedStatus(h.PLCInfo, h.CPUInfo)
		log.Debugf("xgtproto: system status from invoke_id=%d cpu series %s: %+v", h.InvokeID, CPUSeriesName(h.CPUInfo), resp.Status)
	default:
		return nil, xgterrors.NewFraming(fmt.Sprintf("unknown command code 0x%04X", cmd))
	}
	return resp, nil
}

func appendU16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}
