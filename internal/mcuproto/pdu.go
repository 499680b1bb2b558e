// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package mcuproto

import (
	"fmt"

	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// StartByte is the fixed frame marker.
const StartByte = 0x7E

// MaxDataLength is the largest data_length a single-byte length field
// can carry, and the clamp the codec enforces on variable-length
// commands (FIRMWARE_VERSION_UPDATE, SERIAL_WRITE).
const MaxDataLength = 255

// Command codes.
const (
	CmdNodeSelectReq         = 0x20
	CmdNodeSelectRes         = 0x21
	CmdDIReadReq             = 0x30
	CmdDIReadRes             = 0x40
	CmdDIThresholdWrite      = 0x31
	CmdDOReadReq             = 0x32
	CmdDOReadRes             = 0x41
	CmdDOWrite               = 0x33
	CmdDOWriteAll            = 0x44
	CmdDIOReadAllReq         = 0x42
	CmdDIOReadAllRes         = 0x43
	CmdAnalogReadReq         = 0x50
	CmdAnalogReadRes         = 0x60
	CmdAnalogReadAllReq      = 0x51
	CmdAnalogReadAllRes      = 0x61
	CmdSerialSetup           = 0x70
	CmdSerialSetupReadReq    = 0x71
	CmdSerialSetupReadRes    = 0x82
	CmdSerialWriteReq        = 0x80
	CmdSerialWriteRes        = 0x81
	CmdAccelReadReq          = 0x90
	CmdAccelReadRes          = 0x91
	CmdGPSReadReq            = 0x92
	CmdGPSReadRes            = 0x93
	CmdFirmwareVersionReq    = 0xA0
	CmdFirmwareVersionRes    = 0xA1
	CmdFirmwareVersionUpdate = 0xA2
	CmdACK                   = 0x24
	CmdNAK                   = 0x23
)

// PDU is a decoded MCU frame.
type PDU struct {
	Command   uint8
	Data      []byte
	Algorithm ChecksumAlgorithm
}

// Encode serializes a PDU: start_byte | command | data_length | data |
// checksum. data_length is derived from len(data); callers must keep it
// at or below MaxDataLength.
func Encode(command uint8, data []byte, algo ChecksumAlgorithm) ([]byte, error) {
	if len(data) > MaxDataLength {
		return nil, xgterrors.NewValidation("mcuproto.Encode", fmt.Sprintf("data_length %d exceeds max %d", len(data), MaxDataLength))
	}
	prefix := make([]byte, 0, 3+len(data))
	prefix = append(prefix, StartByte, command, byte(len(data)))
	prefix = append(prefix, data...)

	chk := Compute(algo, prefix)
	return append(prefix, chk...), nil
}

// Decode parses exactly one frame starting at buf[0] (caller has already
// located the start byte). It returns the PDU and the number of bytes
// consumed, or a FramingError if the checksum fails or the buffer is too
// short.
func Decode(buf []byte, algo ChecksumAlgorithm) (*PDU, int, error) {
	if len(buf) < 3 || buf[0] != StartByte {
		return nil, 0, xgterrors.NewFraming("missing start byte")
	}
	dataLen := int(buf[2])
	total := 3 + dataLen + algo.Width()
	if len(buf) < total {
		return nil, 0, xgterrors.NewFraming("frame shorter than header-declared length")
	}

	prefix := buf[:3+dataLen]
	trailing := buf[3+dataLen : total]
	if !Verify(algo, prefix, trailing) {
		return nil, 0, xgterrors.NewFraming("checksum mismatch")
	}

	pdu := &PDU{
		Command:   buf[1],
		Data:      append([]byte(nil), buf[3:3+dataLen]...),
		Algorithm: algo,
	}
	return pdu, total, nil
}

// ScanFrames greedily scans buf for valid frames, skipping noise bytes
// between a start byte that fails to validate and the next one. It
// returns every frame found and the number of
// bytes consumed from the front of buf (always <= len(buf)); the caller
// should keep buf[consumed:] for the next read.
func ScanFrames(buf []byte, algo ChecksumAlgorithm, maxPacketSize int) (frames []*PDU, consumed int) {
	i := 0
	for i < len(buf) {
		if buf[i] != StartByte {
			i++
			continue
		}
		pdu, n, err := Decode(buf[i:], algo)
		if err != nil {
			// Not enough bytes yet to tell: stop and wait for more data.
			if len(buf)-i < 3 {
				break
			}
			dataLen := int(buf[i+2])
			if 3+dataLen+algo.Width() > maxPacketSize {
				// drop this start byte as noise, resume scanning.
				i++
				continue
			}
			if len(buf)-i < 3+dataLen+algo.Width() {
				break // wait for more bytes
			}
			// checksum mismatch: discard and resume from the next byte.
			i++
			continue
		}
		frames = append(frames, pdu)
		i += n
	}
	return frames, i
}
