// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package mcuproto

import (
	"bytes"

	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// FirmwareChunks is the typed sequence a firmware update is split into.
// A literal ":" delimiter format is supported as a legacy input format
// only; callers should build this directly wherever possible.
type FirmwareChunks [][]byte

// BuildFirmwareChunks splits payload into chunks no larger than
// MaxDataLength, the unit FIRMWARE_VERSION_UPDATE (0xA2) frames carry.
func BuildFirmwareChunks(payload []byte) FirmwareChunks {
	var chunks FirmwareChunks
	for len(payload) > 0 {
		n := MaxDataLength
		if n > len(payload) {
			n = len(payload)
		}
		chunks = append(chunks, payload[:n])
		payload = payload[n:]
	}
	return chunks
}

// ParseLegacyColonChunks parses a legacy literal ":"-delimited firmware
// chunk format. Each resulting chunk is still
// clamped against MaxDataLength; an oversized chunk is a ValidationError
// since the colon split is not expected to produce one on real firmware
// images.
func ParseLegacyColonChunks(raw []byte) (FirmwareChunks, error) {
	parts := bytes.Split(raw, []byte(":"))
	chunks := make(FirmwareChunks, 0, len(parts))
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		if len(p) > MaxDataLength {
			return nil, xgterrors.NewValidation("mcuproto.ParseLegacyColonChunks", "chunk exceeds 255 bytes")
		}
		chunks = append(chunks, p)
	}
	return chunks, nil
}

// EncodeFirmwareChunk builds one FIRMWARE_VERSION_UPDATE (0xA2) frame for
// a single chunk.
func EncodeFirmwareChunk(chunk []byte, algo ChecksumAlgorithm) ([]byte, error) {
	return Encode(CmdFirmwareVersionUpdate, chunk, algo)
}
