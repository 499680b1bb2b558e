// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package mcuproto

import "github.com/wontakkang/xgtcore/pkg/xgterrors"

// SerialSetup describes a UART sub-channel configuration pushed with
// SERIAL_SETUP (0x70): channel, baud rate code, parity, stop bits, byte
// size.
type SerialSetup struct {
	Channel  uint8
	BaudCode uint8
	Parity   uint8
	StopBits uint8
	ByteSize uint8
}

func BuildSerialSetup(s SerialSetup, algo ChecksumAlgorithm) ([]byte, error) {
	data := []byte{s.Channel, s.BaudCode, s.Parity, s.StopBits, s.ByteSize}
	return Encode(CmdSerialSetup, data, algo)
}

func DecodeSerialSetup(data []byte) (SerialSetup, error) {
	if len(data) < 5 {
		return SerialSetup{}, xgterrors.NewFraming("SERIAL_SETUP data too short")
	}
	return SerialSetup{
		Channel:  data[0],
		BaudCode: data[1],
		Parity:   data[2],
		StopBits: data[3],
		ByteSize: data[4],
	}, nil
}

// BuildSerialWrite wraps a transparent passthrough payload for a
// sub-channel (channel byte followed by raw bytes).
func BuildSerialWrite(channel uint8, payload []byte, algo ChecksumAlgorithm) ([]byte, error) {
	data := append([]byte{channel}, payload...)
	return Encode(CmdSerialWriteReq, data, algo)
}
