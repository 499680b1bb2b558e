// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package mcuproto

import (
	"encoding/binary"
	"math"

	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// BuildNodeSelectReq builds a NODE_SELECT_REQ (0x20) carrying the 8-byte
// serial number that attaches the multi-drop bus to one device.
func BuildNodeSelectReq(serial [8]byte, algo ChecksumAlgorithm) ([]byte, error) {
	return Encode(CmdNodeSelectReq, serial[:], algo)
}

// IsNodeSelectAck reports whether pdu is a successful NODE_SELECT_RES.
func IsNodeSelectAck(pdu *PDU) bool {
	return pdu.Command == CmdNodeSelectRes
}

// BuildDOWrite builds a DO_WRITE (0x33) request: channel then value.
func BuildDOWrite(channel, value uint8, algo ChecksumAlgorithm) ([]byte, error) {
	return Encode(CmdDOWrite, []byte{channel, value}, algo)
}

// BuildDOWriteAll builds a DO_WRITE_ALL (0x44) request for 8 channels.
func BuildDOWriteAll(values [8]uint8, algo ChecksumAlgorithm) ([]byte, error) {
	return Encode(CmdDOWriteAll, values[:], algo)
}

// BuildDIThresholdWrite builds a DI_THRESHOLD_WRITE (0x31) request.
// level must be 0 (18V), 1 (24V) or 2 (39V).
func BuildDIThresholdWrite(level uint8, algo ChecksumAlgorithm) ([]byte, error) {
	if level > 2 {
		return nil, xgterrors.NewValidation("mcuproto.BuildDIThresholdWrite", "level must be 0, 1 or 2")
	}
	return Encode(CmdDIThresholdWrite, []byte{level}, algo)
}

// DOWriteResult is the decoded form of a DO_WRITE acknowledgement,
// mirroring the {"SETUP":{"Digital_Output":{"DO<n>":{"Id":n,"Value":v}}}}
// response shape.
type DOWriteResult struct {
	Channel uint8
	Value   uint8
}

// DecodeDOWriteEcho decodes the channel/value pair carried in DO_WRITE
// data, as laid out by BuildDOWrite and echoed back in an
// acknowledgement.
func DecodeDOWriteEcho(data []byte) (DOWriteResult, error) {
	if len(data) < 2 {
		return DOWriteResult{}, xgterrors.NewFraming("DO_WRITE data too short")
	}
	return DOWriteResult{Channel: data[0], Value: data[1]}, nil
}

// AccelSample is a decoded ACCEL_READ_RES (0x91) payload: two float32
// axes, little-endian.
type AccelSample struct {
	X, Y float32
}

func DecodeAccelRead(data []byte) (AccelSample, error) {
	if len(data) < 8 {
		return AccelSample{}, xgterrors.NewFraming("ACCEL_READ_RES data too short")
	}
	x := math.Float32frombits(binary.LittleEndian.Uint32(data[0:4]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(data[4:8]))
	return AccelSample{X: x, Y: y}, nil
}

// GPSSample is a decoded GPS_READ_RES (0x93) payload:
// hour/minute/second, latitude+hemisphere, altitude+hemisphere, fix flag.
type GPSSample struct {
	Hour, Minute, Second uint8
	Latitude             float64
	South                bool
	Altitude             float64
	West                 bool
	PositionFix          uint8
}

// DecodeGPSRead decodes the fixed 22-byte GPS_READ_RES layout:
// hour(u8) minute(u8) second(u8) latitude(f64) south_flag(u8)
// altitude(f64) west_flag(u8) position_fix(u8), little-endian.
func DecodeGPSRead(data []byte) (GPSSample, error) {
	if len(data) != 22 {
		return GPSSample{}, xgterrors.NewFraming("GPS_READ_RES data must be exactly 22 bytes")
	}
	lat := math.Float64frombits(binary.LittleEndian.Uint64(data[3:11]))
	alt := math.Float64frombits(binary.LittleEndian.Uint64(data[12:20]))
	return GPSSample{
		Hour:        data[0],
		Minute:      data[1],
		Second:      data[2],
		Latitude:    lat,
		South:       data[11] != 0,
		Altitude:    alt,
		West:        data[20] != 0,
		PositionFix: data[21],
	}, nil
}

// FirmwareVersion is a decoded FIRMWARE_VERSION_READ_RES (0xA1) 3-byte
// version triplet.
type FirmwareVersion struct {
	Major, Minor, Patch uint8
}

func DecodeFirmwareVersion(data []byte) (FirmwareVersion, error) {
	if len(data) < 3 {
		return FirmwareVersion{}, xgterrors.NewFraming("FIRMWARE_VERSION_READ_RES data too short")
	}
	return FirmwareVersion{Major: data[0], Minor: data[1], Patch: data[2]}, nil
}

// AnalogSample is one decoded ANALOG_READ_RES channel value.
type AnalogSample struct {
	Channel uint8
	Value   uint16
}

func DecodeAnalogRead(data []byte) (AnalogSample, error) {
	if len(data) < 3 {
		return AnalogSample{}, xgterrors.NewFraming("ANALOG_READ_RES data too short")
	}
	return AnalogSample{Channel: data[0], Value: binary.LittleEndian.Uint16(data[1:3])}, nil
}
