// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package decode implements the address/variable decoder:
// translating a raw byte block read from a PLC into a typed, scaled
// Variable value, and the inverse for control writes.
package decode

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/wontakkang/xgtcore/internal/util"
	"github.com/wontakkang/xgtcore/pkg/schema"
	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// Value is the result of decoding one Variable out of a byte block: a
// scaled, clamped scalar plus the type tag used for KV/aggregate storage.
type Value struct {
	Number float64
	Type   schema.ValueType
}

// Decode extracts variable's value out of block:
//  1. resolve the byte offset (group base address, or not)
//  2. bool -> single bit; otherwise N little-endian bytes per data type
//  3. value = raw * scale
//  4. clamp to [min, max] when min < max (min == max == 0 means "no limit")
func Decode(block []byte, group *schema.MemoryGroup, v *schema.Variable) (Value, error) {
	off, bit := v.AddressParts()
	unitSize := v.Unit.ByteSize()
	byteOffset := off * unitSize
	if v.UseGroupBaseAddress && group != nil {
		byteOffset = int(group.StartAddress) + off*unitSize
	}

	if v.DataType == schema.Bool {
		if byteOffset < 0 || byteOffset >= len(block) {
			return Value{}, xgterrors.NewValidation("decode.Decode", "bool address out of block bounds")
		}
		if bit < 0 || bit > 7 {
			return Value{}, xgterrors.NewValidation("decode.Decode", "bit index out of range [0,7]")
		}
		bitVal := (block[byteOffset] >> uint(bit)) & 1
		return Value{Number: float64(bitVal), Type: schema.ValueBool}, nil
	}

	width := v.DataType.ByteWidth()
	if width == 0 {
		return Value{}, xgterrors.NewValidation("decode.Decode", "unknown data type")
	}
	if byteOffset < 0 || byteOffset+width > len(block) {
		return Value{}, xgterrors.NewValidation("decode.Decode", "address out of block bounds")
	}
	raw := block[byteOffset : byteOffset+width]

	var num float64
	valType := schema.ValueInt
	switch v.DataType {
	case schema.Sint:
		num = float64(int8(raw[0]))
	case schema.Usint:
		num = float64(raw[0])
	case schema.Int:
		num = float64(int16(binary.LittleEndian.Uint16(raw)))
	case schema.Uint:
		num = float64(binary.LittleEndian.Uint16(raw))
	case schema.Dint:
		num = float64(int32(binary.LittleEndian.Uint32(raw)))
	case schema.Udint:
		num = float64(binary.LittleEndian.Uint32(raw))
	case schema.Float:
		num = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))
		valType = schema.ValueFloat
	default:
		return Value{}, xgterrors.NewValidation("decode.Decode", "unknown data type")
	}

	scaled := num * v.Scale
	if v.Scale != 0 && v.Scale != 1 {
		valType = schema.ValueFloat
	}
	scaled = clamp(scaled, v.Min, v.Max)
	return Value{Number: scaled, Type: valType}, nil
}

// clamp applies the "min==max==0 means no limit" rule.
func clamp(value, min, max float64) float64 {
	if min == 0 && max == 0 {
		return value
	}
	if min < max {
		return util.Max(min, util.Min(value, max))
	}
	return value
}

// WriteResult is the (address, payload) pair EncodeWrite produces for a
// control command.
type WriteResult struct {
	Address string
	Payload []byte
}

// EncodeWrite builds the address and little-endian payload for writing
// value to variable. Division by scale mirrors the
// read-side multiplication; scale == 0 is a validation error.
func EncodeWrite(group *schema.MemoryGroup, v *schema.Variable, value float64) (WriteResult, error) {
	off, bit := v.AddressParts()

	if v.DataType == schema.Bool {
		if bit < 0 || bit > 7 {
			return WriteResult{}, xgterrors.NewValidation("decode.EncodeWrite", "bit index out of range [0,7]")
		}
		bv := uint8(0)
		if value != 0 {
			bv = 1
		}
		addr := bitAddress(v.Device, off, bit)
		return WriteResult{Address: addr, Payload: []byte{bv}}, nil
	}

	if v.Scale == 0 {
		return WriteResult{}, xgterrors.NewValidation("decode.EncodeWrite", "scale must not be zero on write")
	}
	raw := clamp(value, v.Min, v.Max) / v.Scale
	if v.DataType != schema.Float {
		raw = math.Round(raw)
	}

	width := v.DataType.ByteWidth()
	if width == 0 {
		return WriteResult{}, xgterrors.NewValidation("decode.EncodeWrite", "unknown data type")
	}
	payload := make([]byte, width)
	switch v.DataType {
	case schema.Sint:
		payload[0] = byte(int8(raw))
	case schema.Usint:
		payload[0] = byte(uint8(raw))
	case schema.Int:
		binary.LittleEndian.PutUint16(payload, uint16(int16(raw)))
	case schema.Uint:
		binary.LittleEndian.PutUint16(payload, uint16(raw))
	case schema.Dint:
		binary.LittleEndian.PutUint32(payload, uint32(int32(raw)))
	case schema.Udint:
		binary.LittleEndian.PutUint32(payload, uint32(raw))
	case schema.Float:
		binary.LittleEndian.PutUint32(payload, math.Float32bits(float32(raw)))
	default:
		return WriteResult{}, xgterrors.NewValidation("decode.EncodeWrite", "unknown data type")
	}

	addr := scalarAddress(v.Device, off)
	return WriteResult{Address: addr, Payload: payload}, nil
}

func scalarAddress(device string, byteOffset int) string {
	return device + strconv.Itoa(byteOffset)
}

// bitAddress builds a single-bit address like "%MX<n>" from a byte
// device prefix like "%MB": the trailing byte-unit
// letter is swapped for the bit-unit letter "X".
func bitAddress(device string, byteOffset, bit int) string {
	prefix := device
	if len(prefix) > 0 && prefix[len(prefix)-1] == 'B' {
		prefix = prefix[:len(prefix)-1] + "X"
	}
	return prefix + strconv.Itoa(byteOffset*8+bit)
}
