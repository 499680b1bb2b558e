// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package decode

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wontakkang/xgtcore/pkg/schema"
)

// u16 LE 123 at offset 0, scale 0.1 -> 12.3.
func TestDecodeScaledWord(t *testing.T) {
	block := []byte{0x7B, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	v := &schema.Variable{
		Name: "temp", Device: "%MB", Address: 0,
		DataType: schema.Int, Unit: schema.UnitWord, Scale: 0.1,
	}
	got, err := Decode(block, nil, v)
	require.NoError(t, err)
	require.Equal(t, schema.ValueFloat, got.Type)
	require.InDelta(t, 12.3, got.Number, 1e-9)
}

func TestDecodeBool(t *testing.T) {
	block := []byte{0b0000_1000}
	v := &schema.Variable{Name: "flag", Device: "%MX", Address: 0.3, DataType: schema.Bool}
	got, err := Decode(block, nil, v)
	require.NoError(t, err)
	require.Equal(t, schema.ValueBool, got.Type)
	require.Equal(t, 1.0, got.Number)
}

func TestDecodeClamp(t *testing.T) {
	block := []byte{0xFF, 0xFF}
	v := &schema.Variable{DataType: schema.Int, Unit: schema.UnitWord, Scale: 1, Min: 0, Max: 100}
	got, err := Decode(block, nil, v)
	require.NoError(t, err)
	require.Equal(t, 0.0, got.Number) // -1 clamped to min 0
}

func TestDecodeOutOfBounds(t *testing.T) {
	block := []byte{0x00}
	v := &schema.Variable{DataType: schema.Int, Unit: schema.UnitWord, Scale: 1, Address: 5}
	_, err := Decode(block, nil, v)
	require.Error(t, err)
}

func TestDecodeGroupBaseAddress(t *testing.T) {
	block := make([]byte, 16)
	block[10] = 0x2A
	group := &schema.MemoryGroup{StartAddress: 10, SizeByte: 16}
	v := &schema.Variable{DataType: schema.Usint, Unit: schema.UnitByte, Scale: 1, Address: 0, UseGroupBaseAddress: true}
	got, err := Decode(block, group, v)
	require.NoError(t, err)
	require.Equal(t, 42.0, got.Number)
}

func TestEncodeWriteScalar(t *testing.T) {
	v := &schema.Variable{Device: "%MB", Address: 2, DataType: schema.Int, Unit: schema.UnitWord, Scale: 0.1}
	res, err := EncodeWrite(nil, v, 12.3)
	require.NoError(t, err)
	require.Equal(t, "%MB2", res.Address)
	require.Equal(t, []byte{123, 0}, res.Payload)
}

func TestEncodeWriteBool(t *testing.T) {
	v := &schema.Variable{Device: "%MB", Address: 1.3, DataType: schema.Bool}
	res, err := EncodeWrite(nil, v, 1)
	require.NoError(t, err)
	require.Equal(t, "%MX11", res.Address)
	require.Equal(t, []byte{1}, res.Payload)
}

func TestEncodeWriteZeroScale(t *testing.T) {
	v := &schema.Variable{DataType: schema.Int, Unit: schema.UnitWord, Scale: 0}
	_, err := EncodeWrite(nil, v, 1)
	require.Error(t, err)
}
