// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package mcuproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDOWriteAllFramesAllChannels(t *testing.T) {
	values := [8]uint8{1, 0, 1, 0, 1, 0, 1, 0}
	frame, err := BuildDOWriteAll(values, ChecksumXOR)
	require.NoError(t, err)

	pdu, _, err := Decode(frame, ChecksumXOR)
	require.NoError(t, err)
	require.Equal(t, uint8(CmdDOWriteAll), pdu.Command)
	require.Equal(t, values[:], pdu.Data)
}

func TestDecodeDOWriteEcho(t *testing.T) {
	echo, err := DecodeDOWriteEcho([]byte{3, 1})
	require.NoError(t, err)
	require.Equal(t, uint8(3), echo.Channel)
	require.Equal(t, uint8(1), echo.Value)

	_, err = DecodeDOWriteEcho([]byte{3})
	require.Error(t, err)
}

func TestBuildDIThresholdWriteRejectsBadLevel(t *testing.T) {
	_, err := BuildDIThresholdWrite(3, ChecksumXOR)
	require.Error(t, err)
}

func TestDecodeFirmwareVersion(t *testing.T) {
	v, err := DecodeFirmwareVersion([]byte{1, 4, 2})
	require.NoError(t, err)
	require.Equal(t, uint8(1), v.Major)
	require.Equal(t, uint8(4), v.Minor)
	require.Equal(t, uint8(2), v.Patch)

	_, err = DecodeFirmwareVersion([]byte{1, 4})
	require.Error(t, err)
}

func TestSerialSetupRoundTrip(t *testing.T) {
	setup := SerialSetup{Channel: 2, BaudCode: 4, Parity: 1, StopBits: 1, ByteSize: 8}
	frame, err := BuildSerialSetup(setup, ChecksumXOR)
	require.NoError(t, err)

	pdu, _, err := Decode(frame, ChecksumXOR)
	require.NoError(t, err)
	require.Equal(t, uint8(CmdSerialSetup), pdu.Command)

	got, err := DecodeSerialSetup(pdu.Data)
	require.NoError(t, err)
	require.Equal(t, setup, got)
}

func TestBuildSerialWritePrependsChannel(t *testing.T) {
	frame, err := BuildSerialWrite(1, []byte{0xDE, 0xAD}, ChecksumXOR)
	require.NoError(t, err)

	pdu, _, err := Decode(frame, ChecksumXOR)
	require.NoError(t, err)
	require.Equal(t, uint8(CmdSerialWriteReq), pdu.Command)
	require.Equal(t, []byte{0x01, 0xDE, 0xAD}, pdu.Data)
}
