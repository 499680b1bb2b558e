// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestParseParity(t *testing.T) {
	cases := map[string]serial.Parity{
		"":  serial.NoParity,
		"n": serial.NoParity,
		"E": serial.EvenParity,
		"o": serial.OddParity,
		"M": serial.MarkParity,
		"s": serial.SpaceParity,
	}
	for in, want := range cases {
		got, err := ParseParity(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseParityRejectsUnknown(t *testing.T) {
	_, err := ParseParity("x")
	assert.Error(t, err)
}

func TestParseStopBits(t *testing.T) {
	cases := map[int]serial.StopBits{
		0: serial.OneStopBit,
		1: serial.OneStopBit,
		2: serial.TwoStopBits,
	}
	for in, want := range cases {
		got, err := ParseStopBits(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseStopBitsRejectsUnsupported(t *testing.T) {
	_, err := ParseStopBits(3)
	assert.Error(t, err)
}
