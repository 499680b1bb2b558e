// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package poll

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wontakkang/xgtcore/internal/kvcache"
	"github.com/wontakkang/xgtcore/internal/transaction"
	"github.com/wontakkang/xgtcore/internal/transport"
	"github.com/wontakkang/xgtcore/internal/xgtproto"
	"github.com/wontakkang/xgtcore/pkg/schema"
)

func TestSplitAddressScalar(t *testing.T) {
	memory, address, err := splitAddress("%MB10")
	require.NoError(t, err)
	assert.Equal(t, "%MB", memory)
	assert.Equal(t, 10, address)
}

func TestSplitAddressBit(t *testing.T) {
	memory, address, err := splitAddress("%MX83")
	require.NoError(t, err)
	assert.Equal(t, "%MX", memory)
	assert.Equal(t, 83, address)
}

func TestSplitAddressRejectsNoOffset(t *testing.T) {
	_, _, err := splitAddress("%MB")
	assert.Error(t, err)
}

func TestWordValuesPacksPairs(t *testing.T) {
	got := wordValues([]byte{0x01, 0x02, 0x03, 0x04})
	require.Len(t, got, 2)
	assert.Equal(t, uint16(0x0201), got[0])
	assert.Equal(t, uint16(0x0403), got[1])
}

func TestWordValuesZeroExtendsOddTrailingByte(t *testing.T) {
	got := wordValues([]byte{0xAB})
	require.Len(t, got, 1)
	assert.Equal(t, uint16(0xAB), got[0])
}

// A closed transaction manager (the transport was closed after an
// unrecoverable I/O error) must be usable again after the next
// PollOnce-equivalent call, without the caller rebuilding the client.
func TestEnsureConnectedReconnectsAfterConnectionLoss(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	conn, err := transport.DialTCP(transport.TCPConfig{
		Host:              "127.0.0.1",
		Port:              addr.Port,
		ConnectTimeout:    time.Second,
		RetryForever:      true,
		ReconnectDelay:    time.Millisecond,
		ReconnectDelayMax: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	c := &TCPClient{
		Config:    schema.SocketClientConfig{Host: "127.0.0.1", Port: addr.Port},
		Cache:     kvcache.New(),
		conn:      conn,
		txTimeout: 50 * time.Millisecond,
		retry:     transaction.RetryPolicy{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}
	c.rebuildManager()

	// Force the manager closed the way an unrecoverable I/O error would:
	// close the socket out from under it, then let a write fail.
	require.NoError(t, conn.Close())
	_, err = c.manager.Execute(context.Background(),
		func(uint16) []byte { return []byte{0, 0} },
		func([]byte) (uint16, *xgtproto.Response, error) { return 0, nil, nil },
	)
	require.Error(t, err)
	require.True(t, c.manager.Closed())

	require.NoError(t, c.ensureConnected(context.Background()))
	require.False(t, c.manager.Closed())
}
