// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package transaction

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// fakeTransport is an in-process Transport double: Write appends a frame
// to a queue that a scripted responder consumes to produce Read results.
type fakeTransport struct {
	mu        sync.Mutex
	writes    [][]byte
	responses [][]byte // one slice per Write call, nil means "time out"
	closed    bool
}

func (f *fakeTransport) Write(_ context.Context, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, frame)
	return nil
}

func (f *fakeTransport) Read(_ context.Context, timeout time.Duration) ([]byte, error) {
	f.mu.Lock()
	idx := len(f.writes) - 1
	var resp []byte
	if idx >= 0 && idx < len(f.responses) {
		resp = f.responses[idx]
	}
	f.mu.Unlock()
	if resp == nil {
		time.Sleep(timeout)
		return nil, xgterrors.NewTimeout("fake", 0)
	}
	return resp, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func buildFrame(invokeID uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, invokeID)
	return b
}

func decodeEcho(frame []byte) (uint16, string, error) {
	if len(frame) < 2 {
		return 0, "", errors.New("short frame")
	}
	return binary.LittleEndian.Uint16(frame), "ok", nil
}

func TestExecuteSucceedsFirstTry(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{buildFrame(1)}}
	mgr := NewManager[string]("fake", ft, 50*time.Millisecond, RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})

	resp, err := mgr.Execute(context.Background(), buildFrame, decodeEcho)
	require.NoError(t, err)
	require.Equal(t, "ok", resp)
	require.Equal(t, StateComplete, mgr.State())
}

func TestExecuteRetriesThenSucceeds(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{nil, buildFrame(2)}}
	mgr := NewManager[string]("fake", ft, 20*time.Millisecond, RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})

	resp, err := mgr.Execute(context.Background(), buildFrame, decodeEcho)
	require.NoError(t, err)
	require.Equal(t, "ok", resp)
	require.Len(t, ft.writes, 2)
}

func TestExecuteExhaustsRetriesAndFails(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{nil, nil, nil}}
	mgr := NewManager[string]("fake", ft, 10*time.Millisecond, RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})

	_, err := mgr.Execute(context.Background(), buildFrame, decodeEcho)
	require.Error(t, err)
	var timeoutErr *xgterrors.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Len(t, ft.writes, 3)
	require.True(t, ft.closed, "transport must be closed after retries are exhausted")
	require.True(t, mgr.Closed())
}

func TestExecuteProtocolErrorIsNotRetried(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{buildFrame(1)}}
	decodeProtocolErr := func(frame []byte) (uint16, string, error) {
		return binary.LittleEndian.Uint16(frame), "", xgterrors.NewProtocol("fake", 7)
	}
	mgr := NewManager[string]("fake", ft, 20*time.Millisecond, RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})

	_, err := mgr.Execute(context.Background(), buildFrame, decodeProtocolErr)
	require.Error(t, err)
	var protoErr *xgterrors.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Len(t, ft.writes, 1, "protocol errors must not trigger a retry")
}

func TestExecuteClosesTransportOnConnectionLoss(t *testing.T) {
	ft := &fakeTransport{}
	writeErr := errors.New("broken pipe")
	failing := &failingWriteTransport{fakeTransport: ft, err: writeErr}
	mgr := NewManager[string]("fake", failing, 10*time.Millisecond, DefaultRetryPolicy)

	_, err := mgr.Execute(context.Background(), buildFrame, decodeEcho)
	require.Error(t, err)
	var connErr *xgterrors.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.True(t, ft.closed)
	require.True(t, mgr.Closed())

	_, err = mgr.Execute(context.Background(), buildFrame, decodeEcho)
	require.Error(t, err)
	require.ErrorAs(t, err, &connErr)
}

type failingWriteTransport struct {
	*fakeTransport
	err error
}

func (f *failingWriteTransport) Write(_ context.Context, _ []byte) error { return f.err }
