// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transaction implements the request/response transaction
// manager shared by the LSIS and MCU transports: invoke-id assignment,
// single-outbound-request-at-a-time serialization, timeout/retry, and
// a transaction state machine (IDLE -> SENDING -> WAITING_FOR_REPLY
// -> {PROCESSING_REPLY -> TRANSACTION_COMPLETE} | {RETRYING -> SENDING} |
// {PROCESSING_ERROR -> TRANSACTION_COMPLETE}).
package transaction

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// State is one node of the transaction state machine.
type State int

const (
	StateIdle State = iota
	StateSending
	StateWaitingForReply
	StateProcessingReply
	StateRetrying
	StateProcessingError
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSending:
		return "SENDING"
	case StateWaitingForReply:
		return "WAITING_FOR_REPLY"
	case StateProcessingReply:
		return "PROCESSING_REPLY"
	case StateRetrying:
		return "RETRYING"
	case StateProcessingError:
		return "PROCESSING_ERROR"
	case StateComplete:
		return "TRANSACTION_COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Transport is the minimal duplex byte-frame channel a transaction
// manager drives. internal/transport provides the LSIS TCP and MCU
// serial implementations.
type Transport interface {
	Write(ctx context.Context, frame []byte) error
	// Read blocks until a frame arrives or timeout elapses. On expiry the
	// TCP transport returns xgterrors.TimeoutError and the serial
	// transport returns an empty frame and no error.
	Read(ctx context.Context, timeout time.Duration) ([]byte, error)
	Close() error
}

// RetryPolicy controls how many times a timed-out transaction is
// resent, and how long to wait between attempts.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

// DefaultRetryPolicy retries twice with exponential backoff starting at
// 100ms, capped at 2s.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 2, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 2 * time.Second}

// Decode turns a raw response frame into an invoke_id and a decoded
// value of type T, or an error. A decode error that is an
// *xgterrors.ProtocolError is treated as a device-reported error:
// non-retryable, connection stays open. Any other error is treated as
// framing noise and the manager keeps waiting for the real reply until
// its deadline.
type Decode[T any] func(frame []byte) (invokeID uint16, resp T, err error)

// Manager serializes transactions over a single Transport: one request
// is outstanding at a time.
type Manager[T any] struct {
	Endpoint  string
	Transport Transport
	Retry     RetryPolicy
	Timeout   time.Duration

	mu     sync.Mutex
	nextID uint32
	closed atomic.Bool
	state  atomic.Int32
}

// NewManager builds a transaction manager bound to transport. timeout is
// the per-attempt response deadline.
func NewManager[T any](endpoint string, transport Transport, timeout time.Duration, retry RetryPolicy) *Manager[T] {
	return &Manager[T]{Endpoint: endpoint, Transport: transport, Retry: retry, Timeout: timeout}
}

func (m *Manager[T]) allocInvokeID() uint16 {
	return uint16(atomic.AddUint32(&m.nextID, 1) % 65536)
}

func (m *Manager[T]) setState(s State) {
	m.state.Store(int32(s))
}

// State reports the transaction manager's current state, mostly useful
// for tests and diagnostics logging.
func (m *Manager[T]) State() State { return State(m.state.Load()) }

// Execute runs one logical transaction to completion: it assigns an
// invoke_id, builds the frame via build, writes it, and waits for a
// matching reply, retrying on timeout per Retry. A ConnectionError from
// the transport closes it and fails this and all future calls.
func (m *Manager[T]) Execute(ctx context.Context, build func(invokeID uint16) []byte, decode Decode[T]) (T, error) {
	var zero T
	if m.closed.Load() {
		return zero, xgterrors.NewConnection(m.Endpoint, nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= m.Retry.MaxRetries; attempt++ {
		invokeID := m.allocInvokeID()
		frame := build(invokeID)

		m.setState(StateSending)
		if err := m.Transport.Write(ctx, frame); err != nil {
			m.failConnection(err)
			return zero, xgterrors.NewConnection(m.Endpoint, err)
		}

		m.setState(StateWaitingForReply)
		resp, err := m.awaitReply(ctx, invokeID, decode)
		if err == nil {
			m.setState(StateProcessingReply)
			m.setState(StateComplete)
			return resp, nil
		}

		if _, isProtocol := err.(*xgterrors.ProtocolError); isProtocol {
			m.setState(StateProcessingError)
			m.setState(StateComplete)
			return zero, err
		}
		if _, isConn := err.(*xgterrors.ConnectionError); isConn {
			m.failConnection(err)
			return zero, err
		}

		lastErr = err
		if attempt < m.Retry.MaxRetries {
			m.setState(StateRetrying)
			log.Warnf("transaction: retrying %s after %v (attempt %d/%d)", m.Endpoint, err, attempt+1, m.Retry.MaxRetries)
			time.Sleep(m.Retry.backoff(attempt))
			continue
		}
	}
	m.setState(StateComplete)
	if lastErr == nil {
		lastErr = xgterrors.NewTimeout(m.Endpoint, 0)
	}
	m.failConnection(lastErr)
	return zero, lastErr
}

// awaitReply reads frames until one decodes with a matching invoke_id,
// the per-attempt deadline expires, or a device error/connection loss
// is reported.
func (m *Manager[T]) awaitReply(ctx context.Context, invokeID uint16, decode Decode[T]) (T, error) {
	var zero T
	deadline := time.Now().Add(m.Timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, xgterrors.NewTimeout(m.Endpoint, invokeID)
		}
		raw, err := m.Transport.Read(ctx, remaining)
		if err != nil {
			return zero, err
		}
		gotID, resp, derr := decode(raw)
		if derr != nil {
			if _, isProtocol := derr.(*xgterrors.ProtocolError); isProtocol {
				return zero, derr
			}
			// framing noise: keep waiting on the same deadline.
			log.Debugf("transaction: discarding unparsable frame from %s: %v", m.Endpoint, derr)
			continue
		}
		if gotID != invokeID {
			log.Debugf("transaction: invoke_id mismatch from %s: want %d got %d", m.Endpoint, invokeID, gotID)
			continue
		}
		return resp, nil
	}
}

func (m *Manager[T]) failConnection(err error) {
	if m.closed.CompareAndSwap(false, true) {
		log.Errorf("transaction: closing %s after unrecoverable I/O error: %v", m.Endpoint, err)
		_ = m.Transport.Close()
	}
}

// Closed reports whether the manager has given up on its transport.
func (m *Manager[T]) Closed() bool { return m.closed.Load() }
