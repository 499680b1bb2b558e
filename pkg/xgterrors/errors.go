// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package xgterrors defines the error taxonomy shared by every subsystem
// of the acquisition core: validation, framing, protocol, timeout,
// connection and consistency errors. Each carries enough
// context (endpoint, code) for the transaction manager to annotate and
// the scheduler to log without needing to re-derive it.
package xgterrors

import "fmt"

// ValidationError: malformed request parameters, unknown data type,
// address out of block bounds, unknown checksum algorithm. Caller-visible;
// never retried.
type ValidationError struct {
	Op  string
	Msg string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validation error in %s: %s", e.Op, e.Msg) }

func NewValidation(op, msg string) *ValidationError { return &ValidationError{Op: op, Msg: msg} }

// FramingError: bad company_id, bad start byte, data_length exceeds
// max_packet_size, checksum mismatch. The frame is discarded and the
// transport continues scanning.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string { return fmt.Sprintf("framing error: %s", e.Reason) }

func NewFraming(reason string) *FramingError { return &FramingError{Reason: reason} }

// ProtocolError: device returned a non-zero error_status or a NAK
// command. Surfaced to the caller with the error code; connection stays
// open.
type ProtocolError struct {
	Endpoint  string
	ErrorCode int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error from %s: code 0x%02X", e.Endpoint, e.ErrorCode)
}

func NewProtocol(endpoint string, code int) *ProtocolError {
	return &ProtocolError{Endpoint: endpoint, ErrorCode: code}
}

// TimeoutError: response did not arrive within the deadline.
// Caller-visible; connection closed after max retries.
type TimeoutError struct {
	Endpoint string
	InvokeID uint16
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for response from %s (invoke_id=%d)", e.Endpoint, e.InvokeID)
}

func NewTimeout(endpoint string, invokeID uint16) *TimeoutError {
	return &TimeoutError{Endpoint: endpoint, InvokeID: invokeID}
}

// ConnectionError: socket/serial open failed, or peer closed mid-frame.
// Retryable only at connect time; mid-session loss fails all pending
// transactions.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error on %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func NewConnection(endpoint string, err error) *ConnectionError {
	return &ConnectionError{Endpoint: endpoint, Err: err}
}

// ConsistencyError: aggregation upsert failed under conflicting
// semantics. Logged and the row is skipped; does not abort the job.
type ConsistencyError struct {
	Msg string
}

func (e *ConsistencyError) Error() string { return fmt.Sprintf("consistency error: %s", e.Msg) }

func NewConsistency(msg string) *ConsistencyError { return &ConsistencyError{Msg: msg} }
