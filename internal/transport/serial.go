// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package transport

import (
	"context"
	"time"

	"go.bug.st/serial"

	"github.com/wontakkang/xgtcore/internal/mcuproto"
	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// SerialConfig configures one MCU serial port and its handshake/session
// parameters.
type SerialConfig struct {
	Port     string
	Baud     int
	DataBits int
	Parity   serial.Parity
	StopBits serial.StopBits

	// NodeSerial is the 8-byte serial number NODE_SELECT_REQ carries.
	NodeSerial [8]byte
	// ResponseTimeout bounds NODE_SELECT_RES (default 3s).
	ResponseTimeout time.Duration
	// FirmwareResponseTimeout is the shorter deadline used between
	// firmware update chunks (default 100ms).
	FirmwareResponseTimeout time.Duration

	Algorithm     mcuproto.ChecksumAlgorithm
	MaxPacketSize int
}

func (c SerialConfig) mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: c.Baud,
		DataBits: c.DataBits,
		Parity:   c.Parity,
		StopBits: c.StopBits,
	}
}

// SerialConn is the MCU transport: a single open port reused across a
// command batch, with a per-batch NODE_SELECT handshake. The port is
// opened fresh for each batch by the caller (see Open) and closed when
// the batch ends.
type SerialConn struct {
	cfg  SerialConfig
	port serial.Port
	buf  []byte // unconsumed bytes from the last Read, scanned greedily
}

// Open opens the serial port and performs the node-select handshake.
// If the handshake does not complete within cfg.ResponseTimeout (or the
// device replies with something other than NODE_SELECT_RES), the
// session is unusable and the port is closed before returning the error.
func Open(ctx context.Context, cfg SerialConfig) (*SerialConn, error) {
	p, err := serial.Open(cfg.Port, cfg.mode())
	if err != nil {
		return nil, xgterrors.NewConnection(cfg.Port, err)
	}
	sc := &SerialConn{cfg: cfg, port: p}

	timeout := cfg.ResponseTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	req, err := mcuproto.BuildNodeSelectReq(cfg.NodeSerial, cfg.Algorithm)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	if err := sc.Write(ctx, req); err != nil {
		_ = sc.Close()
		return nil, err
	}

	raw, err := sc.Read(ctx, timeout)
	if err != nil {
		_ = sc.Close()
		return nil, err
	}
	pdu, _, err := mcuproto.Decode(raw, cfg.Algorithm)
	if err != nil || !mcuproto.IsNodeSelectAck(pdu) {
		_ = sc.Close()
		return nil, xgterrors.NewProtocol(cfg.Port, int(mcuproto.CmdNAK))
	}
	return sc, nil
}

// Write sends frame in full.
func (s *SerialConn) Write(ctx context.Context, frame []byte) error {
	if s.port == nil {
		return xgterrors.NewConnection(s.cfg.Port, nil)
	}
	if _, err := s.port.Write(frame); err != nil {
		return xgterrors.NewConnection(s.cfg.Port, err)
	}
	return nil
}

// Read scans for one complete MCU frame within timeout: scan for start
// byte, read header, compute expected length, bound by MaxPacketSize,
// verify checksum. An idle timeout with no frame found returns an empty
// buffer without error.
func (s *SerialConn) Read(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if s.port == nil {
		return nil, xgterrors.NewConnection(s.cfg.Port, nil)
	}
	_ = s.port.SetReadTimeout(timeout)

	maxPacket := s.cfg.MaxPacketSize
	if maxPacket <= 0 {
		maxPacket = 1024
	}

	deadline := time.Now().Add(timeout)
	chunk := make([]byte, 256)
	for {
		frames, consumed := mcuproto.ScanFrames(s.buf, s.cfg.Algorithm, maxPacket)
		if consumed > 0 {
			s.buf = s.buf[consumed:]
		}
		if len(frames) > 0 {
			return reencode(frames[0], s.cfg.Algorithm)
		}

		if time.Now().After(deadline) {
			return nil, nil // idle timeout: empty buffer, no error
		}
		n, err := s.port.Read(chunk)
		if err != nil {
			return nil, xgterrors.NewConnection(s.cfg.Port, err)
		}
		if n == 0 {
			continue
		}
		s.buf = append(s.buf, chunk[:n]...)
	}
}

// reencode turns a decoded PDU back into wire bytes so callers that
// expect raw frames (e.g. the transaction manager's Decode hook) see a
// consistent shape regardless of how many bytes of noise preceded it on
// the wire.
func reencode(pdu *mcuproto.PDU, algo mcuproto.ChecksumAlgorithm) ([]byte, error) {
	return mcuproto.Encode(pdu.Command, pdu.Data, algo)
}

// Close closes the port, ending the session: the port is closed when
// the command batch ends.
func (s *SerialConn) Close() error {
	if s.port == nil {
		return nil
	}
	log.Debugf("transport: closing serial port %s", s.cfg.Port)
	err := s.port.Close()
	s.port = nil
	return err
}

// ParseParity turns a config string ("n"/"e"/"o"/"m"/"s", case
// insensitive) into a go.bug.st/serial Parity, defaulting to NoParity
// for an empty string.
func ParseParity(s string) (serial.Parity, error) {
	switch s {
	case "", "n", "N":
		return serial.NoParity, nil
	case "e", "E":
		return serial.EvenParity, nil
	case "o", "O":
		return serial.OddParity, nil
	case "m", "M":
		return serial.MarkParity, nil
	case "s", "S":
		return serial.SpaceParity, nil
	default:
		return serial.NoParity, xgterrors.NewValidation("transport.ParseParity", "unknown parity "+s)
	}
}

// ParseStopBits turns a config stop-bit count (1 or 2) into a
// go.bug.st/serial StopBits, defaulting to OneStopBit for 0.
func ParseStopBits(n int) (serial.StopBits, error) {
	switch n {
	case 0, 1:
		return serial.OneStopBit, nil
	case 2:
		return serial.TwoStopBits, nil
	default:
		return serial.OneStopBit, xgterrors.NewValidation("transport.ParseStopBits", "unsupported stop bits")
	}
}
