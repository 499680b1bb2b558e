// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transport implements the two wire-level connectors: a TCP
// client for LSIS XGT PLCs and a serial client for MCU devices. Both
// satisfy transaction.Transport so a single transaction.Manager can
// drive either.
package transport

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/xgterrors"
	"golang.org/x/time/rate"
)

// TCPConfig configures one LSIS endpoint connector.
type TCPConfig struct {
	Host string
	Port int

	// ConnectTimeout bounds the first synchronous dial attempt.
	ConnectTimeout time.Duration
	// RetryForever makes Reconnect retry with exponential backoff until
	// its ctx is cancelled instead of making a single attempt. It does
	// not apply to DialTCP's first attempt.
	RetryForever bool
	// ReconnectDelay/ReconnectDelayMax bound the exponential backoff.
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
}

func (c TCPConfig) addr() string {
	return net.JoinHostPort(c.Host, portString(c.Port))
}

// TCPConn is the LSIS TCP transport. Frames are length-prefixed: a
// fixed 20-byte header, then `length` more instruction bytes parsed
// out of header offset 14-15 little-endian (the canonical field;
// offset 17-18 is a mirror never trusted).
type TCPConn struct {
	cfg     TCPConfig
	conn    net.Conn
	limiter *rate.Limiter
}

// DialTCP performs the synchronous first connection attempt and returns
// its error if it fails; that attempt is not retried, whatever
// cfg.RetryForever says. Reconnect re-dials an existing TCPConn after a
// connection loss.
func DialTCP(cfg TCPConfig) (*TCPConn, error) {
	t := &TCPConn{cfg: cfg, limiter: rate.NewLimiter(rate.Every(time.Second), 1)}
	if err := t.dial(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TCPConn) dial() error {
	d := net.Dialer{Timeout: t.cfg.ConnectTimeout}
	conn, err := d.Dial("tcp", t.cfg.addr())
	if err != nil {
		return xgterrors.NewConnection(t.cfg.addr(), err)
	}
	t.conn = conn
	return nil
}

// Reconnect retries the connection, honoring ctx cancellation. The rate
// limiter throttles reconnect attempts regardless of the computed
// backoff, guarding against a tight retry loop on a flapping link. If
// cfg.RetryForever is not set, it makes a single rate-limited attempt
// and surfaces that attempt's error instead of looping; otherwise it
// retries with exponential backoff bounded by
// ReconnectDelay/ReconnectDelayMax until ctx is cancelled.
func (t *TCPConn) Reconnect(ctx context.Context) error {
	if !t.cfg.RetryForever {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
		return t.dial()
	}

	delay := t.cfg.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}
	maxDelay := t.cfg.ReconnectDelayMax
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	for {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := t.dial(); err == nil {
			return nil
		} else {
			log.Warnf("transport: reconnect to %s failed: %v", t.cfg.addr(), err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// Write flushes nothing-pending then writes frame in full. The
// connector is required to flush receive and send buffers before each
// transaction; for a TCP stream that is a no-op beyond writing the full
// frame (TCP has no discardable OS-level frame buffer to flush the way a
// UART does), so Write here is exactly that full write.
func (t *TCPConn) Write(ctx context.Context, frame []byte) error {
	if t.conn == nil {
		return xgterrors.NewConnection(t.cfg.addr(), io.ErrClosedPipe)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(dl)
	}
	_, err := t.conn.Write(frame)
	if err != nil {
		return xgterrors.NewConnection(t.cfg.addr(), err)
	}
	return nil
}

// Read reads exactly one LSIS frame: 20 header bytes, then the
// `length` field at offset 14-15 more instruction bytes.
func (t *TCPConn) Read(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if t.conn == nil {
		return nil, xgterrors.NewConnection(t.cfg.addr(), io.ErrClosedPipe)
	}
	_ = t.conn.SetReadDeadline(time.Now().Add(timeout))

	header := make([]byte, 20)
	if _, err := io.ReadFull(t.conn, header); err != nil {
		if isTimeout(err) {
			return nil, xgterrors.NewTimeout(t.cfg.addr(), 0)
		}
		return nil, xgterrors.NewConnection(t.cfg.addr(), err)
	}
	length := binary.LittleEndian.Uint16(header[14:16])

	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(t.conn, body); err != nil {
			if isTimeout(err) {
				return nil, xgterrors.NewTimeout(t.cfg.addr(), 0)
			}
			return nil, xgterrors.NewConnection(t.cfg.addr(), err)
		}
	}
	return append(header, body...), nil
}

// Close closes the underlying socket.
func (t *TCPConn) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func portString(p int) string {
	return strconv.Itoa(p)
}
