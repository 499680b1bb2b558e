// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package poll wires transaction.Manager, xgtproto/mcuproto and
// decode together into one polling cycle per client/session: read
// every configured block in order, decode its variables, and store
// them in the KV cache. Blocks are read in the declared order within
// one client, which is why TCPClient and McuClient poll their blocks
// in a plain for loop rather than through scheduler.RunConcurrently.
package poll

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/wontakkang/xgtcore/internal/decode"
	"github.com/wontakkang/xgtcore/internal/kvcache"
	"github.com/wontakkang/xgtcore/internal/transaction"
	"github.com/wontakkang/xgtcore/internal/transport"
	"github.com/wontakkang/xgtcore/internal/xgtproto"
	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/schema"
	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// TCPClient polls one LSIS XGT PLC endpoint: its read blocks in
// declared order, each decoded through the MemoryGroup at the same
// index.
type TCPClient struct {
	Config schema.SocketClientConfig
	Cache  *kvcache.Cache

	conn      *transport.TCPConn
	manager   *transaction.Manager[*xgtproto.Response]
	txTimeout time.Duration
	retry     transaction.RetryPolicy
}

// NewTCPClient dials cfg.Host:cfg.Port and builds the transaction
// manager driving it. Reconnection after a connection loss is handled
// internally by PollOnce/PollStatus via ensureConnected, which retries
// the dial with backoff (transport.TCPConn.Reconnect) and rebuilds the
// transaction manager rather than requiring the caller to rebuild the
// client.
func NewTCPClient(cfg schema.SocketClientConfig, cache *kvcache.Cache, connectTimeout, txTimeout time.Duration, retry transaction.RetryPolicy) (*TCPClient, error) {
	conn, err := transport.DialTCP(transport.TCPConfig{
		Host:              cfg.Host,
		Port:              cfg.Port,
		ConnectTimeout:    connectTimeout,
		RetryForever:      true,
		ReconnectDelay:    time.Second,
		ReconnectDelayMax: 30 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	c := &TCPClient{
		Config:    cfg,
		Cache:     cache,
		conn:      conn,
		txTimeout: txTimeout,
		retry:     retry,
	}
	c.rebuildManager()
	return c, nil
}

func (c *TCPClient) rebuildManager() {
	endpoint := fmt.Sprintf("%s:%d", c.Config.Host, c.Config.Port)
	c.manager = transaction.NewManager[*xgtproto.Response](endpoint, c.conn, c.txTimeout, c.retry)
}

// ensureConnected rebuilds the transaction manager around a fresh dial
// when the previous one gave up after a connection loss: a TimeoutError
// or I/O failure closes the connection, and the next scheduled fire for
// the same client reconnects here.
func (c *TCPClient) ensureConnected(ctx context.Context) error {
	if !c.manager.Closed() {
		return nil
	}
	log.Warnf("poll: client %d: reconnecting to %s:%d after prior connection loss", c.Config.ID, c.Config.Host, c.Config.Port)
	if err := c.conn.Reconnect(ctx); err != nil {
		return xgterrors.NewConnection(fmt.Sprintf("%s:%d", c.Config.Host, c.Config.Port), err)
	}
	c.rebuildManager()
	return nil
}

func decodeXGTResponse(frame []byte) (uint16, *xgtproto.Response, error) {
	resp, err := xgtproto.Decode(frame)
	if resp != nil {
		return resp.Header.InvokeID, resp, err
	}
	return 0, nil, err
}

// PollOnce reads every block in c.Config.Blocks, in order, and decodes
// the variables of the MemoryGroup bound to that block index into the
// cache. A decode failure on one variable is logged and skipped so one
// bad variable definition doesn't blank out the rest of the block.
func (c *TCPClient) PollOnce(ctx context.Context) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	for i, block := range c.Config.Blocks {
		resp, err := c.manager.Execute(ctx, func(invokeID uint16) []byte {
			return xgtproto.EncodeReadRequest(xgtproto.ReadRequest{
				InvokeID: invokeID,
				Memory:   block.Memory,
				Address:  block.Address,
				Count:    block.Count,
			})
		}, decodeXGTResponse)
		if err != nil {
			return fmt.Errorf("poll: client %d block %d (%s): %w", c.Config.ID, i, block.FuncName, err)
		}

		if i >= len(c.Config.MemoryGroups) {
			continue
		}
		group := c.Config.MemoryGroups[i]
		for _, v := range group.Variables {
			val, err := decode.Decode(resp.Payload, &group, v)
			if err != nil {
				log.Warnf("poll: client %d var %q: %v", c.Config.ID, v.Name, err)
				continue
			}
			c.Cache.SetClientVar(c.Config.ID, v.ID, val.Number, val.Type)
		}
	}
	return nil
}

// PollStatus issues a system-status request (cmd 0xEF) over the same
// transaction manager used for block reads and returns the decoded
// status, feeding SocketClientStatus/SocketClientLog. It shares the
// polling socket rather than opening a fresh one, unlike the control
// commands in cmd/xgtcored: init/stop/run intentionally use a dedicated
// socket to avoid interleaving with scheduled reads; a status probe is
// itself a scheduled read.
func (c *TCPClient) PollStatus(ctx context.Context) (schema.DetailedStatus, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return schema.DetailedStatus{}, err
	}
	resp, err := c.manager.Execute(ctx, func(invokeID uint16) []byte {
		return xgtproto.EncodeSystemStatusRequest(invokeID)
	}, decodeXGTResponse)
	if err != nil {
		return schema.DetailedStatus{}, err
	}
	return resp.Status, nil
}

// WriteControl issues a single-variable control write and returns once
// the PLC has answered it, or with the error that ended the transaction.
// group must be the variable's own MemoryGroup (not positionally
// resolved, since a control write targets one named variable, not a
// whole read block).
func (c *TCPClient) WriteControl(ctx context.Context, group *schema.MemoryGroup, v *schema.Variable, value float64) error {
	wr, err := decode.EncodeWrite(group, v, value)
	if err != nil {
		return err
	}
	memory, address, err := splitAddress(wr.Address)
	if err != nil {
		return xgterrors.NewValidation("poll.WriteControl", err.Error())
	}
	values := wordValues(wr.Payload)

	_, err = c.manager.Execute(ctx, func(invokeID uint16) []byte {
		return xgtproto.EncodeWriteRequest(xgtproto.WriteRequest{
			InvokeID: invokeID,
			Memory:   memory,
			Address:  address,
			Values:   values,
		})
	}, decodeXGTResponse)
	return err
}

// Close releases the underlying TCP connection.
func (c *TCPClient) Close() error {
	return c.conn.Close()
}

// wordValues packs a byte payload into little-endian uint16 words, the
// unit EncodeWriteRequest's instruction block expects. An odd trailing
// byte (only possible for a 1-byte Sint/Usint write) is zero-extended.
func wordValues(payload []byte) []uint16 {
	out := make([]uint16, 0, (len(payload)+1)/2)
	for i := 0; i < len(payload); i += 2 {
		if i+1 < len(payload) {
			out = append(out, binary.LittleEndian.Uint16(payload[i:i+2]))
		} else {
			out = append(out, uint16(payload[i]))
		}
	}
	return out
}

// splitAddress splits a decoded address like "%MB10" or "%MX83" into
// its memory-type prefix and numeric offset.
func splitAddress(addr string) (memory string, address int, err error) {
	i := len(addr)
	for i > 0 && addr[i-1] >= '0' && addr[i-1] <= '9' {
		i--
	}
	if i == len(addr) {
		return "", 0, fmt.Errorf("address %q has no numeric offset", addr)
	}
	n, err := strconv.Atoi(addr[i:])
	if err != nil {
		return "", 0, err
	}
	return addr[:i], n, nil
}
