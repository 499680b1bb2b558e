// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/wontakkang/xgtcore/internal/kvcache"
	"github.com/wontakkang/xgtcore/internal/mcuproto"
	"github.com/wontakkang/xgtcore/internal/transport"
	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/schema"
	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// mcuRequest is one named poll command: the wire command code to send
// (with no data) and how to decode its response into cache samples.
type mcuRequest struct {
	name   string
	cmd    uint8
	decode func(clientID int64, cache *kvcache.Cache, data []byte) error
}

var mcuRequests = map[string]mcuRequest{
	"dio_all": {name: "dio_all", cmd: mcuproto.CmdDIOReadAllReq, decode: decodeDIOAll},
	"analog_all": {name: "analog_all", cmd: mcuproto.CmdAnalogReadAllReq, decode: decodeAnalogAll},
	"accel": {name: "accel", cmd: mcuproto.CmdAccelReadReq, decode: decodeAccel},
	"gps": {name: "gps", cmd: mcuproto.CmdGPSReadReq, decode: decodeGPS},
}

func decodeDIOAll(clientID int64, cache *kvcache.Cache, data []byte) error {
	for i, b := range data {
		cache.SetClientVar(clientID, int64(1000+i), float64(b), schema.ValueInt)
	}
	return nil
}

func decodeAnalogAll(clientID int64, cache *kvcache.Cache, data []byte) error {
	for off := 0; off+3 <= len(data); off += 3 {
		s, err := mcuproto.DecodeAnalogRead(data[off : off+3])
		if err != nil {
			return err
		}
		cache.SetClientVar(clientID, int64(2000+int(s.Channel)), float64(s.Value), schema.ValueInt)
	}
	return nil
}

func decodeAccel(clientID int64, cache *kvcache.Cache, data []byte) error {
	s, err := mcuproto.DecodeAccelRead(data)
	if err != nil {
		return err
	}
	cache.SetClientVar(clientID, 3000, float64(s.X), schema.ValueFloat)
	cache.SetClientVar(clientID, 3001, float64(s.Y), schema.ValueFloat)
	return nil
}

func decodeGPS(clientID int64, cache *kvcache.Cache, data []byte) error {
	s, err := mcuproto.DecodeGPSRead(data)
	if err != nil {
		return err
	}
	cache.SetClientVar(clientID, 4000, s.Latitude, schema.ValueFloat)
	cache.SetClientVar(clientID, 4001, s.Altitude, schema.ValueFloat)
	cache.SetClientVar(clientID, 4002, float64(s.PositionFix), schema.ValueInt)
	return nil
}

// McuClient polls one MCU serial session's configured reads, in the
// declared order, over a single SerialConn opened for the batch and
// closed when the batch ends.
type McuClient struct {
	ClientID int64
	Cache    *kvcache.Cache
	Cfg      transport.SerialConfig
	Commands []string
	Timeout  time.Duration
}

// PollOnce opens the serial session, runs the node-select handshake,
// issues every configured command in order, and closes the port.
func (c *McuClient) PollOnce(ctx context.Context) error {
	conn, err := transport.Open(ctx, c.Cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}

	for _, name := range c.Commands {
		req, ok := mcuRequests[name]
		if !ok {
			log.Warnf("poll: mcu session %d: unknown poll command %q", c.ClientID, name)
			continue
		}
		frame, err := mcuproto.Encode(req.cmd, nil, c.Cfg.Algorithm)
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, frame); err != nil {
			return err
		}
		raw, err := conn.Read(ctx, timeout)
		if err != nil {
			return err
		}
		if len(raw) == 0 {
			log.Warnf("poll: mcu session %d: no reply to %q within %v", c.ClientID, name, timeout)
			continue
		}
		pdu, _, err := mcuproto.Decode(raw, c.Cfg.Algorithm)
		if err != nil {
			return err
		}
		if pdu.Command == mcuproto.CmdNAK {
			return xgterrors.NewProtocol(fmt.Sprintf("mcu-session-%d", c.ClientID), int(mcuproto.CmdNAK))
		}
		if err := req.decode(c.ClientID, c.Cache, pdu.Data); err != nil {
			log.Warnf("poll: mcu session %d: decode %q: %v", c.ClientID, name, err)
		}
	}
	return nil
}
