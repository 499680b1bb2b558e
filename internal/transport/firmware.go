// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/wontakkang/xgtcore/internal/mcuproto"
	"github.com/wontakkang/xgtcore/pkg/log"
)

// PushFirmware implements the firmware update special mode: a
// NODE_SELECT_REQ is issued before each chunk, and the shorter
// cfg.FirmwareResponseTimeout (default 100ms) bounds the ACK/NAK wait
// between chunk writes rather than the normal handshake timeout.
func PushFirmware(ctx context.Context, cfg SerialConfig, chunks mcuproto.FirmwareChunks) error {
	timeout := cfg.FirmwareResponseTimeout
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}

	for i, chunk := range chunks {
		conn, err := Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("firmware chunk %d/%d: node select failed: %w", i+1, len(chunks), err)
		}

		frame, err := mcuproto.EncodeFirmwareChunk(chunk, cfg.Algorithm)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("firmware chunk %d/%d: encode: %w", i+1, len(chunks), err)
		}
		if err := conn.Write(ctx, frame); err != nil {
			_ = conn.Close()
			return fmt.Errorf("firmware chunk %d/%d: write: %w", i+1, len(chunks), err)
		}

		raw, err := conn.Read(ctx, timeout)
		_ = conn.Close()
		if err != nil {
			return fmt.Errorf("firmware chunk %d/%d: ack wait: %w", i+1, len(chunks), err)
		}
		if len(raw) == 0 {
			log.Warnf("firmware chunk %d/%d: no ack within %v, continuing", i+1, len(chunks), timeout)
			continue
		}
		pdu, _, err := mcuproto.Decode(raw, cfg.Algorithm)
		if err != nil {
			return fmt.Errorf("firmware chunk %d/%d: malformed ack: %w", i+1, len(chunks), err)
		}
		if pdu.Command == mcuproto.CmdNAK {
			return fmt.Errorf("firmware chunk %d/%d: device NAK", i+1, len(chunks))
		}
		log.Debugf("firmware chunk %d/%d acknowledged", i+1, len(chunks))
	}
	return nil
}
