// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config holds the process-wide program configuration: defaults
// in Keys, overridden and schema-checked by Init.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/schema"
)

// McuSessionConfig describes one serial MCU endpoint.
type McuSessionConfig struct {
	Name              string `json:"name"`
	Port              string `json:"port"`
	Baud              int    `json:"baud"`
	DataBits          int    `json:"data_bits"`
	Parity            string `json:"parity"`
	StopBits          int    `json:"stop_bits"`
	NodeSerialHex     string `json:"node_serial"`
	ResponseTimeoutMS int    `json:"response_timeout_ms"`
	FirmwareTimeoutMS int    `json:"firmware_timeout_ms"`
	Algorithm         string `json:"checksum_algorithm"`
	MaxPacketSize     int    `json:"max_packet_size"`
	// PollCommands names which MCU reads to issue each polling cycle,
	// e.g. "analog_all", "dio_all", "accel", "gps".
	PollCommands []string `json:"poll_commands"`
}

// ProgramConfig is the top-level configuration document, validated
// against pkg/schema's embedded config.schema.json.
type ProgramConfig struct {
	DBDriver             string                      `json:"db-driver"`
	DB                   string                      `json:"db"`
	LogLevel             string                      `json:"log-level"`
	ShutdownGraceSeconds int                         `json:"shutdown-grace-seconds"`
	DBSaveOffsetHours    int                         `json:"db-save-offset-hours"`
	RedisTimeZone        string                      `json:"redis-time-zone"`
	Clients              []schema.SocketClientConfig `json:"clients"`
	McuSessions          []McuSessionConfig          `json:"mcu-sessions"`
	Cron                 schema.CronTrigger          `json:"cron"`
}

// Keys holds the process-wide configuration, seeded with defaults and
// overwritten by Init.
var Keys = ProgramConfig{
	DBDriver:             "sqlite3",
	DB:                   "./var/xgtcore.db",
	LogLevel:             "info",
	ShutdownGraceSeconds: 30,
	DBSaveOffsetHours:    9,
	RedisTimeZone:        "Asia/Seoul",
}

// Init reads flagConfigFile, validates it against the embedded JSON
// Schema, then decodes it over Keys. A missing file is not an error: the
// defaults stand. Unknown fields are rejected by a strict decode.
func Init(flagConfigFile string) {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal(err)
		}
		return
	}

	if err := schema.Validate(schema.Config, bytes.NewReader(raw)); err != nil {
		log.Fatalf("config: validate %s: %v", flagConfigFile, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		log.Fatalf("config: decode %s: %v", flagConfigFile, err)
	}
}

// Location resolves RedisTimeZone into a *time.Location, used by the
// aggregator to floor bucket boundaries in local time.
// An unresolvable zone falls back to UTC rather than aborting startup.
func (c *ProgramConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.RedisTimeZone)
	if err != nil {
		log.Warnf("config: unknown time zone %q, using UTC", c.RedisTimeZone)
		return time.UTC
	}
	return loc
}

// ShutdownGrace returns ShutdownGraceSeconds as a Duration.
func (c *ProgramConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}
