// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind selects which embedded JSON Schema document to validate against.
type Kind int

const (
	// Config validates the top-level program configuration file.
	Config Kind = iota + 1
	// ClientConfig validates one SocketClientConfig entry (host, port,
	// blocks, cron, memory_groups).
	ClientConfig
)

//go:embed schemas/*
var schemaFiles embed.FS

// Load implements the jsonschema.Loaders["embedfs"] indirection so schema
// $refs can point at "embedFS://schemas/..." (url.Parse lowercases the
// scheme, and the URL host is the embedded "schemas" directory).
func Load(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Host + u.Path)
}

func init() {
	jsonschema.Loaders["embedfs"] = Load
}

func compileFor(k Kind) (*jsonschema.Schema, error) {
	switch k {
	case Config:
		return jsonschema.Compile("embedFS://schemas/config.schema.json")
	case ClientConfig:
		return jsonschema.Compile("embedFS://schemas/client-config.schema.json")
	default:
		return nil, fmt.Errorf("schema: unknown kind %d", k)
	}
}

// Validate decodes r as JSON and checks it against the schema for k.
func Validate(k Kind, r io.Reader) error {
	s, err := compileFor(k)
	if err != nil {
		return err
	}

	var v any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return fmt.Errorf("schema.Validate: decode: %w", err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema.Validate: %w", err)
	}
	return nil
}
