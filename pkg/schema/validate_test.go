// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigOK(t *testing.T) {
	raw := `{
		"db-driver": "sqlite3",
		"db": "./var/xgt.db",
		"clients": [
			{"host": "192.168.0.10", "port": 2004, "blocks": [{"memory": "%MB", "address": 0, "count": 8}]}
		]
	}`
	err := Validate(Config, strings.NewReader(raw))
	require.NoError(t, err)
}

func TestValidateConfigMissingRequired(t *testing.T) {
	raw := `{"db-driver": "sqlite3"}`
	err := Validate(Config, strings.NewReader(raw))
	assert.Error(t, err)
}

func TestValidateClientConfigBadPort(t *testing.T) {
	raw := `{"host": "x", "port": 999999, "blocks": []}`
	err := Validate(ClientConfig, strings.NewReader(raw))
	assert.Error(t, err)
}
