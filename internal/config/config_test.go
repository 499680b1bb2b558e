// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMissingFileKeepsDefaults(t *testing.T) {
	Keys = ProgramConfig{DBDriver: "sqlite3", DB: "./var/xgtcore.db", RedisTimeZone: "Asia/Seoul"}
	Init(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Equal(t, "sqlite3", Keys.DBDriver)
}

func TestInitValidConfig(t *testing.T) {
	const doc = `{
		"db-driver": "sqlite3",
		"db": "./var/test.db",
		"log-level": "debug",
		"shutdown-grace-seconds": 15,
		"clients": [
			{"host": "192.168.0.10", "port": 2004, "blocks": [{"memory": "%MB", "address": 0, "count": 32, "func_name": "read"}]}
		]
	}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	Init(path)
	assert.Equal(t, "debug", Keys.LogLevel)
	assert.Equal(t, 15, Keys.ShutdownGraceSeconds)
	require.Len(t, Keys.Clients, 1)
	assert.Equal(t, "192.168.0.10", Keys.Clients[0].Host)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	c := ProgramConfig{RedisTimeZone: "Not/AZone"}
	assert.Equal(t, "UTC", c.Location().String())
}
