// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/schema"
)

// clientConfigDBOnce creates the one database every test in this
// package shares (Connect is sync.Once-guarded), in a directory made
// with os.MkdirTemp since a t.TempDir() is removed when its test ends.
var clientConfigDBOnce sync.Once

func setupClientConfigTest(t *testing.T) *ClientConfigRepository {
	log.SetLogLevel("info")
	clientConfigDBOnce.Do(func() {
		dir, err := os.MkdirTemp("", "xgtcore-clientconfig-test")
		require.NoError(t, err)
		dbfilepath := filepath.Join(dir, "clientconfig.db")
		require.NoError(t, MigrateDB("sqlite3", dbfilepath))
		Connect("sqlite3", dbfilepath)
	})
	return GetClientConfigRepository()
}

func TestClientConfigSaveAndGet(t *testing.T) {
	r := setupClientConfigTest(t)
	cfg := &schema.SocketClientConfig{
		ID:     601,
		Host:   "10.0.0.5",
		Port:   2004,
		IsUsed: true,
		Blocks: []schema.ReadBlock{{Memory: "%MB", Address: 0, Count: 16, FuncName: "read"}},
	}
	require.NoError(t, r.Save(cfg))

	got, err := r.Get(601)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", got.Host)
	assert.Equal(t, 2004, got.Port)
	require.Len(t, got.Blocks, 1)
	assert.Equal(t, "%MB", got.Blocks[0].Memory)
}

func TestClientConfigSaveUpserts(t *testing.T) {
	r := setupClientConfigTest(t)
	cfg := &schema.SocketClientConfig{ID: 602, Host: "10.0.0.6", Port: 2004, IsUsed: false}
	require.NoError(t, r.Save(cfg))

	cfg.Host = "10.0.0.7"
	cfg.IsUsed = true
	require.NoError(t, r.Save(cfg))

	got, err := r.Get(602)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", got.Host)
	assert.True(t, got.IsUsed)
}

func TestClientConfigListUsed(t *testing.T) {
	r := setupClientConfigTest(t)
	require.NoError(t, r.Save(&schema.SocketClientConfig{ID: 603, Host: "a", Port: 1, IsUsed: true}))
	require.NoError(t, r.Save(&schema.SocketClientConfig{ID: 604, Host: "b", Port: 1, IsUsed: false}))

	used, err := r.ListUsed()
	require.NoError(t, err)
	for _, c := range used {
		assert.True(t, c.IsUsed)
	}
}
