// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package cmdlog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wontakkang/xgtcore/internal/repository"
	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/schema"
)

// cmdlogDBOnce creates the one database every test in this package
// shares (Connect is sync.Once-guarded), in a directory made with
// os.MkdirTemp since a t.TempDir() is removed when its test ends.
var cmdlogDBOnce sync.Once

func setupCmdLogTest(t *testing.T) *Logger {
	log.SetLogLevel("info")
	cmdlogDBOnce.Do(func() {
		dir, err := os.MkdirTemp("", "xgtcore-cmdlog-test")
		require.NoError(t, err)
		dbfilepath := filepath.Join(dir, "cmdlog.db")
		require.NoError(t, repository.MigrateDB("sqlite3", dbfilepath))
		repository.Connect("sqlite3", dbfilepath)
	})
	return New()
}

func TestNormalizeJSONIgnoresKeyOrder(t *testing.T) {
	a, err := normalizeJSON([]byte(`{"b":1,"a":2}`))
	require.NoError(t, err)
	b, err := normalizeJSON([]byte(`{"a":2,"b":1}`))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNoteStatusSkipsDuplicate(t *testing.T) {
	l := setupCmdLogTest(t)
	ctx := context.Background()
	status := schema.DetailedStatus{CPUType: "XGI", CPUStatus: "normal", SystemStatus: "RUN"}

	require.NoError(t, l.NoteStatus(ctx, 501, status, 0))
	_, _, updatedAt1, ok, err := l.Repo.GetClientStatus(ctx, 501)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.NoteStatus(ctx, 501, status, 0))
	_, _, updatedAt2, ok, err := l.Repo.GetClientStatus(ctx, 501)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, updatedAt1, updatedAt2, "duplicate status must not refresh updated_at")

	var logCount int
	require.NoError(t, l.Repo.DB.Get(&logCount, `SELECT COUNT(*) FROM socket_client_log WHERE client_id = ?`, 501))
	assert.Equal(t, 1, logCount, "duplicate status must not append a second log row")
}

// Two successive decoded statuses STOP then RUN must append exactly one
// transition row with the message "STOP -> RUN".
func TestNoteStatusRecordsTransition(t *testing.T) {
	l := setupCmdLogTest(t)
	ctx := context.Background()

	require.NoError(t, l.NoteStatus(ctx, 502, schema.DetailedStatus{SystemStatus: "STOP"}, 0))
	require.NoError(t, l.NoteStatus(ctx, 502, schema.DetailedStatus{SystemStatus: "RUN"}, 0))

	raw, _, _, ok, err := l.Repo.GetClientStatus(ctx, 502)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, "RUN")

	var message string
	require.NoError(t, l.Repo.DB.Get(&message,
		`SELECT message FROM socket_client_log WHERE client_id = ? ORDER BY id DESC LIMIT 1`, 502))
	assert.Equal(t, "STOP -> RUN", message)
}

// A status whose JSON is unchanged but whose error_code differs is
// still a transition.
func TestNoteStatusErrorCodeChangeIsTransition(t *testing.T) {
	l := setupCmdLogTest(t)
	ctx := context.Background()
	status := schema.DetailedStatus{SystemStatus: "ERROR"}

	require.NoError(t, l.NoteStatus(ctx, 503, status, 1))
	require.NoError(t, l.NoteStatus(ctx, 503, status, 2))

	_, errCode, _, ok, err := l.Repo.GetClientStatus(ctx, 503)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, errCode)
}

func TestControlValueLifecycle(t *testing.T) {
	setupCmdLogTest(t)
	svc := NewControlService()
	ctx := context.Background()

	id, err := svc.Create(ctx, 1, 42, "0102", "{}")
	require.NoError(t, err)
	require.NoError(t, svc.Transition(ctx, id, schema.ControlPending, schema.ControlSent, "written"))
	require.NoError(t, svc.Transition(ctx, id, schema.ControlSent, schema.ControlAcknowledged, "ack"))
	require.NoError(t, svc.Transition(ctx, id, schema.ControlAcknowledged, schema.ControlCompleted, "done"))
}

func TestControlValueRejectsIllegalTransition(t *testing.T) {
	setupCmdLogTest(t)
	svc := NewControlService()
	ctx := context.Background()

	id, err := svc.Create(ctx, 1, 43, "0102", "{}")
	require.NoError(t, err)

	err = svc.Transition(ctx, id, schema.ControlPending, schema.ControlCompleted, "skip ahead")
	require.Error(t, err)
}
