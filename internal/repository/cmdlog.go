// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/wontakkang/xgtcore/pkg/schema"
)

// CmdLogRepository persists command_log, socket_client_status,
// socket_client_log, control_value and control_value_history: the
// records C8 produces.
type CmdLogRepository struct {
	DB *sqlx.DB
}

var (
	cmdLogRepoOnce     sync.Once
	cmdLogRepoInstance *CmdLogRepository
)

func GetCmdLogRepository() *CmdLogRepository {
	cmdLogRepoOnce.Do(func() {
		cmdLogRepoInstance = &CmdLogRepository{DB: GetConnection().DB}
	})
	return cmdLogRepoInstance
}

// CommandRecord is one row of command_log: timestamp, user, command
// name, target, payload/response bytes, decoded status, and a message,
// recorded for every emitted command.
type CommandRecord struct {
	Timestamp   int64  `db:"timestamp"`
	User        string `db:"user"`
	Command     string `db:"command"`
	Target      string `db:"target"`
	PayloadHex  string `db:"payload_hex"`
	ResponseHex string `db:"response_hex"`
	Status      string `db:"status"` // "success" | "failure"
	Message     string `db:"message"`
}

// InsertCommand appends one CommandRecord.
func (r *CmdLogRepository) InsertCommand(ctx context.Context, rec CommandRecord) error {
	query, args, err := sq.Insert("command_log").
		Columns("timestamp", "user", "command", "target", "payload_hex", "response_hex", "status", "message").
		Values(rec.Timestamp, rec.User, rec.Command, rec.Target, rec.PayloadHex, rec.ResponseHex, rec.Status, rec.Message).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, args...)
	return err
}

// GetClientStatus fetches the last known decoded status for clientID, or
// ok=false if none has been recorded yet.
func (r *CmdLogRepository) GetClientStatus(ctx context.Context, clientID int64) (detailedStatusJSON string, errorCode int, updatedAt int64, ok bool, err error) {
	row := r.DB.QueryRowxContext(ctx,
		`SELECT detailed_status, error_code, updated_at FROM socket_client_status WHERE client_id = ?`, clientID)
	if scanErr := row.Scan(&detailedStatusJSON, &errorCode, &updatedAt); scanErr != nil {
		return "", 0, 0, false, nil
	}
	return detailedStatusJSON, errorCode, updatedAt, true, nil
}

// UpsertClientStatus replaces the last-known status for clientID.
func (r *CmdLogRepository) UpsertClientStatus(ctx context.Context, clientID int64, detailedStatusJSON string, errorCode int, updatedAt int64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO socket_client_status (client_id, detailed_status, error_code, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(client_id) DO UPDATE SET detailed_status = excluded.detailed_status, error_code = excluded.error_code, updated_at = excluded.updated_at`,
		clientID, detailedStatusJSON, errorCode, updatedAt)
	return err
}

// AppendClientLog appends one SocketClientLog transition row.
func (r *CmdLogRepository) AppendClientLog(ctx context.Context, clientID int64, message string, createdAt int64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO socket_client_log (client_id, message, created_at) VALUES (?, ?, ?)`,
		clientID, message, createdAt)
	return err
}

// InsertControlValue creates a new ControlValue in the Pending state.
func (r *CmdLogRepository) InsertControlValue(ctx context.Context, cv *schema.ControlValue) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO control_value (client_id, var_id, state, payload, response, env, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cv.ClientID, cv.VarID, cv.State, cv.Payload, cv.Response, cv.Env, cv.CreatedAt, cv.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// TransitionControlValue moves a ControlValue to a new state and appends
// a ControlValueHistory row append-only-history
// invariant.
func (r *CmdLogRepository) TransitionControlValue(ctx context.Context, id int64, from, to schema.ControlState, message string, updatedAt int64) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE control_value SET state = ?, updated_at = ? WHERE id = ?`, to, updatedAt, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO control_value_history (control_value_id, from_state, to_state, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, from, to, message, updatedAt); err != nil {
		return err
	}
	return tx.Commit()
}
