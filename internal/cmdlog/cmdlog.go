// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cmdlog records every command emitted and every status change
// observed, plus the ControlValue command lifecycle: a
// pending -> sent -> acknowledged -> {completed|failed} state machine
// with append-only history.
package cmdlog

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/wontakkang/xgtcore/internal/repository"
	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/schema"
	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// Logger records commands and status transitions against a
// CmdLogRepository: a thin service wrapping one repository handle.
type Logger struct {
	Repo *repository.CmdLogRepository
}

// New builds a Logger over the process-wide CmdLogRepository.
func New() *Logger {
	return &Logger{Repo: repository.GetCmdLogRepository()}
}

// RecordCommand appends one command_log row. payload/response are the
// raw wire bytes; they are hex-encoded before storage.
func (l *Logger) RecordCommand(ctx context.Context, user, command, target string, payload, response []byte, status, message string) error {
	return l.Repo.InsertCommand(ctx, repository.CommandRecord{
		Timestamp:   time.Now().Unix(),
		User:        user,
		Command:     command,
		Target:      target,
		PayloadHex:  hex.EncodeToString(payload),
		ResponseHex: hex.EncodeToString(response),
		Status:      status,
		Message:     message,
	})
}

// NoteStatus compares status against the last recorded DetailedStatus
// for clientID and, only if it actually changed (normalized-JSON plus
// error_code equality), upserts the new status and appends a
// socket_client_log entry describing the transition, e.g. "STOP -> RUN".
// Comparison normalizes both sides by sorted JSON keys first, so
// key-ordering differences never produce a spurious log entry.
func (l *Logger) NoteStatus(ctx context.Context, clientID int64, status schema.DetailedStatus, errorCode int) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return xgterrors.NewValidation("cmdlog.NoteStatus", fmt.Sprintf("marshal status: %v", err))
	}
	normalized, err := normalizeJSON(raw)
	if err != nil {
		return xgterrors.NewValidation("cmdlog.NoteStatus", fmt.Sprintf("normalize status: %v", err))
	}

	message := status.SystemStatus
	prevRaw, prevErrCode, _, ok, err := l.Repo.GetClientStatus(ctx, clientID)
	if err != nil {
		return err
	}
	if ok {
		prevNormalized, err := normalizeJSON([]byte(prevRaw))
		if err == nil && prevNormalized == normalized && prevErrCode == errorCode {
			return nil
		}
		var prev schema.DetailedStatus
		if err := json.Unmarshal([]byte(prevRaw), &prev); err == nil && prev.SystemStatus != "" {
			message = fmt.Sprintf("%s -> %s", prev.SystemStatus, status.SystemStatus)
		}
	}

	now := time.Now().Unix()
	if err := l.Repo.UpsertClientStatus(ctx, clientID, normalized, errorCode, now); err != nil {
		return err
	}
	return l.Repo.AppendClientLog(ctx, clientID, message, now)
}

// normalizeJSON re-encodes raw with every object's keys sorted, so two
// JSON documents that differ only in key order compare equal.
func normalizeJSON(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	out, err := json.Marshal(sortKeys(v))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// sortKeys recursively rebuilds every map, including maps nested in
// slices, inserting its keys in sorted order. The result is still made
// of maps; json.Marshal writes map keys in sorted order.
func sortKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = sortKeys(val[k])
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = sortKeys(e)
		}
		return out
	default:
		return val
	}
}

// ControlService drives the ControlValue state machine: pending -> sent
// -> acknowledged -> {completed|failed}, with every transition appended
// to control_value_history.
type ControlService struct {
	Repo *repository.CmdLogRepository
}

func NewControlService() *ControlService {
	return &ControlService{Repo: repository.GetCmdLogRepository()}
}

// Create inserts a new ControlValue in the Pending state.
func (s *ControlService) Create(ctx context.Context, clientID, varID int64, payloadHex, env string) (int64, error) {
	now := time.Now().Unix()
	cv := &schema.ControlValue{
		ClientID:  clientID,
		VarID:     varID,
		State:     schema.ControlPending,
		Payload:   payloadHex,
		Env:       env,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.Repo.InsertControlValue(ctx, cv)
}

// Transition moves id from from -> to and records the edge in
// control_value_history. Edges not allowed by schema.AllowedTransitions
// are rejected without a history row: an invalid transition is a caller
// bug, surfaced as a ValidationError.
func (s *ControlService) Transition(ctx context.Context, id int64, from, to schema.ControlState, message string) error {
	if !schema.CanTransition(from, to) {
		return xgterrors.NewValidation("cmdlog.Transition", fmt.Sprintf("illegal control value transition %s -> %s", from, to))
	}
	if err := s.Repo.TransitionControlValue(ctx, id, from, to, message, time.Now().Unix()); err != nil {
		log.Errorf("cmdlog: control value %d transition %s->%s failed: %v", id, from, to, err)
		return err
	}
	return nil
}
