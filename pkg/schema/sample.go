// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import "fmt"

// ValueType is the type tag carried alongside a KV sample or aggregate row.
type ValueType string

const (
	ValueNull  ValueType = "null"
	ValueBool  ValueType = "bool"
	ValueInt   ValueType = "int"
	ValueFloat ValueType = "float"
	ValueStr   ValueType = "str"
)

// Sample is the value held in the KV cache for one "client_id:var_id" key.
type Sample struct {
	Value any       `json:"value"`
	Type  ValueType `json:"type"`
}

// Key builds the ASCII "client_id:var_id" cache key.
func Key(clientID, varID int64) string {
	return fmt.Sprintf("%d:%d", clientID, varID)
}

// Resolution names one of the four aggregation bucket widths.
type Resolution string

const (
	TwoMinute Resolution = "2min"
	TenMinute Resolution = "10min"
	Hourly    Resolution = "1hour"
	Daily     Resolution = "daily"
)

// Table returns the backing table name for the resolution.
func (r Resolution) Table() string {
	switch r {
	case TwoMinute:
		return "data_2min"
	case TenMinute:
		return "data_10min"
	case Hourly:
		return "data_1hour"
	case Daily:
		return "data_daily"
	default:
		return ""
	}
}

// BucketRow is one (timestamp, var_id) aggregate record, identical in
// shape across all four resolution tables.
type BucketRow struct {
	Timestamp int64     `db:"timestamp" json:"timestamp"`
	ClientID  int64     `db:"client_id" json:"client_id"`
	GroupID   int64     `db:"group_id" json:"group_id"`
	VarID     int64     `db:"var_id" json:"var_id"`
	Value     *float64  `db:"value" json:"value"`
	ValueType ValueType `db:"value_type" json:"value_type"`
	MinValue  float64   `db:"min_value" json:"min_value"`
	MaxValue  float64   `db:"max_value" json:"max_value"`
	AvgValue  float64   `db:"avg_value" json:"avg_value"`
	SumValue  float64   `db:"sum_value" json:"sum_value"`
	Count     int64     `db:"count" json:"count"`
	CreatedAt int64     `db:"created_at" json:"created_at"`
	UpdatedAt int64     `db:"updated_at" json:"updated_at"`
}

// Validate checks that avg = sum/count when count > 0, and that
// min <= avg <= max.
func (b *BucketRow) Validate() error {
	if b.Count > 0 {
		expected := b.SumValue / float64(b.Count)
		if diff := expected - b.AvgValue; diff > 1e-6 || diff < -1e-6 {
			return fmt.Errorf("bucket (%d,%d): avg %.9f != sum/count %.9f", b.Timestamp, b.VarID, b.AvgValue, expected)
		}
		if b.MinValue > b.AvgValue || b.AvgValue > b.MaxValue {
			return fmt.Errorf("bucket (%d,%d): avg %.6f not within [min %.6f, max %.6f]", b.Timestamp, b.VarID, b.AvgValue, b.MinValue, b.MaxValue)
		}
	}
	return nil
}

// ControlState is the lifecycle state of a ControlValue command.
type ControlState string

const (
	ControlPending      ControlState = "pending"
	ControlSent         ControlState = "sent"
	ControlAcknowledged ControlState = "acknowledged"
	ControlCompleted    ControlState = "completed"
	ControlFailed       ControlState = "failed"
)

// ControlValue is a user-initiated command record.
type ControlValue struct {
	ID        int64        `db:"id" json:"id"`
	ClientID  int64        `db:"client_id" json:"client_id"`
	VarID     int64        `db:"var_id" json:"var_id"`
	State     ControlState `db:"state" json:"state"`
	Payload   string       `db:"payload" json:"payload"` // hex
	Response  string       `db:"response" json:"response"` // hex
	Env       string       `db:"env" json:"env"` // JSON environmental snapshot
	CreatedAt int64        `db:"created_at" json:"created_at"`
	UpdatedAt int64        `db:"updated_at" json:"updated_at"`
}

// ControlValueHistory is one state transition of a ControlValue.
type ControlValueHistory struct {
	ID             int64        `db:"id" json:"id"`
	ControlValueID int64        `db:"control_value_id" json:"control_value_id"`
	FromState      ControlState `db:"from_state" json:"from_state"`
	ToState        ControlState `db:"to_state" json:"to_state"`
	Message        string       `db:"message" json:"message"`
	CreatedAt      int64        `db:"created_at" json:"created_at"`
}

// AllowedTransitions enumerates the valid state machine edges.
var AllowedTransitions = map[ControlState][]ControlState{
	ControlPending:      {ControlSent},
	ControlSent:         {ControlAcknowledged, ControlFailed},
	ControlAcknowledged: {ControlCompleted, ControlFailed},
}

// CanTransition reports whether from -> to is a legal ControlValue edge.
func CanTransition(from, to ControlState) bool {
	for _, allowed := range AllowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
