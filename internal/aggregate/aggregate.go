// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package aggregate implements C7, the bucket aggregator: it turns raw
// KV-cache samples into (bucket_ts, var_id) rows at four resolutions and
// folds lower-resolution rows into coarser ones.
package aggregate

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wontakkang/xgtcore/pkg/schema"
)

// classified is the result of classifying one KV sample or bucket row
// value into a numeric contribution (or not) plus a type tag.
type classified struct {
	Numeric   float64
	IsNumeric bool
	Type      schema.ValueType
}

// classifySample classifies one KV sample for accumulation:
// bool -> 0/1 tagged "bool"; int/float -> numeric as-is; numeric strings
// classified accordingly; JSON-encoded primitives decoded recursively;
// non-numeric strings keep count at 0 and only carry the "str" tag.
func classifySample(s schema.Sample) classified {
	return classifyAny(s.Value, s.Type)
}

func classifyAny(v any, hint schema.ValueType) classified {
	switch val := v.(type) {
	case bool:
		n := 0.0
		if val {
			n = 1
		}
		return classified{Numeric: n, IsNumeric: true, Type: schema.ValueBool}
	case int:
		return classified{Numeric: float64(val), IsNumeric: true, Type: schema.ValueInt}
	case int8:
		return classified{Numeric: float64(val), IsNumeric: true, Type: schema.ValueInt}
	case int16:
		return classified{Numeric: float64(val), IsNumeric: true, Type: schema.ValueInt}
	case int32:
		return classified{Numeric: float64(val), IsNumeric: true, Type: schema.ValueInt}
	case int64:
		return classified{Numeric: float64(val), IsNumeric: true, Type: schema.ValueInt}
	case uint:
		return classified{Numeric: float64(val), IsNumeric: true, Type: schema.ValueInt}
	case uint8:
		return classified{Numeric: float64(val), IsNumeric: true, Type: schema.ValueInt}
	case uint16:
		return classified{Numeric: float64(val), IsNumeric: true, Type: schema.ValueInt}
	case uint32:
		return classified{Numeric: float64(val), IsNumeric: true, Type: schema.ValueInt}
	case uint64:
		return classified{Numeric: float64(val), IsNumeric: true, Type: schema.ValueInt}
	case float32:
		return classified{Numeric: float64(val), IsNumeric: true, Type: schema.ValueFloat}
	case float64:
		return classified{Numeric: val, IsNumeric: true, Type: schema.ValueFloat}
	case string:
		return classifyString(val, hint)
	case nil:
		return classified{Type: schema.ValueNull}
	default:
		if hint != "" {
			return classified{Type: hint}
		}
		return classified{Type: schema.ValueStr}
	}
}

// classifyString handles the "numeric string" and "JSON-encoded
// primitive" cases.
func classifyString(s string, hint schema.ValueType) classified {
	trimmed := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return classified{Numeric: float64(i), IsNumeric: true, Type: schema.ValueInt}
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return classified{Numeric: f, IsNumeric: true, Type: schema.ValueFloat}
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		if _, isString := decoded.(string); !isString {
			return classifyAny(decoded, hint)
		}
	}
	return classified{Type: schema.ValueStr}
}

// floorBucket floors t, interpreted in tz, to the start of the bucket
// named by res. Bucket boundaries are always computed in the configured
// local timezone, never in the instant's own zone.
func floorBucket(t time.Time, tz *time.Location, res schema.Resolution) time.Time {
	t = t.In(tz)
	y, mo, d := t.Date()
	h, mi, _ := t.Clock()
	switch res {
	case schema.TwoMinute:
		mi -= mi % 2
	case schema.TenMinute:
		mi -= mi % 10
	case schema.Hourly:
		mi = 0
	case schema.Daily:
		h, mi = 0, 0
	}
	return time.Date(y, mo, d, h, mi, 0, 0, tz)
}

// bucketWidth returns the wall-clock span one bucket of res covers.
func bucketWidth(res schema.Resolution) time.Duration {
	switch res {
	case schema.TwoMinute:
		return 2 * time.Minute
	case schema.TenMinute:
		return 10 * time.Minute
	case schema.Hourly:
		return time.Hour
	case schema.Daily:
		return 24 * time.Hour
	default:
		return 0
	}
}

// accumulator folds one or more numeric contributions toward a single
// (client_id, var_id) output row.
type accumulator struct {
	clientID, groupID int64
	min, max, sum     float64
	count             int64
	typ               schema.ValueType
}

func newAccumulator() *accumulator {
	return &accumulator{min: math.MaxFloat64, max: -math.MaxFloat64}
}

// addNumeric folds in one numeric sample (2-min job, from the KV cache).
func (a *accumulator) addNumeric(v float64) {
	a.count++
	a.sum += v
	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}
}

// addRow folds in one already-aggregated BucketRow (higher-res jobs).
func (a *accumulator) addRow(row schema.BucketRow) {
	if row.Count == 0 {
		return
	}
	a.count += row.Count
	a.sum += row.SumValue
	if row.MinValue < a.min {
		a.min = row.MinValue
	}
	if row.MaxValue > a.max {
		a.max = row.MaxValue
	}
}

// groupByVar partitions rows by var_id, preserving row order within a
// group.
func groupByVar(rows []schema.BucketRow) map[int64][]schema.BucketRow {
	out := make(map[int64][]schema.BucketRow)
	for _, r := range rows {
		out[r.VarID] = append(out[r.VarID], r)
	}
	return out
}
