// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/wontakkang/xgtcore/internal/repository"
	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/schema"
	"github.com/wontakkang/xgtcore/pkg/xgterrors"
)

// minTenMinSlots is the "≥ 3 ten-minute slots" threshold: below it, an
// hourly/daily job falls back to the 2-min source for that var_id.
const minTenMinSlots = 3

// HigherResAggregator folds a lower-resolution bucket table into
// Resolution, satisfying scheduler.AggregationRunner. One instance per
// resolution (10min, hourly, daily); hourly and daily additionally
// choose their source table per var_id.
type HigherResAggregator struct {
	Repo       *repository.BucketRepository
	Resolution schema.Resolution
	Location   *time.Location
}

func (a *HigherResAggregator) timezone() *time.Location {
	if a.Location != nil {
		return a.Location
	}
	return time.Local
}

// Run reads the appropriate source rows for the bucket containing at,
// folds them per var_id, and upserts one row per var_id into
// Resolution's table.
func (a *HigherResAggregator) Run(ctx context.Context, at time.Time) error {
	bucketStart := floorBucket(at, a.timezone(), a.Resolution)
	bucketEnd := bucketStart.Add(bucketWidth(a.Resolution))

	accs := make(map[int64]*accumulator)
	types := make(map[int64]schema.ValueType)

	fold := func(rows []schema.BucketRow) {
		for _, row := range rows {
			acc, ok := accs[row.VarID]
			if !ok {
				acc = newAccumulator()
				acc.clientID = row.ClientID
				acc.groupID = row.GroupID
				accs[row.VarID] = acc
			}
			types[row.VarID] = row.ValueType
			acc.addRow(row)
		}
	}

	switch a.Resolution {
	case schema.TenMinute:
		rows, err := a.Repo.ReadRange(ctx, schema.TwoMinute, bucketStart.Unix(), bucketEnd.Unix())
		if err != nil {
			return err
		}
		fold(rows)

	case schema.Hourly, schema.Daily:
		tenMinRows, err := a.Repo.ReadRange(ctx, schema.TenMinute, bucketStart.Unix(), bucketEnd.Unix())
		if err != nil {
			return err
		}
		twoMinRows, err := a.Repo.ReadRange(ctx, schema.TwoMinute, bucketStart.Unix(), bucketEnd.Unix())
		if err != nil {
			return err
		}
		tenMinByVar := groupByVar(tenMinRows)
		twoMinByVar := groupByVar(twoMinRows)

		handled := make(map[int64]bool, len(tenMinByVar))
		for varID, rows := range tenMinByVar {
			handled[varID] = true
			if len(rows) >= minTenMinSlots {
				fold(rows)
				continue
			}
			if fallback, ok := twoMinByVar[varID]; ok {
				fold(fallback)
				continue
			}
			fold(rows)
		}
		for varID, rows := range twoMinByVar {
			if handled[varID] {
				continue
			}
			fold(rows)
		}

	default:
		return xgterrors.NewValidation("aggregate.Run", fmt.Sprintf("unsupported target resolution %q", a.Resolution))
	}

	now := time.Now().Unix()
	for varID, acc := range accs {
		row := &schema.BucketRow{
			Timestamp: bucketStart.Unix(),
			ClientID:  acc.clientID,
			GroupID:   acc.groupID,
			VarID:     varID,
			ValueType: types[varID],
			CreatedAt: now,
			UpdatedAt: now,
		}
		if acc.count > 0 {
			row.Count = acc.count
			row.MinValue = acc.min
			row.MaxValue = acc.max
			row.SumValue = acc.sum
			avg := acc.sum / float64(acc.count)
			row.AvgValue = avg
			row.Value = &avg
		}
		if err := a.Repo.Upsert(ctx, a.Resolution, row); err != nil {
			log.Errorf("aggregate: %s upsert var_id=%d failed: %v", a.Resolution, varID, err)
		}
	}
	return nil
}
