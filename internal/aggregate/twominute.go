// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package aggregate

import (
	"context"
	"time"

	"github.com/wontakkang/xgtcore/internal/kvcache"
	"github.com/wontakkang/xgtcore/internal/repository"
	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/schema"
)

// TwoMinuteAggregator produces data_2min rows directly from the KV
// cache, satisfying scheduler.AggregationRunner: it fans out over a
// snapshot of the cache and upserts one row per key.
type TwoMinuteAggregator struct {
	Cache    *kvcache.Cache
	Repo     *repository.BucketRepository
	Location *time.Location
}

func (a *TwoMinuteAggregator) timezone() *time.Location {
	if a.Location != nil {
		return a.Location
	}
	return time.Local
}

// Run classifies every "client_id:var_id" sample observed at the time of
// the call and upserts one data_2min row per var_id.
func (a *TwoMinuteAggregator) Run(ctx context.Context, at time.Time) error {
	bucketStart := floorBucket(at, a.timezone(), schema.TwoMinute)
	entries := a.Cache.ScanClientVar("*:*")

	accs := make(map[int64]*accumulator)
	types := make(map[int64]schema.ValueType)
	last := make(map[int64]float64)

	for _, e := range entries {
		acc, ok := accs[e.VarID]
		if !ok {
			acc = newAccumulator()
			acc.clientID = e.ClientID
			accs[e.VarID] = acc
		}

		c := classifySample(e.Sample)
		types[e.VarID] = c.Type
		if c.IsNumeric {
			acc.addNumeric(c.Numeric)
			last[e.VarID] = c.Numeric
		}
	}

	now := time.Now().Unix()
	for varID, acc := range accs {
		row := &schema.BucketRow{
			Timestamp: bucketStart.Unix(),
			ClientID:  acc.clientID,
			GroupID:   0,
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
			row.AvgValue = acc.sum / float64(acc.count)
			if v, ok := last[varID]; ok {
				row.Value = &v
			}
		}
		if err := a.Repo.Upsert(ctx, schema.TwoMinute, row); err != nil {
			log.Errorf("aggregate: 2min upsert var_id=%d failed: %v", varID, err)
		}
	}
	return nil
}
