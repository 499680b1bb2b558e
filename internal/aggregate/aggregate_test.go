// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package aggregate

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wontakkang/xgtcore/internal/kvcache"
	"github.com/wontakkang/xgtcore/internal/repository"
	"github.com/wontakkang/xgtcore/pkg/log"
	"github.com/wontakkang/xgtcore/pkg/schema"
)

// setupAggregateTest opens the process-wide sqlite connection once per
// test binary (Connect is sync.Once-guarded). Because of that, every
// test in this package shares one database, kept in a directory made
// once with os.MkdirTemp (a t.TempDir() is removed when the test that
// made it ends): each test below picks its own hour-long wall-clock
// window and its own var_ids so their rows never overlap.
var aggregateDBOnce sync.Once

func setupAggregateTest(t *testing.T) *repository.BucketRepository {
	log.SetLogLevel("info")
	aggregateDBOnce.Do(func() {
		dir, err := os.MkdirTemp("", "xgtcore-aggregate-test")
		require.NoError(t, err)
		dbfilepath := filepath.Join(dir, "aggregate.db")
		require.NoError(t, repository.MigrateDB("sqlite3", dbfilepath))
		repository.Connect("sqlite3", dbfilepath)
	})
	return repository.GetBucketRepository()
}

func TestTwoMinuteAggregatorClassifiesAndUpserts(t *testing.T) {
	repo := setupAggregateTest(t)
	cache := kvcache.New()
	cache.SetClientVar(1, 1101, 10.0, schema.ValueFloat)
	cache.SetClientVar(1, 1102, true, schema.ValueBool)
	cache.SetClientVar(1, 1103, "idle", schema.ValueStr)

	agg := &TwoMinuteAggregator{Cache: cache, Repo: repo, Location: time.UTC}
	at := time.Date(2026, 7, 29, 10, 6, 30, 0, time.UTC)
	bucketStart := floorBucket(at, time.UTC, schema.TwoMinute)
	require.NoError(t, agg.Run(context.Background(), at))

	rows, err := repo.ReadRange(context.Background(), schema.TwoMinute, bucketStart.Unix(), bucketStart.Unix()+1)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byVar := map[int64]schema.BucketRow{}
	for _, r := range rows {
		byVar[r.VarID] = r
	}

	assert.Equal(t, int64(1), byVar[1101].Count)
	assert.Equal(t, 10.0, byVar[1101].AvgValue)
	assert.Equal(t, schema.ValueFloat, byVar[1101].ValueType)

	assert.Equal(t, int64(1), byVar[1102].Count)
	assert.Equal(t, 1.0, byVar[1102].SumValue)
	assert.Equal(t, schema.ValueBool, byVar[1102].ValueType)

	assert.Equal(t, int64(0), byVar[1103].Count)
	assert.Equal(t, schema.ValueStr, byVar[1103].ValueType)
}

func TestTwoMinuteAggregatorUpsertIsIdempotent(t *testing.T) {
	repo := setupAggregateTest(t)
	cache := kvcache.New()
	cache.SetClientVar(1, 1201, 5.0, schema.ValueFloat)

	agg := &TwoMinuteAggregator{Cache: cache, Repo: repo, Location: time.UTC}
	at := time.Date(2026, 7, 29, 11, 0, 10, 0, time.UTC)
	bucketStart := floorBucket(at, time.UTC, schema.TwoMinute)

	require.NoError(t, agg.Run(context.Background(), at))
	require.NoError(t, agg.Run(context.Background(), at))

	rows, err := repo.ReadRange(context.Background(), schema.TwoMinute, bucketStart.Unix(), bucketStart.Unix()+1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Count)
}

func TestAggregationCascade(t *testing.T) {
	repo := setupAggregateTest(t)
	ctx := context.Background()
	loc := time.UTC
	base := time.Date(2026, 7, 29, 12, 0, 0, 0, loc)
	const varID = 1301

	cache := kvcache.New()
	twoMin := &TwoMinuteAggregator{Cache: cache, Repo: repo, Location: loc}

	values := []float64{10, 12, 8, 14, 6}
	for i, v := range values {
		cache.SetClientVar(1, varID, v, schema.ValueFloat)
		at := base.Add(time.Duration(i*2) * time.Minute)
		require.NoError(t, twoMin.Run(ctx, at))
	}

	tenMin := &HigherResAggregator{Repo: repo, Resolution: schema.TenMinute, Location: loc}
	require.NoError(t, tenMin.Run(ctx, base))

	rows, err := repo.ReadRange(ctx, schema.TenMinute, base.Unix(), base.Add(10*time.Minute).Unix())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(5), rows[0].Count)
	assert.Equal(t, 6.0, rows[0].MinValue)
	assert.Equal(t, 14.0, rows[0].MaxValue)
	assert.Equal(t, 10.0, rows[0].AvgValue)
	assert.Equal(t, 50.0, rows[0].SumValue)

	// Five more synthetic 10-min slots, so six total exist for the hour
	// and the hourly job picks the 10-min source.
	for i := 1; i < 6; i++ {
		slotStart := base.Add(time.Duration(i*10) * time.Minute)
		require.NoError(t, repo.Upsert(ctx, schema.TenMinute, &schema.BucketRow{
			Timestamp: slotStart.Unix(),
			ClientID:  1,
			VarID:     varID,
			ValueType: schema.ValueFloat,
			MinValue:  6,
			MaxValue:  14,
			AvgValue:  10,
			SumValue:  50,
			Count:     5,
			CreatedAt: slotStart.Unix(),
			UpdatedAt: slotStart.Unix(),
		}))
	}

	hourly := &HigherResAggregator{Repo: repo, Resolution: schema.Hourly, Location: loc}
	require.NoError(t, hourly.Run(ctx, base))

	hourlyRows, err := repo.ReadRange(ctx, schema.Hourly, base.Unix(), base.Add(time.Hour).Unix())
	require.NoError(t, err)
	require.Len(t, hourlyRows, 1)
	assert.Equal(t, int64(30), hourlyRows[0].Count)
	assert.Equal(t, 10.0, hourlyRows[0].AvgValue)
}

func TestHigherResAggregatorFallsBackBelowThreeSlots(t *testing.T) {
	repo := setupAggregateTest(t)
	ctx := context.Background()
	loc := time.UTC
	base := time.Date(2026, 7, 29, 13, 0, 0, 0, loc)
	const varID = 1401

	// Only two 10-min slots: below minTenMinSlots, so the hourly job must
	// fall back to the 2-min source for this var_id.
	for i := 0; i < 2; i++ {
		slotStart := base.Add(time.Duration(i*10) * time.Minute)
		require.NoError(t, repo.Upsert(ctx, schema.TenMinute, &schema.BucketRow{
			Timestamp: slotStart.Unix(),
			VarID:     varID,
			ValueType: schema.ValueFloat,
			MinValue:  1,
			MaxValue:  2,
			AvgValue:  1.5,
			SumValue:  3,
			Count:     2,
			CreatedAt: slotStart.Unix(),
			UpdatedAt: slotStart.Unix(),
		}))
	}
	require.NoError(t, repo.Upsert(ctx, schema.TwoMinute, &schema.BucketRow{
		Timestamp: base.Unix(),
		VarID:     varID,
		ValueType: schema.ValueFloat,
		MinValue:  100,
		MaxValue:  100,
		AvgValue:  100,
		SumValue:  100,
		Count:     1,
		CreatedAt: base.Unix(),
		UpdatedAt: base.Unix(),
	}))

	hourly := &HigherResAggregator{Repo: repo, Resolution: schema.Hourly, Location: loc}
	require.NoError(t, hourly.Run(ctx, base))

	rows, err := repo.ReadRange(ctx, schema.Hourly, base.Unix(), base.Add(time.Hour).Unix())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Count)
	assert.Equal(t, 100.0, rows[0].SumValue)
}
