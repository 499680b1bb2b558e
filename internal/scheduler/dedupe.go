// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package scheduler

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// DedupedRunner wraps an AggregationRunner so that concurrent Run calls
// whose "at" falls in the same Unix second collapse into a single
// execution; the laggards get the first run's result instead of
// recomputing and re-upserting the same bucket. Calls for the same
// bucket with "at" in different seconds are not collapsed.
// Idempotent bucket upserts make this a latency optimization, not a
// correctness requirement.
type DedupedRunner struct {
	Runner AggregationRunner
	group  singleflight.Group
}

func (d *DedupedRunner) Run(ctx context.Context, at time.Time) error {
	key := strconv.FormatInt(at.Unix(), 10)
	_, err, _ := d.group.Do(key, func() (any, error) {
		return nil, d.Runner.Run(ctx, at)
	})
	return err
}
