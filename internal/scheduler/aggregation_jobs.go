// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package scheduler

import (
	"context"
	"time"
)

// AggregationRunner runs one resolution's bucket aggregation for the
// bucket containing "at" (internal/aggregate.Aggregator satisfies this).
type AggregationRunner interface {
	Run(ctx context.Context, at time.Time) error
}

// BuildAggregationJobs returns the four fixed aggregation JobSpecs:
// 2-min, 10-min (+5s), hourly (+10s), daily at 00:05. Each misfire grace
// falls within a 15-300s range, scaled to the job's own resolution.
func BuildAggregationJobs(twoMin, tenMin, hourly, daily AggregationRunner) []JobSpec {
	run := func(r AggregationRunner) func(context.Context) error {
		return func(ctx context.Context) error { return r.Run(ctx, time.Now()) }
	}
	return []JobSpec{
		{
			Name:         "aggregate-2min",
			Cron:         "*/2 * * * *",
			MisfireGrace: 15 * time.Second,
			Run:          run(twoMin),
		},
		{
			Name:         "aggregate-10min",
			Cron:         "*/10 * * * *",
			Offset:       5 * time.Second,
			MisfireGrace: 30 * time.Second,
			Run:          run(tenMin),
		},
		{
			Name:         "aggregate-1hour",
			Cron:         "0 * * * *",
			Offset:       10 * time.Second,
			MisfireGrace: 120 * time.Second,
			Run:          run(hourly),
		},
		{
			Name:         "aggregate-daily",
			Cron:         "5 0 * * *",
			MisfireGrace: 300 * time.Second,
			Run:          run(daily),
		},
	}
}
