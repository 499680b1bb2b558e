// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls atomic.Int32
	block chan struct{}
}

func (r *countingRunner) Run(ctx context.Context, at time.Time) error {
	r.calls.Add(1)
	<-r.block
	return nil
}

func TestDedupedRunnerCollapsesConcurrentSameBucket(t *testing.T) {
	inner := &countingRunner{block: make(chan struct{})}
	deduped := &DedupedRunner{Runner: inner}
	at := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, deduped.Run(context.Background(), at))
		}()
	}

	time.Sleep(50 * time.Millisecond) // let all five goroutines reach the blocked singleflight call
	close(inner.block)
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
}
