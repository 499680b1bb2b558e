// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLifecycle(t *testing.T) {
	s, err := New(time.Second)
	require.NoError(t, err)
	require.Equal(t, StateStopped, s.State())

	var ran atomic.Int64
	err = s.Register(JobSpec{
		Name:     "tick",
		Interval: 20 * time.Millisecond,
		Run: func(ctx context.Context) error {
			ran.Add(1)
			return nil
		},
	})
	require.NoError(t, err)

	s.Start()
	require.Equal(t, StateRunning, s.State())
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, s.Stop())
	require.Equal(t, StateStopped, s.State())
	require.Greater(t, ran.Load(), int64(0))
}

// No two executions of the same job overlap in wall-clock time
// (max_instances=1).
func TestNoOverlap(t *testing.T) {
	s, err := New(2 * time.Second)
	require.NoError(t, err)

	var running atomic.Bool
	var overlapped atomic.Bool
	err = s.Register(JobSpec{
		Name:     "slow",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			if !running.CompareAndSwap(false, true) {
				overlapped.Store(true)
				return nil
			}
			time.Sleep(50 * time.Millisecond)
			running.Store(false)
			return nil
		},
	})
	require.NoError(t, err)

	s.Start()
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, s.Stop())
	require.False(t, overlapped.Load())
}
