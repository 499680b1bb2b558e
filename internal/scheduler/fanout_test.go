// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunConcurrentlyRunsAllTasks(t *testing.T) {
	var count atomic.Int32
	err := RunConcurrently(context.Background(),
		func(ctx context.Context) error { count.Add(1); return nil },
		func(ctx context.Context) error { count.Add(1); return nil },
		func(ctx context.Context) error { count.Add(1); return nil },
	)
	assert.NoError(t, err)
	assert.Equal(t, int32(3), count.Load())
}

func TestRunConcurrentlyPropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := RunConcurrently(context.Background(),
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return boom },
	)
	assert.ErrorIs(t, err, boom)
}
