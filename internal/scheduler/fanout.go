// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunConcurrently runs every task on its own goroutine and waits for all
// of them, cancelling the shared context on the first error. Across
// clients there is no ordering guarantee; the scheduler may interleave
// freely. cmd/xgtcored uses it to fan out the startup dial+registration
// of every configured LSIS client, never within one client's own block
// sequence, which must stay ordered.
func RunConcurrently(ctx context.Context, tasks ...func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error { return task(gctx) })
	}
	return g.Wait()
}
