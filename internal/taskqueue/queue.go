// Package taskqueue runs indexed, independent tasks either one after another
// or on a bounded pool. Pacing is left to the task itself.
package taskqueue

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Task processes item i. Tasks must not depend on each other's results.
type Task func(ctx context.Context, i int)

// Run executes task for i in [0,n). With workers <= 1 tasks run in index
// order on the calling goroutine. It stops scheduling new tasks once ctx is
// done and returns ctx.Err() in that case; tasks already started finish.
func Run(ctx context.Context, n, workers int, task Task) error {
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			task(ctx, i)
		}
		return nil
	}

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var err error
	for i := 0; i < n; i++ {
		// acquire before launching the goroutine; release inside it
		if err = sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			task(ctx, i)
		}(i)
	}
	wg.Wait()
	if err != nil {
		return err
	}
	return ctx.Err()
}
