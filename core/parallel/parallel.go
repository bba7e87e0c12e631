// Package parallel provides small helpers for fanning work out across
// goroutines: chunked index-range parallelism for numerical kernels, and an
// order-preserving bounded map used for batch calculator evaluation.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Parallelize splits items across the available CPU cores and runs fn on
// each contiguous index range (start, end) concurrently, returning once all
// ranges have been processed.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// Ceiling division so every item lands in exactly one chunk.
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially when items is at or below
// threshold, and parallelizes otherwise. Small workloads are not worth the
// goroutine overhead.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}

	Parallelize(items, fn)
}

// MapErr runs fn(ctx, i) for every index in [0, n) on up to limit concurrent
// goroutines (limit <= 0 means one goroutine per item). It returns after all
// dispatched calls have finished: the call is a synchronization barrier, and
// the first error cancels the group's context and is returned. Callers index
// their own result slices, so completion order never affects result order.
func MapErr(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return fn(gctx, i)
		})
	}

	return g.Wait()
}
