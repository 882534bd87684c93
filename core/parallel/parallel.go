// Package parallel provides the small concurrency helpers shared by
// estimators (chunked row-parallel loops) and the hyperparameter search
// (a bounded, cancellable worker pool).
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// Parallelize splits items into contiguous chunks, one per available CPU, and
// runs fn(start, end) for each chunk concurrently.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// Ceiling division so every item is covered.
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
// threshold, and in parallel chunks otherwise. Small inputs are not worth the
// goroutine overhead.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}

	Parallelize(items, fn)
}

// ForEach runs fn(i) for i in [0, items) on at most workers goroutines,
// stopping early when ctx is cancelled. Items already dispatched run to
// completion; undrawn items are skipped. It returns ctx.Err() when the run
// was cut short, nil otherwise.
//
// Workers <= 0 means one worker per CPU.
func ForEach(ctx context.Context, workers, items int, fn func(i int)) error {
	if items == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

dispatch:
	for i := 0; i < items; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	return ctx.Err()
}
