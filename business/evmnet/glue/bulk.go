package glue

import (
	"context"
	"sync"
)

// ChunkGetter fetches the slice of results for the half-open range
// [start, end).
type ChunkGetter[T any] func(ctx context.Context, start, end int) ([]T, error)

// AggregateBulkGetter partitions [0, total) into chunks of at most
// querySize, fetches every chunk concurrently via get, and flattens the
// results back into index order. A chunk that comes back empty is
// retried (without delay) up to maxEmptyRetries times before the empty
// result is accepted as legitimate — this caps what would otherwise be
// an unbounded empty-batch retry loop. onProgress, if non-nil, is
// invoked after each chunk completes with the cumulative fraction done,
// and is guaranteed a final call with exactly 1.
func AggregateBulkGetter[T any](ctx context.Context, total, querySize int, get ChunkGetter[T], onProgress func(fraction float64), maxEmptyRetries int) ([]T, error) {
	if maxEmptyRetries <= 0 {
		maxEmptyRetries = 8
	}
	if querySize <= 0 {
		querySize = total
	}
	if total <= 0 {
		if onProgress != nil {
			onProgress(1)
		}
		return nil, nil
	}

	numChunks := (total + querySize - 1) / querySize
	results := make([][]T, numChunks)
	errs := make([]error, numChunks)

	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)

	advance := func(width int) {
		mu.Lock()
		done += width
		fraction := float64(done) / float64(total)
		mu.Unlock()
		if onProgress != nil {
			onProgress(fraction)
		}
	}

	for i := 0; i < numChunks; i++ {
		start := i * querySize
		end := min(start+querySize, total)

		wg.Add(1)
		go func(idx, start, end int) {
			defer wg.Done()

			var chunk []T
			for attempt := 0; attempt <= maxEmptyRetries; attempt++ {
				v, err := get(ctx, start, end)
				if err != nil {
					errs[idx] = err
					return
				}
				if len(v) > 0 || attempt == maxEmptyRetries {
					chunk = v
					break
				}
			}

			results[idx] = chunk
			advance(end - start)
		}(i, start, end)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var out []T
	for _, chunk := range results {
		out = append(out, chunk...)
	}

	if onProgress != nil {
		onProgress(1)
	}

	return out, nil
}
