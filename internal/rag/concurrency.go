package rag

import (
	"context"
	"sync"
)

// boundedFanOut runs fn once per item with at most cap goroutines in
// flight at a time, returning results in the same order as items. A
// non-positive cap means unbounded concurrency. This is the one fan-out
// helper the Hybrid Retriever (one goroutine per query variation) and the
// RAG Validator (one goroutine per result within a batch) both build on.
func boundedFanOut[T, R any](ctx context.Context, items []T, cap int, fn func(context.Context, T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	sem := make(chan struct{}, effectiveCap(cap, len(items)))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = fn(ctx, item)
		}(i, item)
	}

	wg.Wait()
	return results
}

func effectiveCap(cap, n int) int {
	if cap <= 0 || cap > n {
		return n
	}
	return cap
}
