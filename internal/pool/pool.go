// Package pool runs independent work items under a fixed number of workers.
package pool

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of one Map item
type Result[R any] struct {
	Value R
	Err   error
}

// Run calls fn for every index in [0, n) on at most workers goroutines and
// returns when all calls have finished.
// ⭐ SSOT: fn은 인덱스 i 슬롯에만 쓴다 (워커 간 공유 상태 없음)
func Run(ctx context.Context, n, workers int, fn func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	indexCh := make(chan int, n)
	for i := 0; i < n; i++ {
		indexCh <- i
	}
	close(indexCh)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				fn(ctx, i)
			}
		}()
	}
	wg.Wait()
}

// Map applies fn to each item and returns the results in input order.
// Items reached after ctx is done are not started and carry ctx.Err().
func Map[T, R any](ctx context.Context, items []T, workers int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))

	Run(ctx, len(items), workers, func(ctx context.Context, i int) {
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			return
		}
		v, err := fn(ctx, items[i])
		results[i] = Result[R]{Value: v, Err: err}
	})
	return results
}

// WithTimeout wraps fn so every call gets its own deadline
func WithTimeout[T, R any](timeout time.Duration, fn func(ctx context.Context, item T) (R, error)) func(ctx context.Context, item T) (R, error) {
	if timeout <= 0 {
		return fn
	}
	return func(ctx context.Context, item T) (R, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return fn(ctx, item)
	}
}
