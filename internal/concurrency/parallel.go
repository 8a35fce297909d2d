package concurrency

import (
	"context"
	"sync"
)

// ParallelOptions configures a bounded worker pool.
type ParallelOptions struct {
	// MaxWorkers is the pool size. 1 runs items one at a time, in order,
	// on the caller's goroutine.
	MaxWorkers int
}

// DefaultOptions returns the pool size used when none is configured.
func DefaultOptions() ParallelOptions {
	return ParallelOptions{
		MaxWorkers: 10,
	}
}

// Sequential runs items strictly one after another.
func Sequential() ParallelOptions {
	return ParallelOptions{MaxWorkers: 1}
}

// Result is the outcome of one item. Items never started because ctx ended
// carry ctx.Err().
type Result[R any] struct {
	Value R
	Err   error
}

func workers(opts ParallelOptions, n int) int {
	w := opts.MaxWorkers
	if w <= 0 {
		w = DefaultOptions().MaxWorkers
	}
	if w > n {
		w = n
	}
	return w
}

// ProcessParallel calls itemFunc for every item with at most MaxWorkers in
// flight. Results keep input order; one item's error never stops the others.
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) (R, error),
) []Result[R] {
	out := make([]Result[R], len(items))
	if len(items) == 0 {
		return out
	}

	run := func(i int) {
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			return
		}
		out[i].Value, out[i].Err = itemFunc(ctx, i, items[i])
	}

	n := workers(opts, len(items))
	if n == 1 {
		for i := range items {
			run(i)
		}
		return out
	}

	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	// Each index is written by exactly one worker.
	var wg sync.WaitGroup
	for w := 0; w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				run(i)
			}
		}()
	}
	wg.Wait()
	return out
}

// ForEach is ProcessParallel without values. It returns the non-nil errors
// in input order.
func ForEach[T any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) error,
) []error {
	res := ProcessParallel(ctx, items, opts, func(ctx context.Context, i int, item T) (struct{}, error) {
		return struct{}{}, itemFunc(ctx, i, item)
	})
	var errs []error
	for _, r := range res {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

// Errors collects the non-nil errors of results in input order.
func Errors[R any](results []Result[R]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
