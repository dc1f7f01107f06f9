package asyncx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/logx"
)

// ─── Future ──────────────────────────────────────────────────────────────────

// result holds the outcome of an async computation.
type result[T any] struct {
	value T
	err   error
}

// Future represents a value that will be available asynchronously.
// Create one with Run and retrieve its value with Await.
type Future[T any] struct {
	ch  chan result[T]
	res *result[T]
	mu  sync.Mutex
}

// Run executes fn in a goroutine and returns a Future for its result.
// The goroutine starts immediately. A panic in fn becomes the Future's
// error.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{ch: make(chan result[T], 1)}
	go func() {
		v, err := call(ctx, fn)
		f.ch <- result[T]{value: v, err: err}
	}()
	return f
}

// call runs fn, converting a panic into an error
func call[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("asyncx: panic: %v", r)
		}
	}()
	return fn(ctx)
}

// Await blocks until the Future completes and returns its value and error.
// Subsequent calls return the cached result.
func (f *Future[T]) Await() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.res == nil {
		r := <-f.ch
		f.res = &r
	}
	return f.res.value, f.res.err
}

// ─── AllSettled ──────────────────────────────────────────────────────────────

// Result holds the outcome of a single settled async operation.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the result carries no error.
func (r Result[T]) OK() bool { return r.Err == nil }

// AllSettled runs all fns concurrently and waits for every one to finish.
// It always returns one Result per fn, in order; a panic settles as an
// error.
func AllSettled[T any](ctx context.Context, fns ...func(context.Context) (T, error)) []Result[T] {
	results := make([]Result[T], len(fns))
	var wg sync.WaitGroup
	wg.Add(len(fns))

	for i, fn := range fns {
		go func() {
			defer wg.Done()
			v, err := call(ctx, fn)
			results[i] = Result[T]{Value: v, Err: err}
		}()
	}
	wg.Wait()
	return results
}

// ─── Detached work ───────────────────────────────────────────────────────────

// Detach runs fn in a goroutine that outlives the caller's request. The
// context keeps ctx's values but not its cancellation, and is bounded by
// timeout. Panics are recovered and logged.
func Detach(ctx context.Context, timeout time.Duration, name string, fn func(context.Context) error) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logx.WithContext(detached).WithField("task", name).
					WithError(fmt.Errorf("panic: %v", r)).
					Error("background task panicked")
			}
		}()

		if err := fn(detached); err != nil {
			logx.WithContext(detached).WithField("task", name).
				WithError(err).
				Warn("background task failed")
		}
	}()
}
