package directory

import (
	"context"
	"sync"
)

// Future is a minimal one-shot promise: the Go-idiomatic stand-in for
// the original's future::Shared, which a PendingRoute clones among every
// caller that arrives before it resolves. Multiple goroutines may call
// Wait concurrently; all observe the same resolved value or error.
type Future[T any] struct {
	done chan struct{}
	once sync.Once

	mu  sync.Mutex
	val T
	err error
}

// NewFuture returns an unresolved Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve completes the future exactly once; later calls are no-ops.
func (f *Future[T]) Resolve(v T, err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.val, f.err = v, err
		f.mu.Unlock()
		close(f.done)
	})
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done reports whether the future has already resolved, without
// blocking.
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
