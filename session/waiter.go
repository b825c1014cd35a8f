package session

import (
	"context"
	"sync"
)

// Waiter is a one-shot completion channel correlating an asynchronous
// command with the MQTT acknowledgement that eventually resolves it, a
// single generic type shared by every handle operation.
type Waiter[T any] struct {
	done   chan struct{}
	once   sync.Once
	result T
	err    error
}

// NewWaiter returns a ready-to-wait Waiter.
func NewWaiter[T any]() *Waiter[T] {
	return &Waiter[T]{done: make(chan struct{})}
}

// Resolve completes the waiter successfully. Only the first call (Resolve
// or Fail) has any effect.
func (w *Waiter[T]) Resolve(result T) {
	w.once.Do(func() {
		w.result = result
		close(w.done)
	})
}

// Fail completes the waiter with an error.
func (w *Waiter[T]) Fail(err error) {
	w.once.Do(func() {
		w.err = err
		close(w.done)
	})
}

// Wait blocks until the waiter resolves or ctx is done. Dropping the
// waiter without calling Wait is safe: the dispatcher still drains the
// eventual reply (see the run loop in the root package) and the pid
// bookkeeping is unaffected.
func (w *Waiter[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-w.done:
		return w.result, w.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
