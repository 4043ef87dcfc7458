// Package gate provides a single-fire readiness gate.
//
// A Gate starts closed and is opened exactly once, either with a value or with a terminal
// failure. Every waiter, current or future, observes the same outcome. A gate never closes
// again.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrFailed is wrapped by the error Await returns when the gate was opened with Fail.
var ErrFailed = errors.New("gate failed")

// Gate signals that a single value became available.
type Gate[T any] struct {
	name string
	once sync.Once
	done chan struct{}

	// written once before done is closed
	value T
	err   error
}

// New returns a closed gate.
func New[T any](name string) *Gate[T] {
	return &Gate[T]{name: name, done: make(chan struct{})}
}

// Name returns the name the gate was created with.
func (g *Gate[T]) Name() string {
	return g.name
}

// Open publishes v and wakes all waiters. Only the first Open or Fail has an effect; it
// reports whether this call opened the gate.
func (g *Gate[T]) Open(v T) bool {
	opened := false
	g.once.Do(func() {
		g.value = v
		close(g.done)
		opened = true
	})
	return opened
}

// Fail opens the gate with a terminal error instead of a value.
func (g *Gate[T]) Fail(err error) bool {
	if err == nil {
		err = errors.New("unspecified failure")
	}
	opened := false
	g.once.Do(func() {
		g.err = fmt.Errorf("%w: %s: %w", ErrFailed, g.name, err)
		close(g.done)
		opened = true
	})
	return opened
}

// Await blocks until the gate opens or ctx ends. A context without deadline waits forever.
func (g *Gate[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-g.done:
		return g.value, g.err
	default:
	}
	select {
	case <-g.done:
		return g.value, g.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("waiting for %s: %w", g.name, ctx.Err())
	}
}

// AwaitTimeout is Await with a timeout; d <= 0 waits forever.
func (g *Gate[T]) AwaitTimeout(d time.Duration) (T, error) {
	if d <= 0 {
		return g.Await(context.Background())
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return g.Await(ctx)
}

// Done is closed once the gate opens.
func (g *Gate[T]) Done() <-chan struct{} {
	return g.done
}

// IsOpen reports whether the gate has opened, successfully or not.
func (g *Gate[T]) IsOpen() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}
