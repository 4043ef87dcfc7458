// Package pool provides a bounded buffer of interchangeable, single-use values that are
// produced in the background and handed out exclusively.
//
// The pool only hides construction latency: a taken value belongs to the caller and is never
// returned. Producers never block; a value offered to a full pool is dropped.
package pool

import (
	"context"
	"fmt"

	"github.com/go-lynx/renderpool/app/log"
	"github.com/hashicorp/go-multierror"
)

// Pool is a bounded buffer with drop-on-full inserts and blocking takes.
type Pool[T any] struct {
	name  string
	items chan T
}

// New creates a pool holding at most capacity values. capacity below 1 is raised to 1.
func New[T any](name string, capacity int) *Pool[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool[T]{name: name, items: make(chan T, capacity)}
}

// Offer inserts v without blocking. It returns false and drops v when the pool is full.
func (p *Pool[T]) Offer(v T) bool {
	select {
	case p.items <- v:
		return true
	default:
		return false
	}
}

// Take blocks until a value is available or ctx ends. Each value is delivered to exactly one
// caller.
func (p *Pool[T]) Take(ctx context.Context) (T, error) {
	select {
	case v := <-p.items:
		return v, nil
	default:
	}
	select {
	case v := <-p.items:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("taking from pool %s: %w", p.name, ctx.Err())
	}
}

// TryTake returns a value if one is immediately available.
func (p *Pool[T]) TryTake() (T, bool) {
	select {
	case v := <-p.items:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of values currently buffered.
func (p *Pool[T]) Len() int {
	return len(p.items)
}

// Cap returns the pool capacity.
func (p *Pool[T]) Cap() int {
	return cap(p.items)
}

// Name returns the pool name used in logs.
func (p *Pool[T]) Name() string {
	return p.name
}

// PopulateResult summarizes one Populate run.
type PopulateResult struct {
	Offered int
	Dropped int
	Failed  int
}

// BuildFunc builds one value; attempt is 1-based.
type BuildFunc[T any] func(ctx context.Context, attempt int) (T, error)

// Populate runs attempts sequential builds and offers every success to p. A failed build is
// logged with its attempt index and does not stop the remaining attempts. The returned error
// aggregates every failure and is nil when all builds succeeded.
func Populate[T any](ctx context.Context, p *Pool[T], attempts int, build BuildFunc[T]) (PopulateResult, error) {
	var (
		res  PopulateResult
		errs *multierror.Error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := build(ctx, attempt)
		if err != nil {
			res.Failed++
			errs = multierror.Append(errs, err)
			log.Errorw("msg", "problem occurred while populating pool",
				"pool", p.name, "attempt", attempt, "err", err)
			continue
		}
		if !p.Offer(v) {
			res.Dropped++
			log.Warnw("msg", "pool full, dropping value", "pool", p.name, "attempt", attempt)
			continue
		}
		res.Offered++
		log.Debugw("msg", "pool value ready", "pool", p.name, "attempt", attempt, "available", p.Len())
	}
	return res, errs.ErrorOrNil()
}
