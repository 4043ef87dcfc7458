package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indicates that an engine kind could not be constructed and will never
	// become ready in this process.
	ErrUnavailable = errors.New("engine unavailable")

	// ErrNotStarted is returned when waiting on a pool that was never started.
	ErrNotStarted = errors.New("engine pool not started")
)

// ConstructionError describes one failed construction attempt.
type ConstructionError struct {
	// Kind is the kind being constructed; KindGeneric for pool population.
	Kind Kind
	// Attempt is the 1-based attempt index.
	Attempt int
	// Err is the error returned by the constructor.
	Err error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("engine %s: construction attempt %d failed: %v", e.Kind, e.Attempt, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// NewConstructionError wraps err with the kind and attempt that produced it.
func NewConstructionError(kind Kind, attempt int, err error) *ConstructionError {
	return &ConstructionError{Kind: kind, Attempt: attempt, Err: err}
}

// IsUnavailable reports whether err means the engine kind is permanently unavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
