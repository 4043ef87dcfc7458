// Package engine defines the contract between the pool and the wrapped conversion library.
//
// An Engine is expensive to construct and stateful. The pool never reinitializes one; user
// extensions are loaded into it through ExtensionGroups, which scope registrations so that a
// group can be superseded without touching other instances.
package engine

import (
	"context"
)

// Options carries per-conversion settings. Engines interpret the fields they understand and
// ignore the rest.
type Options struct {
	// Backend selects the converter backend; empty means the engine's default for its kind.
	Backend string
	// BaseDir resolves relative includes and images.
	BaseDir string
	// ToFile writes the result to a file instead of returning it; empty returns the output.
	ToFile string
	// Safe is the converter safe mode (unsafe, safe, server, secure).
	Safe string
	// HeaderFooter renders a standalone document rather than an embeddable fragment.
	HeaderFooter bool
	// Attributes are document attributes passed to the converter.
	Attributes map[string]string
}

// Engine is a handle to a conversion engine instance.
type Engine interface {
	// ID is unique per instance and stable for its lifetime.
	ID() string
	// Convert renders source and returns the output.
	Convert(ctx context.Context, source string, opts Options) (string, error)
	// CreateExtensionGroup returns a fresh, isolated extension group bound to this instance.
	CreateExtensionGroup() (ExtensionGroup, error)
}

// ExtensionGroup scopes a set of extension registrations within one engine instance.
type ExtensionGroup interface {
	// Register loads sources into the group for e. Registering an empty list supersedes the
	// group and drops everything it registered so far.
	Register(e Engine, sources []string) error
}

// Constructor builds engine instances. Construct may be slow and may fail.
type Constructor interface {
	Construct(ctx context.Context, kind Kind) (Engine, error)
}

// ConstructorFunc adapts a function to Constructor.
type ConstructorFunc func(ctx context.Context, kind Kind) (Engine, error)

// Construct calls f.
func (f ConstructorFunc) Construct(ctx context.Context, kind Kind) (Engine, error) {
	return f(ctx, kind)
}
