package engine

import (
	"context"
	"sync"
)

// serialized guards an engine that is not safe for concurrent use. Conversions and extension
// registrations made through it share one mutex.
type serialized struct {
	mu    sync.Mutex
	inner Engine
}

// Serialize wraps e so that Convert calls and extension registrations on it never overlap.
// Wrapping an already serialized engine returns it unchanged.
func Serialize(e Engine) Engine {
	if e == nil {
		return nil
	}
	if s, ok := e.(*serialized); ok {
		return s
	}
	return &serialized{inner: e}
}

// Unwrap returns the engine behind a Serialize wrapper, or e itself.
func Unwrap(e Engine) Engine {
	if s, ok := e.(*serialized); ok {
		return s.inner
	}
	return e
}

func (s *serialized) ID() string {
	return s.inner.ID()
}

func (s *serialized) Convert(ctx context.Context, source string, opts Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Convert(ctx, source, opts)
}

func (s *serialized) CreateExtensionGroup() (ExtensionGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.inner.CreateExtensionGroup()
	if err != nil {
		return nil, err
	}
	return &serializedGroup{owner: s, inner: g}, nil
}

type serializedGroup struct {
	owner *serialized
	inner ExtensionGroup
}

// Register ignores e in favour of the wrapped engine the group was created from.
func (g *serializedGroup) Register(_ Engine, sources []string) error {
	g.owner.mu.Lock()
	defer g.owner.mu.Unlock()
	return g.inner.Register(g.owner.inner, sources)
}
