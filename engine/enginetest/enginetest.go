// Package enginetest provides in-memory engine fakes for tests.
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-lynx/renderpool/engine"
	"github.com/google/uuid"
)

// Registration records one ExtensionGroup.Register call.
type Registration struct {
	Group   int
	Sources []string
}

// Engine is a fake engine that records extension registrations and conversions.
type Engine struct {
	id   string
	kind engine.Kind

	mu            sync.Mutex
	groups        []*Group
	registrations []Registration
	converts      int

	// ConvertFunc overrides the default conversion, which echoes kind and source.
	ConvertFunc func(ctx context.Context, source string, opts engine.Options) (string, error)
}

// NewEngine returns a fake engine of the given kind with a random ID.
func NewEngine(kind engine.Kind) *Engine {
	return &Engine{id: uuid.NewString(), kind: kind}
}

func (e *Engine) ID() string { return e.id }

// Kind returns the kind the fake was built for.
func (e *Engine) Kind() engine.Kind { return e.kind }

func (e *Engine) Convert(ctx context.Context, source string, opts engine.Options) (string, error) {
	e.mu.Lock()
	e.converts++
	fn := e.ConvertFunc
	e.mu.Unlock()
	if fn != nil {
		return fn(ctx, source, opts)
	}
	return fmt.Sprintf("%s:%s", e.kind, source), nil
}

func (e *Engine) CreateExtensionGroup() (engine.ExtensionGroup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := &Group{index: len(e.groups), owner: e}
	e.groups = append(e.groups, g)
	return g, nil
}

// Registrations returns a copy of every Register call made on this engine's groups.
func (e *Engine) Registrations() []Registration {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Registration, len(e.registrations))
	for i, r := range e.registrations {
		out[i] = Registration{Group: r.Group, Sources: append([]string(nil), r.Sources...)}
	}
	return out
}

// Loaded returns the sources currently loaded across all groups.
func (e *Engine) Loaded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, g := range e.groups {
		out = append(out, g.sources...)
	}
	return out
}

// Groups returns how many extension groups were created.
func (e *Engine) Groups() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.groups)
}

// Converts returns how many conversions ran.
func (e *Engine) Converts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.converts
}

// Group is the fake extension group.
type Group struct {
	index   int
	owner   *Engine
	sources []string
}

func (g *Group) Register(_ engine.Engine, sources []string) error {
	g.owner.mu.Lock()
	defer g.owner.mu.Unlock()
	g.owner.registrations = append(g.owner.registrations, Registration{
		Group:   g.index,
		Sources: append([]string(nil), sources...),
	})
	if len(sources) == 0 {
		g.sources = nil
		return nil
	}
	g.sources = append(g.sources, sources...)
	return nil
}

// Constructor is a fake engine.Constructor. Attempts are counted per kind.
type Constructor struct {
	mu    sync.Mutex
	calls map[engine.Kind]int
	built []*Engine
	hold  map[engine.Kind]chan struct{}

	// Fail makes an attempt fail when it returns a non-nil error. attempt is 1-based per kind.
	Fail func(kind engine.Kind, attempt int) error
}

// NewConstructor returns a constructor that always succeeds.
func NewConstructor() *Constructor {
	return &Constructor{
		calls: make(map[engine.Kind]int),
		hold:  make(map[engine.Kind]chan struct{}),
	}
}

// Hold blocks construction of kind until the returned release function is called.
// It must be called before construction starts.
func (c *Constructor) Hold(kind engine.Kind) (release func()) {
	ch := make(chan struct{})
	c.mu.Lock()
	c.hold[kind] = ch
	c.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (c *Constructor) Construct(ctx context.Context, kind engine.Kind) (engine.Engine, error) {
	c.mu.Lock()
	c.calls[kind]++
	attempt := c.calls[kind]
	ch := c.hold[kind]
	fail := c.Fail
	c.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		if err := fail(kind, attempt); err != nil {
			return nil, err
		}
	}

	e := NewEngine(kind)
	c.mu.Lock()
	c.built = append(c.built, e)
	c.mu.Unlock()
	return e, nil
}

// Calls returns how many construction attempts were made for kind.
func (c *Constructor) Calls(kind engine.Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[kind]
}

// Built returns every engine successfully constructed so far.
func (c *Constructor) Built() []*Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Engine(nil), c.built...)
}
