package renderpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-lynx/renderpool/app/conf"
	"github.com/go-lynx/renderpool/app/log"
	"github.com/go-lynx/renderpool/app/observability/metrics"
	"github.com/go-lynx/renderpool/engine"
	"github.com/go-lynx/renderpool/extension"
	"github.com/go-lynx/renderpool/gate"
	"github.com/go-lynx/renderpool/pool"
	"golang.org/x/sync/errgroup"
)

// State is the readiness of a specialized kind.
type State int

const (
	// StatePending means the kind's engine is still being constructed.
	StatePending State = iota
	// StateReady means the kind's engine is constructed and shared.
	StateReady
	// StateFailed means every construction attempt failed and waiters get an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Orchestrator owns the engine gates, the generic pool and the extension registrar.
type Orchestrator struct {
	constructor  engine.Constructor
	cfg          conf.Renderpool
	awaitTimeout time.Duration
	resolve      ResolveFunc

	gates     map[engine.Kind]*gate.Gate[engine.Engine]
	pool      *pool.Pool[engine.Engine]
	registrar *extension.Registrar

	startOnce sync.Once
	started   chan struct{}
	group     errgroup.Group
}

// New creates an idle orchestrator. Nothing is constructed until Start.
func New(constructor engine.Constructor, opts ...Option) (*Orchestrator, error) {
	if constructor == nil {
		return nil, errors.New("renderpool: nil engine constructor")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	bc := o.cfg
	if bc == nil {
		bc = conf.Default()
	}
	if err := bc.Validate(); err != nil {
		return nil, err
	}
	timeout, err := bc.Renderpool.Engine.AwaitTimeoutDuration()
	if err != nil {
		return nil, err
	}
	if o.resolve == nil {
		o.resolve = func(context.Context) (extension.Resolver, error) { return extension.CurrentDir(), nil }
	}

	r := bc.Renderpool
	orch := &Orchestrator{
		constructor:  constructor,
		cfg:          r,
		awaitTimeout: timeout,
		resolve:      o.resolve,
		gates:        make(map[engine.Kind]*gate.Gate[engine.Engine], len(engine.Kinds())),
		pool:         pool.New[engine.Engine](engine.KindGeneric.String(), r.Pool.Capacity),
		registrar: extension.NewRegistrar(extension.Config{
			Tool:     r.Extensions.Tool,
			Depth:    r.Extensions.Depth,
			Patterns: r.Extensions.Patterns,
		}),
		started: make(chan struct{}),
	}
	for _, kind := range engine.Kinds() {
		orch.gates[kind] = gate.New[engine.Engine](kind.String())
	}
	return orch, nil
}

// Start launches pool population, the four kind constructions and directory resolution.
// None waits for another and none is cancelled by ctx; ctx only supplies values. Calls after
// the first do nothing.
func (o *Orchestrator) Start(ctx context.Context) {
	o.startOnce.Do(func() {
		ctx = context.WithoutCancel(ctx)
		log.Infow("msg", "starting engine orchestrator",
			"pool_capacity", o.pool.Cap(), "engine_attempts", o.cfg.Engine.Attempts)

		o.group.Go(func() error { return o.populate(ctx) })
		for _, kind := range engine.Kinds() {
			o.group.Go(func() error { return o.construct(ctx, kind) })
		}
		o.group.Go(func() error { return o.resolveDirectory(ctx) })
		close(o.started)
	})
}

// Wait blocks until every startup task finished and returns the first failure.
func (o *Orchestrator) Wait() error {
	select {
	case <-o.started:
	default:
		return engine.ErrNotStarted
	}
	return o.group.Wait()
}

func (o *Orchestrator) populate(ctx context.Context) error {
	res, err := pool.Populate(ctx, o.pool, o.cfg.Pool.Attempts, func(ctx context.Context, attempt int) (engine.Engine, error) {
		start := time.Now()
		e, err := o.constructor.Construct(ctx, engine.KindGeneric)
		if err == nil && e == nil {
			err = errors.New("constructor returned no engine")
		}
		metrics.ObserveConstruction(engine.KindGeneric.String(), time.Since(start), err)
		if err != nil {
			return nil, engine.NewConstructionError(engine.KindGeneric, attempt, err)
		}
		return e, nil
	})
	metrics.AddPoolEvent("offered", res.Offered)
	metrics.AddPoolEvent("dropped", res.Dropped)
	metrics.AddPoolEvent("failed", res.Failed)
	metrics.SetPoolIdle(o.pool.Len())
	log.Infow("msg", "generic engine pool populated",
		"offered", res.Offered, "dropped", res.Dropped, "failed", res.Failed)
	return err
}

func (o *Orchestrator) construct(ctx context.Context, kind engine.Kind) error {
	g := o.gates[kind]
	metrics.SetEngineReady(kind.String(), 0)

	var last error
	for attempt := 1; attempt <= o.cfg.Engine.Attempts; attempt++ {
		start := time.Now()
		e, err := o.constructor.Construct(ctx, kind)
		if err == nil && e == nil {
			err = errors.New("constructor returned no engine")
		}
		metrics.ObserveConstruction(kind.String(), time.Since(start), err)
		if err != nil {
			last = engine.NewConstructionError(kind, attempt, err)
			log.Errorw("msg", "problem occurred while constructing engine",
				"kind", kind.String(), "attempt", attempt, "err", err)
			continue
		}
		if !o.cfg.Engine.ThreadSafe {
			e = engine.Serialize(e)
		}
		g.Open(e)
		metrics.SetEngineReady(kind.String(), 1)
		log.Infow("msg", "engine ready", "kind", kind.String(), "engine", e.ID(),
			"elapsed", time.Since(start).String())
		return nil
	}

	metrics.SetEngineReady(kind.String(), -1)
	if o.cfg.Engine.BlockOnFailure {
		log.Errorw("msg", "engine unavailable, waiters stay blocked", "kind", kind.String())
	} else {
		g.Fail(fmt.Errorf("%w: %w", engine.ErrUnavailable, last))
	}
	return last
}

func (o *Orchestrator) resolveDirectory(ctx context.Context) error {
	r, err := o.resolve(ctx)
	if err != nil {
		log.Errorw("msg", "problem occurred while resolving working directory", "err", err)
		return fmt.Errorf("resolve working directory: %w", err)
	}
	if r == nil {
		return errors.New("resolve working directory: no resolver")
	}
	o.registrar.SetResolver(r)
	log.Debugw("msg", "working directory resolver ready", "path", r.WorkingDirectory())
	return nil
}

// Engine waits for kind's shared engine, reconciles its extensions and returns it. The wait
// is bounded by ctx and by engine.await_timeout when set. Reconciliation failures are logged;
// the engine is still returned.
func (o *Orchestrator) Engine(ctx context.Context, kind engine.Kind) (engine.Engine, error) {
	g, ok := o.gates[kind]
	if !ok {
		return nil, fmt.Errorf("%s is not a specialized engine kind", kind)
	}
	ctx, cancel := o.bounded(ctx)
	defer cancel()

	e, err := g.Await(ctx)
	if err != nil {
		return nil, err
	}
	outcome, err := o.registrar.Reconcile(e)
	metrics.IncReconcile(outcome.String())
	if err != nil {
		log.Warnw("msg", "engine returned with stale extensions", "kind", kind.String(), "engine", e.ID(), "err", err)
	}
	return e, nil
}

// Plain returns the shared plain engine.
func (o *Orchestrator) Plain(ctx context.Context) (engine.Engine, error) {
	return o.Engine(ctx, engine.KindPlain)
}

// HTML returns the shared HTML engine.
func (o *Orchestrator) HTML(ctx context.Context) (engine.Engine, error) {
	return o.Engine(ctx, engine.KindHTML)
}

// NonHTML returns the shared non-HTML engine.
func (o *Orchestrator) NonHTML(ctx context.Context) (engine.Engine, error) {
	return o.Engine(ctx, engine.KindNonHTML)
}

// Reveal returns the shared presentation engine.
func (o *Orchestrator) Reveal(ctx context.Context) (engine.Engine, error) {
	return o.Engine(ctx, engine.KindReveal)
}

// Generic takes an engine from the pool. The caller owns it and must not hand it back.
func (o *Orchestrator) Generic(ctx context.Context) (engine.Engine, error) {
	ctx, cancel := o.bounded(ctx)
	defer cancel()

	e, err := o.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	metrics.AddPoolEvent("taken", 1)
	metrics.SetPoolIdle(o.pool.Len())
	return e, nil
}

// State reports the readiness of kind without blocking.
func (o *Orchestrator) State(kind engine.Kind) State {
	g, ok := o.gates[kind]
	if !ok || !g.IsOpen() {
		return StatePending
	}
	if _, err := g.Await(context.Background()); err != nil {
		return StateFailed
	}
	return StateReady
}

// Idle returns the number of generic engines waiting in the pool.
func (o *Orchestrator) Idle() int {
	return o.pool.Len()
}

// Registrar returns the extension registrar shared by the kind engines.
func (o *Orchestrator) Registrar() *extension.Registrar {
	return o.registrar
}

func (o *Orchestrator) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.awaitTimeout > 0 {
		return context.WithTimeout(ctx, o.awaitTimeout)
	}
	return ctx, func() {}
}
