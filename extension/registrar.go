// Package extension keeps the user extensions loaded into each engine instance in step with
// a plugin directory that may change between calls.
//
// The plugin directory is <working directory>/.<tool>/lib. Every reconciliation registers only
// the sources an instance has not seen yet; when the directory disappears, the instance's
// extension group is superseded with an empty registration so that a later reappearance
// registers everything from scratch.
package extension

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/go-lynx/renderpool/app/log"
	"github.com/go-lynx/renderpool/engine"
)

// Outcome describes what a reconciliation did.
type Outcome int

const (
	// OutcomeSkipped means the working directory was not resolved yet.
	OutcomeSkipped Outcome = iota
	// OutcomeNoop means the plugin directory is absent and nothing was ever registered.
	OutcomeNoop
	// OutcomeCleared means the plugin directory is absent and the instance's group was emptied.
	OutcomeCleared
	// OutcomeUnchanged means every discovered source was already registered.
	OutcomeUnchanged
	// OutcomeRegistered means new sources were registered.
	OutcomeRegistered
	// OutcomeFailed means the engine rejected the group creation or registration.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNoop:
		return "noop"
	case OutcomeCleared:
		return "cleared"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeRegistered:
		return "registered"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Config controls plugin discovery.
type Config struct {
	// Tool names the hidden directory: <workdir>/.<Tool>/lib.
	Tool string
	// Depth bounds the directory walk below the plugin directory.
	Depth int
	// Patterns select extension sources; see Match.
	Patterns []string
}

// DefaultConfig returns the discovery settings of the reference editor.
func DefaultConfig() Config {
	return Config{
		Tool:     "asciidoctor",
		Depth:    2,
		Patterns: []string{"*.rb", "*.jar"},
	}
}

// LibDir returns the plugin directory for workDir.
func (c Config) LibDir(workDir string) string {
	return filepath.Join(workDir, "."+c.Tool, "lib")
}

// Set tracks the extension sources registered with one engine instance.
type Set struct {
	mu         sync.Mutex
	group      engine.ExtensionGroup
	err        error // why group is nil
	registered map[string]struct{}
}

func newSet() *Set {
	return &Set{registered: make(map[string]struct{})}
}

// bound reports the group creation failure of a set that never got a group. Callers hold s.mu.
func (s *Set) bound() error {
	if s.group != nil {
		return nil
	}
	if s.err != nil {
		return s.err
	}
	return errors.New("extension group not created")
}

// Sources returns the registered sources in sorted order.
func (s *Set) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.registered))
	for src := range s.registered {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

// add registers the sources of files not registered yet; files must be sorted.
func (s *Set) add(e engine.Engine, files []string) (Outcome, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bound(); err != nil {
		return OutcomeFailed, nil, err
	}

	var delta []string
	for _, f := range files {
		if _, ok := s.registered[f]; !ok {
			delta = append(delta, f)
		}
	}
	if len(delta) == 0 {
		return OutcomeUnchanged, nil, nil
	}
	if err := s.group.Register(e, delta); err != nil {
		return OutcomeFailed, nil, err
	}
	for _, f := range delta {
		s.registered[f] = struct{}{}
	}
	return OutcomeRegistered, delta, nil
}

func (s *Set) clear(e engine.Engine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bound(); err != nil {
		return err
	}
	if err := s.group.Register(e, []string{}); err != nil {
		return err
	}
	s.registered = make(map[string]struct{})
	return nil
}

type resolverHolder struct {
	r Resolver
}

// Registrar reconciles engine instances against the plugin directory.
type Registrar struct {
	cfg      Config
	resolver atomic.Pointer[resolverHolder]

	mu   sync.Mutex
	sets map[string]*Set
}

// NewRegistrar creates a registrar. Zero fields of cfg take their DefaultConfig values.
func NewRegistrar(cfg Config) *Registrar {
	def := DefaultConfig()
	if cfg.Tool == "" {
		cfg.Tool = def.Tool
	}
	if cfg.Depth <= 0 {
		cfg.Depth = def.Depth
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = def.Patterns
	}
	return &Registrar{cfg: cfg, sets: make(map[string]*Set)}
}

// Config returns the effective discovery settings.
func (r *Registrar) Config() Config {
	return r.cfg
}

// SetResolver publishes the directory resolver. Until it is set, Reconcile skips.
func (r *Registrar) SetResolver(res Resolver) {
	if res == nil {
		r.resolver.Store(nil)
		return
	}
	r.resolver.Store(&resolverHolder{r: res})
}

// Resolved reports whether a resolver has been published.
func (r *Registrar) Resolved() bool {
	return r.resolver.Load() != nil
}

// Reconcile brings the extensions registered with e in line with the plugin directory.
// It never blocks on directory resolution.
func (r *Registrar) Reconcile(e engine.Engine) (Outcome, error) {
	h := r.resolver.Load()
	if h == nil {
		return OutcomeSkipped, nil
	}
	dir := r.cfg.LibDir(h.r.WorkingDirectory())

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		set := r.lookup(e)
		if set == nil {
			return OutcomeNoop, nil
		}
		if err := set.clear(e); err != nil {
			log.Errorw("msg", "problem occurred while clearing user extensions",
				"engine", e.ID(), "path", dir, "err", err)
			return OutcomeFailed, err
		}
		log.Debugw("msg", "user extensions cleared", "engine", e.ID(), "path", dir)
		return OutcomeCleared, nil
	}

	files, err := Scan(dir, r.cfg.Depth, r.cfg.Patterns)
	if err != nil {
		log.Warnw("msg", "problem occurred while scanning user extensions",
			"engine", e.ID(), "path", dir, "err", err)
		files = nil
	}

	set, err := r.getOrCreate(e)
	if err != nil {
		log.Errorw("msg", "problem occurred while creating extension group",
			"engine", e.ID(), "err", err)
		return OutcomeFailed, err
	}

	outcome, added, err := set.add(e, files)
	if err != nil {
		log.Errorw("msg", "problem occurred while registering user extensions",
			"engine", e.ID(), "path", dir, "err", err)
		return outcome, err
	}
	if outcome == OutcomeRegistered {
		log.Infow("msg", "user extensions registered", "engine", e.ID(), "path", dir, "sources", added)
	}
	return outcome, nil
}

// Sources returns the sources currently registered with e.
func (r *Registrar) Sources(e engine.Engine) []string {
	set := r.lookup(e)
	if set == nil {
		return nil
	}
	return set.Sources()
}

func (r *Registrar) lookup(e engine.Engine) *Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets[e.ID()]
}

// getOrCreate returns e's set, creating it on first use. The registrar lock only guards the
// map: a new set is published locked, and its group is created under the set's own lock, so
// an engine busy converting stalls reconciliations of that engine alone. A failed creation
// withdraws the set so that the next reconciliation tries again.
func (r *Registrar) getOrCreate(e engine.Engine) (*Set, error) {
	id := e.ID()
	r.mu.Lock()
	if set, ok := r.sets[id]; ok {
		r.mu.Unlock()
		return set, nil
	}
	set := newSet()
	set.mu.Lock()
	r.sets[id] = set
	r.mu.Unlock()

	group, err := e.CreateExtensionGroup()
	if err != nil {
		set.err = err
		set.mu.Unlock()
		r.mu.Lock()
		if r.sets[id] == set {
			delete(r.sets, id)
		}
		r.mu.Unlock()
		return nil, err
	}
	set.group = group
	set.mu.Unlock()
	return set, nil
}
