package extension

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-lynx/renderpool/engine"
	"github.com/go-lynx/renderpool/engine/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistrar(t *testing.T) (*Registrar, string, string) {
	t.Helper()
	work := t.TempDir()
	r := NewRegistrar(Config{})
	r.SetResolver(StaticDir(work))
	return r, work, r.Config().LibDir(work)
}

func TestRegistrar_DefaultConfig(t *testing.T) {
	r := NewRegistrar(Config{})
	assert.Equal(t, DefaultConfig(), r.Config())
	assert.Equal(t, filepath.Join("/w", ".asciidoctor", "lib"), r.Config().LibDir("/w"))
}

func TestRegistrar_SkipsUntilResolved(t *testing.T) {
	r := NewRegistrar(DefaultConfig())
	e := enginetest.NewEngine(engine.KindHTML)

	assert.False(t, r.Resolved())
	outcome, err := r.Reconcile(e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Zero(t, e.Groups())
}

func TestRegistrar_RegistersRecognizedSourcesSorted(t *testing.T) {
	r, _, lib := newRegistrar(t)
	b := touch(t, filepath.Join(lib, "b.jar"))
	a := touch(t, filepath.Join(lib, "a.rb"))
	touch(t, filepath.Join(lib, "c.txt"))
	e := enginetest.NewEngine(engine.KindHTML)

	outcome, err := r.Reconcile(e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRegistered, outcome)

	regs := e.Registrations()
	require.Len(t, regs, 1)
	assert.Equal(t, []string{a, b}, regs[0].Sources)
	assert.Equal(t, []string{a, b}, r.Sources(e))
	assert.Equal(t, 1, e.Groups())
}

func TestRegistrar_IsIdempotent(t *testing.T) {
	r, _, lib := newRegistrar(t)
	touch(t, filepath.Join(lib, "a.rb"))
	e := enginetest.NewEngine(engine.KindPlain)

	first, err := r.Reconcile(e)
	require.NoError(t, err)
	second, err := r.Reconcile(e)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRegistered, first)
	assert.Equal(t, OutcomeUnchanged, second)
	assert.Len(t, e.Registrations(), 1)
	assert.Equal(t, 1, e.Groups())
}

func TestRegistrar_RegistersOnlyTheDelta(t *testing.T) {
	r, _, lib := newRegistrar(t)
	a := touch(t, filepath.Join(lib, "a.rb"))
	e := enginetest.NewEngine(engine.KindNonHTML)
	_, err := r.Reconcile(e)
	require.NoError(t, err)

	c := touch(t, filepath.Join(lib, "sub", "c.jar"))
	outcome, err := r.Reconcile(e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRegistered, outcome)

	regs := e.Registrations()
	require.Len(t, regs, 2)
	assert.Equal(t, []string{a}, regs[0].Sources)
	assert.Equal(t, []string{c}, regs[1].Sources)
	assert.ElementsMatch(t, []string{a, c}, e.Loaded())
}

func TestRegistrar_AbsentDirectoryWithoutSetIsNoop(t *testing.T) {
	r, _, _ := newRegistrar(t)
	e := enginetest.NewEngine(engine.KindReveal)

	outcome, err := r.Reconcile(e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, outcome)
	assert.Empty(t, e.Registrations())
	assert.Zero(t, e.Groups())
}

func TestRegistrar_AbsentDirectoryClearsAndReappearanceReregisters(t *testing.T) {
	r, _, lib := newRegistrar(t)
	a := touch(t, filepath.Join(lib, "a.rb"))
	e := enginetest.NewEngine(engine.KindHTML)
	_, err := r.Reconcile(e)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Dir(lib)))
	outcome, err := r.Reconcile(e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCleared, outcome)

	regs := e.Registrations()
	require.Len(t, regs, 2)
	assert.Empty(t, regs[1].Sources)
	assert.Empty(t, e.Loaded())
	assert.Empty(t, r.Sources(e))

	touch(t, a)
	outcome, err = r.Reconcile(e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRegistered, outcome)
	assert.Equal(t, []string{a}, e.Loaded())
	assert.Equal(t, 1, e.Groups())
}

func TestRegistrar_EmptyDirectoryCreatesSetWithoutRegistration(t *testing.T) {
	r, _, lib := newRegistrar(t)
	require.NoError(t, os.MkdirAll(lib, 0o755))
	e := enginetest.NewEngine(engine.KindHTML)

	outcome, err := r.Reconcile(e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Equal(t, 1, e.Groups())
	assert.Empty(t, e.Registrations())

	require.NoError(t, os.RemoveAll(lib))
	outcome, err = r.Reconcile(e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCleared, outcome)
	require.Len(t, e.Registrations(), 1)
}

func TestRegistrar_FollowsWorkingDirectoryChanges(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	cfg := DefaultConfig()
	a := touch(t, filepath.Join(cfg.LibDir(first), "a.rb"))
	b := touch(t, filepath.Join(cfg.LibDir(second), "b.rb"))

	var (
		mu  sync.Mutex
		cur = first
	)
	r := NewRegistrar(cfg)
	r.SetResolver(ResolverFunc(func() string {
		mu.Lock()
		defer mu.Unlock()
		return cur
	}))
	e := enginetest.NewEngine(engine.KindHTML)

	_, err := r.Reconcile(e)
	require.NoError(t, err)
	mu.Lock()
	cur = second
	mu.Unlock()
	_, err = r.Reconcile(e)
	require.NoError(t, err)

	assert.Equal(t, []string{a, b}, r.Sources(e))
}

type failingGroupEngine struct {
	*enginetest.Engine
}

func (failingGroupEngine) CreateExtensionGroup() (engine.ExtensionGroup, error) {
	return nil, errors.New("no group for you")
}

func TestRegistrar_GroupCreationFailure(t *testing.T) {
	r, _, lib := newRegistrar(t)
	touch(t, filepath.Join(lib, "a.rb"))
	e := failingGroupEngine{enginetest.NewEngine(engine.KindHTML)}

	outcome, err := r.Reconcile(e)
	assert.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Nil(t, r.Sources(e))
}

type blockingGroupEngine struct {
	*enginetest.Engine
	entered chan struct{}
	release chan struct{}
}

func (b blockingGroupEngine) CreateExtensionGroup() (engine.ExtensionGroup, error) {
	close(b.entered)
	<-b.release
	return b.Engine.CreateExtensionGroup()
}

func TestRegistrar_SlowGroupCreationBlocksOnlyItsEngine(t *testing.T) {
	r, _, lib := newRegistrar(t)
	touch(t, filepath.Join(lib, "a.rb"))
	slow := blockingGroupEngine{
		Engine:  enginetest.NewEngine(engine.KindHTML),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	done := make(chan Outcome, 1)
	go func() {
		outcome, _ := r.Reconcile(slow)
		done <- outcome
	}()
	<-slow.entered

	other := enginetest.NewEngine(engine.KindPlain)
	outcome, err := r.Reconcile(other)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRegistered, outcome)
	assert.Len(t, other.Loaded(), 1)

	close(slow.release)
	assert.Equal(t, OutcomeRegistered, <-done)
	assert.Len(t, slow.Loaded(), 1)
}

type flakyGroupEngine struct {
	*enginetest.Engine
	fail *bool
}

func (f flakyGroupEngine) CreateExtensionGroup() (engine.ExtensionGroup, error) {
	if *f.fail {
		return nil, errors.New("engine not ready for extensions")
	}
	return f.Engine.CreateExtensionGroup()
}

func TestRegistrar_GroupCreationRetriedAfterFailure(t *testing.T) {
	r, _, lib := newRegistrar(t)
	a := touch(t, filepath.Join(lib, "a.rb"))
	fail := true
	e := flakyGroupEngine{Engine: enginetest.NewEngine(engine.KindHTML), fail: &fail}

	outcome, err := r.Reconcile(e)
	assert.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	fail = false
	outcome, err = r.Reconcile(e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRegistered, outcome)
	assert.Equal(t, []string{a}, r.Sources(e))
}

func TestRegistrar_ScanFailureKeepsRegisteredSources(t *testing.T) {
	r, _, lib := newRegistrar(t)
	a := touch(t, filepath.Join(lib, "a.rb"))
	e := enginetest.NewEngine(engine.KindHTML)

	outcome, err := r.Reconcile(e)
	require.NoError(t, err)
	require.Equal(t, OutcomeRegistered, outcome)

	sub := filepath.Join(lib, "vendor")
	touch(t, filepath.Join(sub, "b.rb"))
	require.NoError(t, os.Chmod(sub, 0))
	t.Cleanup(func() { _ = os.Chmod(sub, 0o755) })
	if _, err := os.ReadDir(sub); err == nil {
		t.Skip("permissions not enforced for this user")
	}
	_, scanErr := Scan(lib, 2, DefaultConfig().Patterns)
	require.Error(t, scanErr)

	outcome, err = r.Reconcile(e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Len(t, e.Registrations(), 1)
	assert.Equal(t, []string{a}, r.Sources(e))
	assert.Equal(t, []string{a}, e.Loaded())
}

func TestRegistrar_ConcurrentReconcileCreatesOneSet(t *testing.T) {
	r, _, lib := newRegistrar(t)
	touch(t, filepath.Join(lib, "a.rb"))
	touch(t, filepath.Join(lib, "b.jar"))
	e := enginetest.NewEngine(engine.KindHTML)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Reconcile(e)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, e.Groups())
	assert.Len(t, e.Registrations(), 1)
	assert.Len(t, e.Loaded(), 2)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "registered", OutcomeRegistered.String())
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "outcome(99)", Outcome(99).String())
}
