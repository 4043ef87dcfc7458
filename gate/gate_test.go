package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_OpenOnce(t *testing.T) {
	g := New[int]("html")
	assert.False(t, g.IsOpen())
	assert.Equal(t, "html", g.Name())

	assert.True(t, g.Open(1))
	assert.False(t, g.Open(2))
	assert.False(t, g.Fail(errors.New("late")))
	assert.True(t, g.IsOpen())

	for i := 0; i < 3; i++ {
		v, err := g.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	}
}

func TestGate_Fail(t *testing.T) {
	g := New[*struct{}]("reveal")
	cause := errors.New("boom")
	require.True(t, g.Fail(cause))
	assert.False(t, g.Open(&struct{}{}))

	v, err := g.Await(context.Background())
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrFailed)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "reveal")
}

func TestGate_FailNilError(t *testing.T) {
	g := New[int]("plain")
	g.Fail(nil)
	_, err := g.Await(context.Background())
	assert.ErrorIs(t, err, ErrFailed)
}

func TestGate_AwaitCancelled(t *testing.T) {
	g := New[int]("nonhtml")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, g.IsOpen())
}

func TestGate_AwaitTimeout(t *testing.T) {
	g := New[string]("html")
	_, err := g.AwaitTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	g.Open("ready")
	v, err := g.AwaitTimeout(0)
	require.NoError(t, err)
	assert.Equal(t, "ready", v)
}

func TestGate_ConcurrentWaitersSeeSameValue(t *testing.T) {
	type instance struct{ id int }
	g := New[*instance]("html")
	want := &instance{id: 7}

	const waiters = 64
	results := make(chan *instance, waiters)
	var started sync.WaitGroup
	started.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			started.Done()
			v, err := g.Await(context.Background())
			if err != nil {
				results <- nil
				return
			}
			results <- v
		}()
	}
	started.Wait()

	select {
	case <-results:
		t.Fatal("waiter returned before the gate opened")
	case <-time.After(20 * time.Millisecond):
	}

	g.Open(want)

	deadline := time.After(2 * time.Second)
	for i := 0; i < waiters; i++ {
		select {
		case v := <-results:
			assert.Same(t, want, v)
		case <-deadline:
			t.Fatalf("only %d of %d waiters woke up", i, waiters)
		}
	}
}

func TestGate_Done(t *testing.T) {
	g := New[int]("plain")
	select {
	case <-g.Done():
		t.Fatal("done before open")
	default:
	}
	g.Open(0)
	select {
	case <-g.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed after open")
	}
}
