package render

import (
	"context"
	"errors"
	"testing"

	"github.com/go-lynx/renderpool/app/cache"
	"github.com/go-lynx/renderpool/app/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, name string) *cache.Cache {
	t.Helper()
	c, err := cache.New(name, &cache.Options{NumCounters: 1000, MaxCost: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func sample() Request {
	return Request{
		Target:    "images/flow.png",
		TargetDir: "images",
		Type:      "plantuml",
		Source:    "@startuml\nA -> B\n@enduml",
		Node:      "uml",
		Options:   "",
	}
}

func TestFingerprint(t *testing.T) {
	base := sample()
	assert.Equal(t, Fingerprint(base), Fingerprint(sample()))

	mutations := map[string]func(*Request){
		"target":  func(r *Request) { r.Target = "images/other.png" },
		"dir":     func(r *Request) { r.TargetDir = "img" },
		"type":    func(r *Request) { r.Type = "ditaa" },
		"source":  func(r *Request) { r.Source += " " },
		"node":    func(r *Request) { r.Node = "graphviz" },
		"options": func(r *Request) { r.Options = "scale=2" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			r := sample()
			mutate(&r)
			assert.NotEqual(t, Fingerprint(base), Fingerprint(r))
		})
	}

	a := Request{Target: "ab", TargetDir: "c"}
	b := Request{Target: "a", TargetDir: "bc"}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore(newCache(t, "fingerprints"))
	_, ok := s.Get("x.png")
	assert.False(t, ok)

	require.NoError(t, s.Put("x.png", 7))
	fp, ok := s.Get("x.png")
	require.True(t, ok)
	assert.Equal(t, uint64(7), fp)

	require.NoError(t, s.Put("x.png", 8))
	fp, _ = s.Get("x.png")
	assert.Equal(t, uint64(8), fp)
}

func TestStore_RefusedFingerprintMeansRerender(t *testing.T) {
	// every value costs more than the whole cache, so ristretto never admits one
	c, err := cache.New("tiny", &cache.Options{
		NumCounters: 100,
		MaxCost:     10,
		Cost:        func(interface{}) int64 { return 100 },
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	s := NewStore(c)

	assert.ErrorIs(t, s.Put("x.png", 7), cache.ErrCacheSet)
	_, ok := s.Get("x.png")
	assert.False(t, ok)

	g := NewGuard(s)
	calls := 0
	render := func(context.Context) error { calls++; return nil }
	for i := 0; i < 2; i++ {
		out, err := g.Run(context.Background(), sample(), render)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRendered, out)
	}
	assert.Equal(t, 2, calls)
}

func TestGuard_SkipsUnchanged(t *testing.T) {
	g := NewGuard(NewStore(newCache(t, "fingerprints")))
	calls := 0
	render := func(context.Context) error { calls++; return nil }

	out, err := g.Run(context.Background(), sample(), render)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRendered, out)

	out, err = g.Run(context.Background(), sample(), render)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)
	assert.False(t, g.Changed(sample()))

	changed := sample()
	changed.Source = "@startuml\nA -> C\n@enduml"
	assert.True(t, g.Changed(changed))
	out, err = g.Run(context.Background(), changed, render)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRendered, out)
	assert.Equal(t, 2, calls)
}

func TestGuard_FailedRenderIsRememberedByDefault(t *testing.T) {
	g := NewGuard(NewStore(newCache(t, "fingerprints")))
	boom := errors.New("drawer crashed")
	calls := 0

	out, err := g.Run(context.Background(), sample(), func(context.Context) error { calls++; return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, OutcomeFailed, out)

	// the identical retry is skipped even though nothing was produced
	out, err = g.Run(context.Background(), sample(), func(context.Context) error { calls++; return nil })
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)
	assert.Equal(t, 1, calls)
}

func TestGuard_WithoutFailureRecordingRetries(t *testing.T) {
	g := NewGuard(NewStore(newCache(t, "fingerprints")), WithFailureRecording(false))
	calls := 0

	out, _ := g.Run(context.Background(), sample(), func(context.Context) error { calls++; return errors.New("boom") })
	assert.Equal(t, OutcomeFailed, out)

	out, err := g.Run(context.Background(), sample(), func(context.Context) error { calls++; return nil })
	require.NoError(t, err)
	assert.Equal(t, OutcomeRendered, out)
	assert.Equal(t, 2, calls)

	out, _ = g.Run(context.Background(), sample(), func(context.Context) error { calls++; return nil })
	assert.Equal(t, OutcomeSkipped, out)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "rendered", OutcomeRendered.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "ignored", OutcomeIgnored.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestBinaryStore(t *testing.T) {
	c, err := cache.BinaryCacheBuilder("binaries", conf.CacheSize{}).Build()
	require.NoError(t, err)
	defer c.Close()
	s := NewBinaryStore(c)

	data := []byte("<svg/>")
	key, err := s.Put("/afx/cache/seq.svg", data)
	require.NoError(t, err)
	assert.Equal(t, "/afx/cache/seq.svg", key)
	data[0] = 'X'

	assert.True(t, s.Has(key))
	got, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, "<svg/>", string(got.Data))
	assert.Equal(t, "image/svg+xml", got.MimeType)
	assert.Equal(t, 6, got.Len())

	_, ok = s.Get("/afx/cache/absent.png")
	assert.False(t, ok)
}
