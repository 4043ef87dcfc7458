package render

import (
	"context"

	"github.com/go-lynx/renderpool/app/log"
	"github.com/go-lynx/renderpool/app/observability/metrics"
)

// Outcome is the result of a guarded render.
type Outcome int

const (
	// OutcomeSkipped means the stored fingerprint matched and nothing ran.
	OutcomeSkipped Outcome = iota
	// OutcomeRendered means the render ran and succeeded.
	OutcomeRendered
	// OutcomeFailed means the render ran and returned an error.
	OutcomeFailed
	// OutcomeIgnored means the request was not eligible for rendering at all.
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRendered:
		return "rendered"
	case OutcomeFailed:
		return "failed"
	case OutcomeIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Guard runs a render only when its inputs differ from the last attempt for the same target.
//
// By default the fingerprint is stored after every attempt, including failed ones, so an
// identical request after a failure is skipped until an input changes. WithFailureRecording(false)
// stores it only on success.
//
// Guard does not serialize renders. Two concurrent Runs for one key may both render; the later
// Put wins.
type Guard struct {
	store          Store
	recordFailures bool
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithFailureRecording controls whether failed renders update the stored fingerprint.
func WithFailureRecording(record bool) GuardOption {
	return func(g *Guard) {
		g.recordFailures = record
	}
}

// NewGuard creates a Guard over store.
func NewGuard(store Store, opts ...GuardOption) *Guard {
	g := &Guard{store: store, recordFailures: true}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Changed reports whether req would render, without running anything.
func (g *Guard) Changed(req Request) bool {
	prev, ok := g.store.Get(req.Key())
	return !ok || prev != Fingerprint(req)
}

// Run calls render unless req's fingerprint equals the stored one for its key.
func (g *Guard) Run(ctx context.Context, req Request, render func(context.Context) error) (Outcome, error) {
	key := req.Key()
	fp := Fingerprint(req)
	if prev, ok := g.store.Get(key); ok && prev == fp {
		log.Debugw("msg", "render skipped, inputs unchanged", "target", key)
		metrics.IncRender(OutcomeSkipped.String())
		return OutcomeSkipped, nil
	}

	err := render(ctx)
	if err == nil || g.recordFailures {
		if perr := g.store.Put(key, fp); perr != nil {
			log.Warnw("msg", "failed to store render fingerprint", "target", key, "err", perr)
		}
	}
	if err != nil {
		log.ErrorwCtx(ctx, "msg", "render failed", "target", key, "err", err)
		metrics.IncRender(OutcomeFailed.String())
		return OutcomeFailed, err
	}
	metrics.IncRender(OutcomeRendered.String())
	return OutcomeRendered, nil
}
