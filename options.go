package renderpool

import (
	"context"

	"github.com/go-lynx/renderpool/app/conf"
	"github.com/go-lynx/renderpool/extension"
)

// ResolveFunc resolves the working directory provider. It runs once, in the background.
type ResolveFunc func(ctx context.Context) (extension.Resolver, error)

// Option configures an Orchestrator.
type Option func(*options)

type options struct {
	cfg     *conf.Bootstrap
	resolve ResolveFunc
}

// WithConfig uses bc instead of conf.Default(). bc is validated by New.
func WithConfig(bc *conf.Bootstrap) Option {
	return func(o *options) {
		o.cfg = bc
	}
}

// WithResolver publishes r as the working directory provider once startup resolves it.
func WithResolver(r extension.Resolver) Option {
	return func(o *options) {
		o.resolve = func(context.Context) (extension.Resolver, error) { return r, nil }
	}
}

// WithResolveFunc replaces directory resolution. Until fn returns, reconciliation is skipped.
func WithResolveFunc(fn ResolveFunc) Option {
	return func(o *options) {
		o.resolve = fn
	}
}
