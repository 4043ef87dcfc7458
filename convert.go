package renderpool

import (
	"context"
	"time"

	"github.com/go-lynx/renderpool/app/observability/metrics"
	"github.com/go-lynx/renderpool/engine"
)

// Convert renders source with kind's shared engine.
func (o *Orchestrator) Convert(ctx context.Context, kind engine.Kind, source string, opts engine.Options) (string, error) {
	e, err := o.Engine(ctx, kind)
	if err != nil {
		return "", err
	}
	return timedConvert(ctx, kind, e, source, opts)
}

// ConvertOnce renders source with a generic engine that is discarded afterwards.
func (o *Orchestrator) ConvertOnce(ctx context.Context, source string, opts engine.Options) (string, error) {
	e, err := o.Generic(ctx)
	if err != nil {
		return "", err
	}
	return timedConvert(ctx, engine.KindGeneric, e, source, opts)
}

func timedConvert(ctx context.Context, kind engine.Kind, e engine.Engine, source string, opts engine.Options) (string, error) {
	start := time.Now()
	out, err := e.Convert(ctx, source, opts)
	metrics.ObserveConvert(kind.String(), time.Since(start), err)
	return out, err
}
