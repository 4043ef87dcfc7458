// Package renderpool keeps conversion engines warm for a document editor.
//
// An Orchestrator builds one shared engine per specialized kind (plain, html, nonhtml,
// reveal) and a pool of disposable generic engines, all in the background. Kind accessors
// block until their engine is ready, bring the engine's user extensions in line with the
// working directory's plugin folder, and return it. Generic engines are handed out once and
// never returned.
//
//	o, err := renderpool.New(exec.NewConstructor(bc.Renderpool.Exec), renderpool.WithConfig(bc))
//	if err != nil {
//		return err
//	}
//	o.Start(ctx)
//	html, err := o.HTML(ctx)
//
// The render package holds the fingerprint cache that diagram rendering consults before
// invoking a drawer.
package renderpool
