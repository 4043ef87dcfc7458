// Package render holds the content-addressed render cache: a fingerprint per output target,
// a Guard that skips renders whose inputs are unchanged, a binary store for rendered images
// and the diagram service built on both.
package render

import (
	"github.com/cespare/xxhash/v2"
)

// Request identifies one render and every input that influences its output.
type Request struct {
	// Target is the output identity and the cache key.
	Target string
	// TargetDir is the directory the output is written under.
	TargetDir string
	// Type is the diagram language or output type tag.
	Type string
	// Source is the full diagram source.
	Source string
	// Node is the document node that requested the render.
	Node string
	// Options is the renderer option string.
	Options string
}

// Key returns the cache key for r.
func (r Request) Key() string {
	return r.Target
}

// Fingerprint hashes every input of r. Fields are separated so that moving bytes between
// adjacent fields changes the result.
func Fingerprint(r Request) uint64 {
	d := xxhash.New()
	for _, s := range [...]string{r.Target, r.TargetDir, r.Type, r.Source, r.Node, r.Options} {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
