package extension

import (
	"os"
)

// Resolver supplies the directory the plugin directory is derived from. It is consulted on
// every reconciliation, so the answer may change between calls.
type Resolver interface {
	WorkingDirectory() string
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func() string

// WorkingDirectory calls f.
func (f ResolverFunc) WorkingDirectory() string {
	return f()
}

// StaticDir is a Resolver that always returns the same directory.
type StaticDir string

// WorkingDirectory returns d.
func (d StaticDir) WorkingDirectory() string {
	return string(d)
}

// CurrentDir resolves to the process working directory at call time.
func CurrentDir() Resolver {
	return ResolverFunc(func() string {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		return wd
	})
}
