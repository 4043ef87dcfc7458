package engine

import (
	"fmt"
	"strings"
)

// Kind identifies the output target an engine instance is specialized for.
type Kind int

const (
	// KindGeneric labels pool instances that are not bound to a specialization.
	KindGeneric Kind = iota
	// KindPlain produces plain output, used for previews and outlines.
	KindPlain
	// KindHTML produces HTML documents.
	KindHTML
	// KindNonHTML produces non-HTML targets such as DocBook.
	KindNonHTML
	// KindReveal produces presentation slides.
	KindReveal
)

var kindNames = map[Kind]string{
	KindGeneric: "generic",
	KindPlain:   "plain",
	KindHTML:    "html",
	KindNonHTML: "nonhtml",
	KindReveal:  "reveal",
}

// Kinds returns the four specialized kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindPlain, KindHTML, KindNonHTML, KindReveal}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Specialized reports whether k is one of the four specialized kinds.
func (k Kind) Specialized() bool {
	return k >= KindPlain && k <= KindReveal
}

// ParseKind converts a kind name back to a Kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindGeneric, fmt.Errorf("unknown engine kind %q", s)
}
