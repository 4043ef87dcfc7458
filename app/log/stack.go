package log

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
)

const (
	stackSkip      = 5
	stackMaxFrames = 32
)

var stackEnabled atomic.Bool

// frames from these packages are left out of captured stacks
var stackFilter = []string{
	"github.com/go-kratos/kratos",
	"github.com/rs/zerolog",
	"github.com/go-lynx/renderpool/app/log",
}

func setStackEnabled(enabled bool) {
	stackEnabled.Store(enabled)
}

// captureStack formats up to stackMaxFrames frames as "func file:line" lines.
func captureStack() string {
	if !stackEnabled.Load() {
		return ""
	}
	pcs := make([]uintptr, stackMaxFrames)
	n := runtime.Callers(stackSkip, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var b strings.Builder
	for {
		fr, more := frames.Next()
		if (fr.Function != "" || fr.File != "") &&
			!hasAnyPrefix(fr.Function, stackFilter) && !hasAnyPrefix(fr.File, stackFilter) {
			fmt.Fprintf(&b, "%s %s:%d\n", fr.Function, fr.File, fr.Line)
		}
		if !more {
			break
		}
	}
	return b.String()
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
