// Package exec implements engine.Constructor on top of an external converter command such as
// the asciidoctor CLI. Construction resolves the binary and runs its version probe; each
// conversion runs the command with the source on stdin and reads the result from stdout.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/go-lynx/renderpool/app/conf"
	"github.com/go-lynx/renderpool/app/log"
	"github.com/go-lynx/renderpool/engine"
	"github.com/google/uuid"
)

// Constructor builds command-backed engines.
type Constructor struct {
	cfg      conf.Exec
	lookPath func(string) (string, error)
}

// NewConstructor returns a Constructor for cfg.
func NewConstructor(cfg conf.Exec) *Constructor {
	return &Constructor{cfg: cfg, lookPath: osexec.LookPath}
}

// Construct resolves the command and probes it. The probe output becomes the engine version.
func (c *Constructor) Construct(ctx context.Context, kind engine.Kind) (engine.Engine, error) {
	if c.cfg.Command == "" {
		return nil, fmt.Errorf("no converter command configured")
	}
	path, err := c.lookPath(c.cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("resolve converter %q: %w", c.cfg.Command, err)
	}

	e := &Engine{
		id:      uuid.NewString(),
		kind:    kind,
		path:    path,
		args:    append([]string(nil), c.cfg.Args...),
		env:     append([]string(nil), c.cfg.Env...),
		backend: c.cfg.Backends[kind.String()],
	}
	if len(c.cfg.ProbeArgs) > 0 {
		var out bytes.Buffer
		cmd := e.command(ctx, append(append([]string(nil), e.args...), c.cfg.ProbeArgs...))
		cmd.Stdout = &out
		cmd.Stderr = &out
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("probe %s: %w: %s", path, err, strings.TrimSpace(out.String()))
		}
		e.version = firstLine(out.String())
	}
	log.Debugw("msg", "converter engine constructed", "kind", kind.String(), "engine", e.id, "version", e.version)
	return e, nil
}

// Engine runs one converter process per conversion.
type Engine struct {
	id      string
	kind    engine.Kind
	path    string
	args    []string
	env     []string
	backend string
	version string

	mu     sync.Mutex
	groups []*Group
}

func (e *Engine) ID() string { return e.id }

// Kind returns the kind the engine was built for.
func (e *Engine) Kind() engine.Kind { return e.kind }

// Version returns the first line of the probe output.
func (e *Engine) Version() string { return e.version }

// Convert runs the converter on source.
func (e *Engine) Convert(ctx context.Context, source string, opts engine.Options) (string, error) {
	args := append(append([]string(nil), e.args...), e.Args(opts)...)
	var stdout, stderr bytes.Buffer
	cmd := e.command(ctx, args)
	cmd.Stdin = strings.NewReader(source)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if opts.BaseDir != "" {
		cmd.Dir = opts.BaseDir
	}
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("convert with %s: %w: %s", e.path, err, strings.TrimSpace(stderr.String()))
	}
	if s := strings.TrimSpace(stderr.String()); s != "" {
		log.Warnw("msg", "converter reported warnings", "engine", e.id, "kind", e.kind.String(), "stderr", s)
	}
	return stdout.String(), nil
}

// Args builds the converter arguments for opts: backend, safe mode, embedding, base
// directory, sorted attributes, one -r per loaded extension and the output target. The source
// is always read from stdin.
func (e *Engine) Args(opts engine.Options) []string {
	var args []string
	backend := opts.Backend
	if backend == "" {
		backend = e.backend
	}
	if backend != "" {
		args = append(args, "-b", backend)
	}
	if opts.Safe != "" {
		args = append(args, "-S", opts.Safe)
	}
	if !opts.HeaderFooter {
		args = append(args, "-s")
	}
	if opts.BaseDir != "" {
		args = append(args, "-B", opts.BaseDir)
	}
	keys := make([]string, 0, len(opts.Attributes))
	for k := range opts.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := opts.Attributes[k]; v != "" {
			args = append(args, "-a", k+"="+v)
		} else {
			args = append(args, "-a", k)
		}
	}
	for _, src := range e.Extensions() {
		args = append(args, "-r", src)
	}
	out := opts.ToFile
	if out == "" {
		out = "-"
	}
	return append(args, "-o", out, "-")
}

// CreateExtensionGroup returns a new empty group.
func (e *Engine) CreateExtensionGroup() (engine.ExtensionGroup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := &Group{owner: e}
	e.groups = append(e.groups, g)
	return g, nil
}

// Extensions returns every source registered through this engine's groups, in registration
// order and without duplicates.
func (e *Engine) Extensions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, g := range e.groups {
		for _, s := range g.sources {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) command(ctx context.Context, args []string) *osexec.Cmd {
	cmd := osexec.CommandContext(ctx, e.path, args...)
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}
	return cmd
}

// Group holds the extension sources loaded with -r on every conversion.
type Group struct {
	owner   *Engine
	sources []string
}

// Register adds sources to the group; an empty list drops everything the group holds.
func (g *Group) Register(_ engine.Engine, sources []string) error {
	g.owner.mu.Lock()
	defer g.owner.mu.Unlock()
	if len(sources) == 0 {
		g.sources = nil
		return nil
	}
	g.sources = append(g.sources, sources...)
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
