package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-lynx/renderpool/app/conf"
	"github.com/go-lynx/renderpool/app/log"
	"github.com/go-lynx/renderpool/extension"
)

// ErrEmptyTarget is returned for a diagram request without a target.
var ErrEmptyTarget = errors.New("diagram target is empty")

// Format is the image format a Drawer produces.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// FormatOf picks SVG for .svg targets and PNG otherwise.
func FormatOf(target string) Format {
	if strings.HasSuffix(target, ".svg") {
		return FormatSVG
	}
	return FormatPNG
}

// Drawer renders diagram source to an image.
type Drawer interface {
	Draw(ctx context.Context, source string, format Format, workDir string) ([]byte, error)
}

// DrawerFunc adapts a function to Drawer.
type DrawerFunc func(ctx context.Context, source string, format Format, workDir string) ([]byte, error)

func (f DrawerFunc) Draw(ctx context.Context, source string, format Format, workDir string) ([]byte, error) {
	return f(ctx, source, format, workDir)
}

// DiagramService renders diagrams one at a time behind a Guard. Outputs go to
// workDir/Target, or to the binary store when Target contains the cache marker.
type DiagramService struct {
	mu       sync.Mutex
	drawer   Drawer
	guard    *Guard
	binaries *BinaryStore
	workDir  extension.Resolver
	cfg      conf.Diagram
}

// NewDiagramService wires a diagram service. A nil workDir resolves to the process directory.
func NewDiagramService(drawer Drawer, guard *Guard, binaries *BinaryStore, workDir extension.Resolver, cfg conf.Diagram) *DiagramService {
	if workDir == nil {
		workDir = extension.CurrentDir()
	}
	if cfg.CacheMarker == "" {
		cfg.CacheMarker = "/afx/cache"
	}
	return &DiagramService{
		drawer:   drawer,
		guard:    guard,
		binaries: binaries,
		workDir:  workDir,
		cfg:      cfg,
	}
}

// Render draws req unless it is ineligible or unchanged since the last attempt.
func (s *DiagramService) Render(ctx context.Context, req Request) (Outcome, error) {
	if req.Target == "" {
		return OutcomeIgnored, ErrEmptyTarget
	}
	cached := strings.Contains(req.Target, s.cfg.CacheMarker)
	if !cached && !strings.HasSuffix(req.Target, ".png") && !strings.HasSuffix(req.Target, ".svg") {
		return OutcomeIgnored, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req = s.prepare(req)
	return s.guard.Run(ctx, req, func(ctx context.Context) error {
		log.Debugw("msg", "diagram render started", "target", req.Target)
		dir := s.workDir.WorkingDirectory()
		img, err := s.drawer.Draw(ctx, req.Source, FormatOf(req.Target), dir)
		if err != nil {
			return fmt.Errorf("draw %s: %w", req.Target, err)
		}
		if cached {
			if s.binaries == nil {
				return fmt.Errorf("no binary store for cached target %s", req.Target)
			}
			if _, err := s.binaries.Put(req.Target, img); err != nil {
				return fmt.Errorf("cache %s: %w", req.Target, err)
			}
		} else {
			out := filepath.Join(dir, req.Target)
			if err := os.MkdirAll(filepath.Join(dir, req.TargetDir), 0o755); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(out, img, 0o644); err != nil {
				return err
			}
		}
		log.Debugw("msg", "diagram render finished", "target", req.Target, "bytes", len(img))
		return nil
	})
}

// prepare completes diagram sources the way the drawers expect them: start/end markers for
// bare bodies, a default DPI and default ditaa options.
func (s *DiagramService) prepare(req Request) Request {
	src := req.Source
	src = wrapIfMissing(src, req.Node, "uml", "uml")
	src = wrapIfMissing(src, req.Node, "ditaa", "ditaa")
	src = wrapIfMissing(src, req.Node, "graphviz", "uml")

	if s.cfg.DPI > 0 {
		if strings.Contains(req.Node, "uml") && !strings.Contains(src, "skinparam") && !strings.Contains(src, "dpi") {
			src = strings.Replace(src, "@startuml", fmt.Sprintf("@startuml\nskinparam dpi %d\n", s.cfg.DPI), 1)
		}
		if strings.Contains(src, "@startdot") && !strings.Contains(src, "dpi=") {
			src = strings.Replace(src, "{", fmt.Sprintf("{\ndpi=%d;\n", s.cfg.DPI), 1)
		}
	}

	if strings.Contains(src, "@startditaa") && !strings.Contains(src, "@startditaa(") {
		scale := s.cfg.Scale
		if scale <= 0 {
			scale = 1
		}
		opts := req.Options
		if opts != "" {
			opts = ditaaFlags.Replace(opts)
			if !strings.Contains(opts, "scale=") {
				opts = fmt.Sprintf("--scale=%d,", scale) + opts
			}
		} else {
			opts = fmt.Sprintf("--scale=%d", scale)
		}
		req.Options = opts
		src = strings.Replace(src, "@startditaa", fmt.Sprintf("@startditaa(%s)", opts), 1)
	}

	req.Source = src
	return req
}

// ditaaFlags rewrites attribute-style ditaa options to command-line flags.
var ditaaFlags = strings.NewReplacer(
	"separation=false", "--no-separation",
	"antialias=false", "--no-antialias",
	"round-corners=true", "--round-corners",
	"shadows=false", "--no-shadows",
	"debug=true", "--debug",
	"fixed-slope=true", "--fixed-slope",
	"transparent=true", "--transparent",
	"tabs=", "--tabs=",
	"scale=", "--scale=",
)

func wrapIfMissing(src, node, ifNode, header string) string {
	if !strings.Contains(node, ifNode) {
		return src
	}
	if !strings.Contains(src, "@start") {
		src = "@start" + header + "\n" + src
	}
	if !strings.Contains(src, "@end") {
		src += "\n@end" + header
	}
	return src
}
