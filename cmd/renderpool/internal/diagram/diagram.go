package diagram

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/go-lynx/renderpool/app/cache"
	"github.com/go-lynx/renderpool/app/conf"
	"github.com/go-lynx/renderpool/app/log"
	"github.com/go-lynx/renderpool/app/observability/metrics"
	"github.com/go-lynx/renderpool/cmd/renderpool/internal/base"
	"github.com/go-lynx/renderpool/extension"
	"github.com/go-lynx/renderpool/render"
	"github.com/spf13/cobra"
)

// CmdDiagram renders diagram sources through the fingerprint cache.
var CmdDiagram = &cobra.Command{
	Use:   "diagram file...",
	Short: "Render diagram sources, skipping unchanged ones",
	Long: `Diagram renders each source file to an image next to the working directory. A file given
twice with unchanged inputs renders once. Images are drawn by the configured diagram command
(renderpool.diagram.command, plantuml -pipe by default).`,
	Example: `  renderpool diagram flow.puml seq.puml --dir images --format svg`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    run,
}

var (
	targetDir  string
	format     string
	node       string
	options    string
	printStats bool
)

func init() {
	CmdDiagram.Flags().StringVarP(&targetDir, "dir", "d", "images", "image directory relative to the working directory")
	CmdDiagram.Flags().StringVarP(&format, "format", "f", "png", "image format: png|svg")
	CmdDiagram.Flags().StringVar(&node, "node", "uml", "diagram node: uml|ditaa|graphviz")
	CmdDiagram.Flags().StringVar(&options, "options", "", "drawer options, e.g. scale=2,shadows=false")
	CmdDiagram.Flags().BoolVar(&printStats, "stats", false, "print cache statistics")
}

func run(cmd *cobra.Command, args []string) error {
	if format != string(render.FormatPNG) && format != string(render.FormatSVG) {
		return fmt.Errorf("unsupported format %q", format)
	}
	bc, done, err := base.Setup()
	if err != nil {
		return err
	}
	defer done()
	dir, err := base.Dir()
	if err != nil {
		return err
	}

	caches := cache.NewManager()
	defer caches.Close()
	registerCacheMetrics(caches)

	svc, err := newService(bc, dir, caches)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, file := range args {
		src, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		req := render.Request{
			Target:    filepath.ToSlash(filepath.Join(targetDir, name+"."+format)),
			TargetDir: targetDir,
			Type:      strings.TrimPrefix(filepath.Ext(file), "."),
			Source:    string(src),
			Node:      node,
			Options:   options,
		}
		outcome, err := svc.Render(cmd.Context(), req)
		switch {
		case err != nil:
			failed++
			color.New(color.FgRed).Fprintf(out, "  %-8s %s: %v\n", outcome, req.Target, err)
		case outcome == render.OutcomeRendered:
			color.New(color.FgGreen).Fprintf(out, "  %-8s %s\n", outcome, req.Target)
		default:
			color.New(color.FgYellow).Fprintf(out, "  %-8s %s\n", outcome, req.Target)
		}
	}

	if printStats {
		for name, m := range caches.Stats() {
			fmt.Fprintf(out, "%s: %s\n", name, m)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d diagram(s) failed", failed)
	}
	return nil
}

// registerCacheMetrics exports the caches' ristretto counters. A failure only costs metrics.
func registerCacheMetrics(caches *cache.Manager) bool {
	if err := metrics.RegisterCollector(metrics.NewCacheCollector(caches)); err != nil {
		log.Warnw("msg", "cache metrics unavailable", "err", err)
		return false
	}
	return true
}

func newService(bc *conf.Bootstrap, dir string, caches *cache.Manager) (*render.DiagramService, error) {
	c := bc.Renderpool.Cache
	fingerprints, err := cache.FingerprintCacheBuilder("fingerprints", c.Fingerprints).BuildIn(caches)
	if err != nil {
		return nil, err
	}
	binaries, err := cache.BinaryCacheBuilder("binaries", c.Binaries).BuildIn(caches)
	if err != nil {
		return nil, err
	}

	drawer := render.CommandDrawer{
		Command: bc.Renderpool.Diagram.Command,
		Args:    bc.Renderpool.Diagram.Args,
	}

	guard := render.NewGuard(render.NewStore(fingerprints), render.WithFailureRecording(!c.ForgetFailures))
	return render.NewDiagramService(drawer, guard, render.NewBinaryStore(binaries), extension.StaticDir(dir), bc.Renderpool.Diagram), nil
}
