package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/go-lynx/renderpool/cmd/renderpool/internal/base"
	"github.com/go-lynx/renderpool/engine"
	"github.com/spf13/cobra"
)

// CmdConvert converts one document with an engine of the requested kind.
var CmdConvert = &cobra.Command{
	Use:   "convert [file|-]",
	Short: "Convert a document with a warm engine",
	Long: `Convert reads a document from a file or stdin and converts it with the shared engine of
the given kind, after loading the user extensions found in the working directory.
Kind generic uses a disposable pool engine and skips extension loading.`,
	Example: `  # Convert to HTML on stdout
  renderpool convert README.adoc

  # Build slides with extra attributes
  renderpool convert deck.adoc --kind reveal --out deck.html -a revealjs_theme=white`,
	Args: cobra.MaximumNArgs(1),
	RunE: run,
}

var (
	kindName   string
	output     string
	backend    string
	safe       string
	standalone bool
	attributes map[string]string
	timeout    time.Duration
)

func init() {
	CmdConvert.Flags().StringVarP(&kindName, "kind", "k", "html", "engine kind: plain|html|nonhtml|reveal|generic")
	CmdConvert.Flags().StringVarP(&output, "out", "o", "", "output file (default stdout)")
	CmdConvert.Flags().StringVarP(&backend, "backend", "b", "", "converter backend (default per kind)")
	CmdConvert.Flags().StringVarP(&safe, "safe", "S", "", "safe mode: unsafe|safe|server|secure")
	CmdConvert.Flags().BoolVarP(&standalone, "standalone", "s", true, "render a standalone document with header and footer")
	CmdConvert.Flags().StringToStringVarP(&attributes, "attribute", "a", nil, "document attribute name=value (repeatable)")
	CmdConvert.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
}

func run(cmd *cobra.Command, args []string) error {
	kind, err := engine.ParseKind(kindName)
	if err != nil {
		return err
	}
	source, name, err := readSource(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	bc, done, err := base.Setup()
	if err != nil {
		return err
	}
	defer done()

	o, err := base.Orchestrator(bc)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	o.Start(ctx)

	dir, err := base.Dir()
	if err != nil {
		return err
	}
	if name != "" {
		dir = filepath.Dir(name)
	}
	opts := engine.Options{
		Backend:      backend,
		BaseDir:      dir,
		Safe:         safe,
		HeaderFooter: standalone,
		Attributes:   attributes,
	}

	var out string
	if kind == engine.KindGeneric {
		out, err = o.ConvertOnce(ctx, source, opts)
	} else {
		out, err = o.Convert(ctx, kind, source, opts)
	}
	if err != nil {
		return fmt.Errorf("convert with %s engine: %w", kind, err)
	}

	if output == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
		return err
	}
	color.Green("%s -> %s (%s)\n", displayName(name), output, kind)
	return nil
}

func readSource(stdin io.Reader, args []string) (source, name string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), "", err
	}
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", "", err
	}
	return string(data), abs, nil
}

func displayName(name string) string {
	if name == "" {
		return "stdin"
	}
	return filepath.Base(name)
}
