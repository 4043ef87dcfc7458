package extensions

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/go-lynx/renderpool/cmd/renderpool/internal/base"
	"github.com/go-lynx/renderpool/extension"
	"github.com/spf13/cobra"
)

// CmdExtensions lists the user extensions an engine would load for the working directory.
var CmdExtensions = &cobra.Command{
	Use:     "extensions",
	Short:   "List user extensions discovered in the working directory",
	Example: `  renderpool extensions --workdir ~/books/guide`,
	Args:    cobra.NoArgs,
	RunE:    run,
}

func run(cmd *cobra.Command, _ []string) error {
	_, bc, err := base.Load()
	if err != nil {
		return err
	}
	dir, err := base.Dir()
	if err != nil {
		return err
	}

	x := bc.Renderpool.Extensions
	cfg := extension.Config{Tool: x.Tool, Depth: x.Depth, Patterns: x.Patterns}
	lib := cfg.LibDir(dir)

	out := cmd.OutOrStdout()
	if _, err := os.Stat(lib); errors.Is(err, fs.ErrNotExist) {
		color.New(color.FgYellow).Fprintf(out, "No plugin directory at %s; engines will have their extensions cleared.\n", lib)
		return nil
	}

	files, err := extension.Scan(lib, cfg.Depth, cfg.Patterns)
	if err != nil {
		color.New(color.FgRed).Fprintf(out, "Scan problems: %v\n", err)
	}
	color.New(color.FgCyan).Fprintf(out, "%s (depth %d, patterns %v)\n", lib, cfg.Depth, cfg.Patterns)
	if len(files) == 0 {
		color.New(color.FgYellow).Fprintln(out, "  no extensions found")
		return nil
	}
	for _, f := range files {
		fmt.Fprintf(out, "  %s\n", f)
	}
	color.New(color.FgGreen).Fprintf(out, "%d extension(s)\n", len(files))
	return nil
}
