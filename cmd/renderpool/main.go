package main

import (
	"log"

	"github.com/go-lynx/renderpool/cmd/renderpool/internal/base"
	"github.com/go-lynx/renderpool/cmd/renderpool/internal/convert"
	"github.com/go-lynx/renderpool/cmd/renderpool/internal/diagram"
	"github.com/go-lynx/renderpool/cmd/renderpool/internal/extensions"
	"github.com/go-lynx/renderpool/cmd/renderpool/internal/printconf"
	"github.com/go-lynx/renderpool/cmd/renderpool/internal/warm"
	"github.com/spf13/cobra"
)

// release is the CLI version.
const release = "v0.1.0"

var rootCmd = &cobra.Command{
	Use:     "renderpool",
	Short:   "renderpool: warm document conversion engines with plugin reconciliation",
	Long:    `renderpool keeps specialized document conversion engines warm, loads user extensions from the working directory and caches diagram renders.`,
	Version: release,
	// usage is noise after a runtime failure
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(convert.CmdConvert)
	rootCmd.AddCommand(extensions.CmdExtensions)
	rootCmd.AddCommand(warm.CmdWarm)
	rootCmd.AddCommand(diagram.CmdDiagram)
	rootCmd.AddCommand(printconf.CmdConfig)

	rootCmd.PersistentFlags().StringVarP(&base.ConfPath, "conf", "c", "", "configuration file or directory")
	rootCmd.PersistentFlags().StringVar(&base.LogLevel, "log-level", "", "log level: error|warn|info|debug (overrides the configuration)")
	rootCmd.PersistentFlags().StringVarP(&base.WorkDir, "workdir", "w", "", "working directory holding the .<tool>/lib plugin folder")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
