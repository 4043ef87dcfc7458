package printconf

import (
	"github.com/go-lynx/renderpool/cmd/renderpool/internal/base"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// CmdConfig prints the effective configuration.
var CmdConfig = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, bc, err := base.Load()
		if err != nil {
			return err
		}
		if cfg != nil {
			defer cfg.Close()
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(bc)
	},
}
