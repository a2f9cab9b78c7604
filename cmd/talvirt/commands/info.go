package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/talvirt/talvirt/cmd/talvirt/handlers"
)

// Info returns the command for displaying per-node details.
//
// Optional flags:
//
//	--config, -c: Path to cluster configuration YAML file (default: talvirt.yaml)
func Info() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show per-node version and OS details",
		Long: `Display a table of every declared node with its address, role,
Talos version, and OS release as reported by the node itself.

Nodes that cannot be reached are listed as unreachable rather than failing
the whole command.

Examples:
  # Show node details
  talvirt info`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Info(cmd.Context(), configPath, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: talvirt.yaml)")

	return cmd
}
