package commands

import (
	"github.com/spf13/cobra"

	"github.com/talvirt/talvirt/cmd/talvirt/handlers"
)

// Upgrade returns the command for upgrading Talos on every node.
//
// Nodes are upgraded strictly one at a time, controllers before workers,
// and the command ends with a full health check.
//
// Optional flags:
//
//	--config, -c: Path to cluster configuration YAML file (default: talvirt.yaml)
func Upgrade() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade Talos on all nodes",
		Long: `Upgrade every node to the Talos version in the configuration.

Nodes are upgraded one at a time, controllers first, waiting for each node
to come back on the target version before moving on. Nodes already on the
target version are skipped, so an interrupted upgrade can be resumed by
running the command again.

Examples:
  # Upgrade to the version in talvirt.yaml
  talvirt upgrade`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Upgrade(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: talvirt.yaml)")

	return cmd
}
