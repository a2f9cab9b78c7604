package commands

import (
	"github.com/spf13/cobra"

	"github.com/talvirt/talvirt/cmd/talvirt/handlers"
)

// Health returns the command for checking cluster health.
//
// The check succeeds once every declared controller and worker reports the
// Kubernetes NodeReady condition.
//
// Optional flags:
//
//	--config, -c: Path to cluster configuration YAML file (default: talvirt.yaml)
func Health() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check cluster health",
		Long: `Verify that every declared node is registered and Ready.

The check uses the kubeconfig artifact written by apply and waits until the
declared number of controllers and workers report Ready, or fails after a
timeout.

Examples:
  # Check cluster health
  talvirt health

  # Check health for a specific config file
  talvirt health -c production.yaml`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Health(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: talvirt.yaml)")

	return cmd
}
