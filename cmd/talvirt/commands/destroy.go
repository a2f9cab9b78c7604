package commands

import (
	"github.com/spf13/cobra"

	"github.com/talvirt/talvirt/cmd/talvirt/handlers"
)

// Destroy returns the command for tearing the cluster down.
//
// Optional flags:
//
//	--config, -c: Path to cluster configuration YAML file (default: talvirt.yaml)
func Destroy() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Destroy the cluster",
		Long: `Remove all cluster resources from the hypervisor.

Deletes every domain, every node disk, the shared image volume, and the
local state marker. Artifact files (secrets.yaml, talosconfig, kubeconfig)
are left on disk; the persisted secrets let a later apply recreate the
cluster with the same identity.

Examples:
  # Destroy the cluster described by talvirt.yaml
  talvirt destroy`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: talvirt.yaml)")

	return cmd
}
