package commands

import (
	"github.com/spf13/cobra"

	"github.com/talvirt/talvirt/cmd/talvirt/handlers"
)

// Apply returns the command for provisioning and managing the cluster.
//
// This command handles the complete lifecycle of cluster provisioning:
// loading configuration, building the node image, defining VMs, applying
// machine configs, and bootstrapping Kubernetes.
//
// Optional flags:
//
//	--config, -c: Path to cluster configuration YAML file (default: talvirt.yaml)
func Apply() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the cluster",
		Long: `Create or update your Kubernetes cluster.

This command provisions all virtual machines on the local libvirt hypervisor
and bootstraps Kubernetes using Talos Linux. It is idempotent: resources that
already exist are left alone, and the cluster is bootstrapped at most once.

If no config file is specified, it looks for talvirt.yaml in the current
directory.

Examples:
  # Create the cluster using talvirt.yaml in the current directory
  talvirt apply

  # Create the cluster using a specific config file
  talvirt apply -c production.yaml

  # Re-apply after an interrupted run
  talvirt apply`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: talvirt.yaml)")

	return cmd
}
