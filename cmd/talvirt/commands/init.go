package commands

import (
	"github.com/spf13/cobra"

	"github.com/talvirt/talvirt/cmd/talvirt/handlers"
)

// Init returns the command for preparing cluster prerequisites.
//
// This command generates the secrets bundle and builds the Talos node image
// without creating any virtual machines.
//
// Optional flags:
//
//	--config, -c: Path to cluster configuration YAML file (default: talvirt.yaml)
func Init() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate secrets and build the node image",
		Long: `Prepare the prerequisites for a cluster without creating any VMs.

This command generates the cluster secrets bundle (written to secrets.yaml)
and builds the Talos node image from the image factory, uploading it to the
libvirt storage pool. Running it again reuses existing secrets and skips the
image build if the volume is already present.

Examples:
  # Prepare using talvirt.yaml in the current directory
  talvirt init

  # Prepare using a specific config file
  talvirt init -c production.yaml`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: talvirt.yaml)")

	return cmd
}
