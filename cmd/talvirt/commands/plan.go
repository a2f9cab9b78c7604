package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/talvirt/talvirt/cmd/talvirt/handlers"
)

// Plan returns the command for previewing pending changes.
//
// Optional flags:
//
//	--config, -c: Path to cluster configuration YAML file (default: talvirt.yaml)
func Plan() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would create",
		Long: `Print the pending actions without making any changes.

The plan recomputes the desired resources from the configuration and diffs
them against the hypervisor and the local state marker.

Examples:
  # Show the plan for talvirt.yaml in the current directory
  talvirt plan

  # Show the plan for a specific config file
  talvirt plan -c production.yaml`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), configPath, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: talvirt.yaml)")

	return cmd
}

// PlanApply returns the command that prints the plan and then applies it.
func PlanApply() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plan-apply",
		Short: "Show the plan, then apply it",
		Long: `Print the pending actions, then create or update the cluster.

Equivalent to running 'talvirt plan' followed by 'talvirt apply'.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.PlanApply(cmd.Context(), configPath, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: talvirt.yaml)")

	return cmd
}
