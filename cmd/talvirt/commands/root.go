// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing
// and flag binding. Command execution is delegated to handler functions in the
// handlers package.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talvirt/talvirt/internal/config"
)

// Root returns the root command for the talvirt CLI.
//
// The root command serves as the entry point and parent for all subcommands.
// It provides basic CLI metadata and organizes the command hierarchy.
// Invoking it without a subcommand, with an unknown subcommand, or with
// surplus arguments prints usage to stderr and fails.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "talvirt",
		Short:         "Provision Kubernetes on libvirt using Talos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			applySettings(config.SettingsFromEnv())
		},
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				cmd.PrintErrln(cmd.UsageString())
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.PrintErrln(cmd.UsageString())
			return fmt.Errorf("a command is required")
		},
	}

	// Lifecycle commands
	cmd.AddCommand(Init())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Apply())
	cmd.AddCommand(PlanApply())
	cmd.AddCommand(Destroy())

	// Inspection commands
	cmd.AddCommand(Health())
	cmd.AddCommand(Info())

	// Maintenance commands
	cmd.AddCommand(Upgrade())
	cmd.AddCommand(Version())

	return cmd
}

// noArgs rejects positional arguments, printing usage to stderr first.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		cmd.PrintErrln(cmd.UsageString())
		return fmt.Errorf("unexpected argument %q", args[0])
	}
	return nil
}
