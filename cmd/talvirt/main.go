// Package main is the entry point for the talvirt CLI.
//
// talvirt is a command-line tool for provisioning Kubernetes clusters on a
// local libvirt hypervisor using Talos Linux. It builds the node image from
// the Talos image factory, defines the virtual machines, applies machine
// configs, and bootstraps Kubernetes, all from a single declarative YAML
// file.
//
// Commands: init, plan, apply, plan-apply, health, info, upgrade, destroy.
//
// For detailed usage information, run:
//
//	talvirt --help
package main

import (
	"fmt"
	"os"

	"github.com/talvirt/talvirt/cmd/talvirt/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
