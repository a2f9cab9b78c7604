package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/talvirt/talvirt/internal/platform/talos"
)

const osReleasePath = "/etc/os-release"

// Info prints, per node, the running version tag, the installer image that
// version resolves to, and the OS release name. Read-only: nothing is
// provisioned or mutated.
func Info(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	pctx, cleanup, err := buildContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	nodes, err := nodeClientFromArtifact()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tADDRESS\tROLE\tVERSION\tIMAGE\tOS")

	for _, node := range pctx.Topology.All() {
		image := "-"
		version, err := nodes.Version(ctx, node.Address)
		if err != nil {
			version = fmt.Sprintf("unreachable (%v)", err)
		} else {
			image = talos.InstallerImage(pctx.Marker.SchematicID, version)
		}

		osName := "-"
		if release, err := nodes.ReadFile(ctx, node.Address, osReleasePath); err == nil {
			osName = prettyName(string(release))
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", node.Name, node.Address, node.Role, version, image, osName)
	}

	return w.Flush()
}

// prettyName extracts PRETTY_NAME from os-release content.
func prettyName(release string) string {
	for _, line := range strings.Split(release, "\n") {
		if value, found := strings.CutPrefix(line, "PRETTY_NAME="); found {
			return strings.Trim(value, `"`)
		}
	}
	return "-"
}
