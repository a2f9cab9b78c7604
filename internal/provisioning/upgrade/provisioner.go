// Package upgrade moves every node to a new installer image, strictly one
// node at a time.
package upgrade

import (
	"fmt"
	"time"

	"github.com/talvirt/talvirt/internal/provisioning"
	"github.com/talvirt/talvirt/internal/topology"
)

const phase = "Upgrade"

var (
	nodeUpgradeTimeout = 15 * time.Minute
	versionPollPeriod  = 15 * time.Second
)

// Provisioner upgrades nodes sequentially in enumeration order: controllers
// first (quorum survives one member rebooting), then workers. Any node
// failure halts the remainder; already upgraded nodes stay upgraded.
type Provisioner struct {
	installerImage string
	targetVersion  string
}

// NewProvisioner creates an upgrade provisioner targeting the given
// installer image and version tag.
func NewProvisioner(installerImage, targetVersion string) *Provisioner {
	return &Provisioner{
		installerImage: installerImage,
		targetVersion:  targetVersion,
	}
}

// Name returns the phase name.
func (p *Provisioner) Name() string {
	return phase
}

// Provision runs the upgrade sequence over the whole topology.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	nodes := ctx.Topology.All()
	ctx.Observer.Printf("[%s] Upgrading %d nodes to %s", phase, len(nodes), p.targetVersion)

	for i, node := range nodes {
		if err := p.upgradeNode(ctx, node); err != nil {
			return fmt.Errorf("upgrade halted at node %d/%d (%s): %w", i+1, len(nodes), node.Name, err)
		}
	}

	return nil
}

func (p *Provisioner) upgradeNode(ctx *provisioning.Context, node topology.Node) error {
	current, err := ctx.State.Nodes.Version(ctx, node.Address)
	if err != nil {
		return fmt.Errorf("failed to read current version: %w", err)
	}

	if current == p.targetVersion {
		ctx.Observer.Printf("[%s] %s already at %s, skipping", phase, node.Name, p.targetVersion)
		return nil
	}

	ctx.Observer.Printf("[%s] Upgrading %s (%s -> %s)", phase, node.Name, current, p.targetVersion)

	if err := ctx.State.Nodes.Upgrade(ctx, node.Address, p.installerImage, true); err != nil {
		return fmt.Errorf("upgrade call failed: %w", err)
	}

	if err := p.waitForVersion(ctx, node); err != nil {
		return err
	}

	ctx.Observer.Printf("[%s] %s is now at %s", phase, node.Name, p.targetVersion)
	return nil
}

// waitForVersion blocks until the node reports the target version after its
// upgrade reboot.
func (p *Provisioner) waitForVersion(ctx *provisioning.Context, node topology.Node) error {
	deadline := time.After(nodeUpgradeTimeout)
	ticker := time.NewTicker(versionPollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("timeout waiting for %s to reach %s", node.Name, p.targetVersion)
		case <-ticker.C:
			version, err := ctx.State.Nodes.Version(ctx, node.Address)
			if err != nil {
				// The node is rebooting into the new image.
				continue
			}
			if version == p.targetVersion {
				return nil
			}
		}
	}
}
