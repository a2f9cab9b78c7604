package cluster

import (
	"fmt"

	"github.com/talvirt/talvirt/internal/provisioning"
)

// bootstrapTask issues the one-time bootstrap call to controller index 0.
// The persisted marker guards it: re-running apply on a bootstrapped cluster
// must never bootstrap again, since the node-side call is unsafe to repeat.
func bootstrapTask(ctx *provisioning.Context) error {
	if ctx.Marker.Bootstrapped {
		ctx.Observer.Printf("Cluster already bootstrapped, skipping")
		return nil
	}

	target := ctx.Topology.Bootstrap()
	ctx.Observer.Printf("Bootstrapping cluster via %s (%s)", target.Name, target.Address)

	if err := ctx.State.Nodes.WaitForReady(ctx, target.Address, kubeconfigTimeout); err != nil {
		return fmt.Errorf("bootstrap target not ready: %w", err)
	}

	if err := ctx.State.Nodes.Bootstrap(ctx, target.Address); err != nil {
		return fmt.Errorf("failed to bootstrap cluster: %w", err)
	}

	ctx.Marker.Bootstrapped = true
	if err := ctx.Marker.Save(ctx.MarkerPath); err != nil {
		return fmt.Errorf("bootstrap succeeded but marker write failed: %w", err)
	}

	return nil
}
