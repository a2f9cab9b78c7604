// Package destroy tears the cluster down: domains, node disks, the image
// volume, and the state marker.
package destroy

import (
	"fmt"

	"github.com/talvirt/talvirt/internal/image"
	"github.com/talvirt/talvirt/internal/provisioning"
)

const phase = "Destroy"

// Provisioner removes every cluster resource. Artifact files (talosconfig,
// kubeconfig, secrets) are left on disk; the secrets allow a later apply to
// recreate the same cluster identity.
type Provisioner struct{}

// NewProvisioner creates a destroy provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name returns the phase name.
func (p *Provisioner) Name() string {
	return phase
}

// Provision deletes domains first (so disks are unreferenced), then the
// node disks, the shared image volume, and finally the state marker.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	for _, node := range ctx.Topology.All() {
		ctx.Observer.Printf("[%s] Removing domain %s", phase, node.Name)
		if err := ctx.Virt.DeleteDomain(node.Name); err != nil {
			return fmt.Errorf("failed to delete domain %s: %w", node.Name, err)
		}

		if err := ctx.Virt.DeleteVolume(node.DiskVolume()); err != nil {
			return fmt.Errorf("failed to delete volume %s: %w", node.DiskVolume(), err)
		}
	}

	imageVolume := image.VolumeName(ctx.Config.Talos.Version, ctx.Config.Talos.QemuGuestAgentVersion)
	ctx.Observer.Printf("[%s] Removing image volume %s", phase, imageVolume)
	if err := ctx.Virt.DeleteVolume(imageVolume); err != nil {
		return fmt.Errorf("failed to delete image volume: %w", err)
	}

	if err := provisioning.DeleteMarker(ctx.MarkerPath); err != nil {
		return err
	}

	ctx.Observer.Printf("[%s] Cluster %s destroyed", phase, ctx.Config.ClusterName)
	return nil
}
