// Package plan computes the delta between the declared cluster and what the
// hypervisor and state marker actually hold.
package plan

import (
	"fmt"
	"io"

	"github.com/talvirt/talvirt/internal/image"
	"github.com/talvirt/talvirt/internal/provisioning"
)

// Status of a single desired resource.
type Status string

const (
	// StatusCreate means the resource is missing and apply will create it.
	StatusCreate Status = "create"
	// StatusExists means the resource is already present.
	StatusExists Status = "exists"
)

// Item is one desired resource with its observed status.
type Item struct {
	Resource string
	Name     string
	Status   Status
}

// Plan is the ordered list of desired resources.
type Plan struct {
	Items []Item
}

// Pending returns the number of resources apply would create.
func (p *Plan) Pending() int {
	n := 0
	for _, item := range p.Items {
		if item.Status == StatusCreate {
			n++
		}
	}
	return n
}

// Print writes the plan in a fixed-width table.
func (p *Plan) Print(w io.Writer) {
	for _, item := range p.Items {
		fmt.Fprintf(w, "%-8s %-14s %s\n", item.Status, item.Resource, item.Name)
	}
	fmt.Fprintf(w, "\n%d to create, %d unchanged\n", p.Pending(), len(p.Items)-p.Pending())
}

// Compute observes the hypervisor and the state marker and diffs them
// against the declared topology. It performs no writes.
func Compute(ctx *provisioning.Context) (*Plan, error) {
	p := &Plan{}

	imageVolume := image.VolumeName(ctx.Config.Talos.Version, ctx.Config.Talos.QemuGuestAgentVersion)
	exists, err := ctx.Virt.VolumeExists(imageVolume)
	if err != nil {
		return nil, fmt.Errorf("failed to check image volume: %w", err)
	}
	p.add("image volume", imageVolume, exists)

	for _, node := range ctx.Topology.All() {
		diskExists, err := ctx.Virt.VolumeExists(node.DiskVolume())
		if err != nil {
			return nil, fmt.Errorf("failed to check volume %s: %w", node.DiskVolume(), err)
		}
		p.add("disk volume", node.DiskVolume(), diskExists)

		domainExists, err := ctx.Virt.DomainExists(node.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check domain %s: %w", node.Name, err)
		}
		p.add("domain", node.Name, domainExists)
	}

	p.add("bootstrap", ctx.Config.ClusterName, ctx.Marker.Bootstrapped)

	return p, nil
}

func (p *Plan) add(resource, name string, exists bool) {
	status := StatusCreate
	if exists {
		status = StatusExists
	}
	p.Items = append(p.Items, Item{Resource: resource, Name: name, Status: status})
}
