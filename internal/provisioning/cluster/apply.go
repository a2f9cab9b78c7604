// Package cluster drives the apply lifecycle: image volume, node domains,
// configuration compile and apply, the one-time bootstrap, and the health
// gate, ordered as an explicit task graph.
package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/talvirt/talvirt/internal/config"
	"github.com/talvirt/talvirt/internal/image"
	"github.com/talvirt/talvirt/internal/k8s"
	"github.com/talvirt/talvirt/internal/platform/libvirt"
	"github.com/talvirt/talvirt/internal/platform/talos"
	"github.com/talvirt/talvirt/internal/provisioning"
	"github.com/talvirt/talvirt/internal/topology"
)

const (
	kubeconfigTimeout = 5 * time.Minute
	healthTimeout     = 15 * time.Minute
)

type imageBuilder interface {
	Build(ctx context.Context) (string, error)
}

// Factory seams for tests.
var (
	newImageBuilder = func(ctx *provisioning.Context) imageBuilder {
		return image.NewBuilder(
			image.DefaultFactoryURL,
			ctx.Config.Talos.Version,
			ctx.Config.Talos.QemuGuestAgentVersion,
			ctx.Virt,
		)
	}
	newK8sClient      = k8s.ClientFromKubeconfig
	waitForNodesReady = k8s.WaitForNodesReady
)

// Apply builds and runs the apply graph.
func Apply(ctx *provisioning.Context) error {
	return BuildGraph(ctx).Run(ctx)
}

// BuildGraph assembles the apply task graph. Per-node disk, domain, and
// apply tasks run in parallel where dependencies allow; bootstrap is gated
// on every controller apply, and health on everything.
func BuildGraph(ctx *provisioning.Context) *provisioning.Graph {
	g := provisioning.NewGraph()

	g.Add(provisioning.Task{
		ID:   "image",
		Name: "image volume",
		Run:  EnsureImage,
	})
	g.Add(provisioning.Task{
		ID:   "render",
		Name: "render manifests",
		Run:  renderManifests,
	})
	g.Add(provisioning.Task{
		ID:    "compile",
		Name:  "compile configuration",
		After: []string{"image", "render"},
		Run:   compileConfigs,
	})

	var controllerApplies, allApplies []string
	for _, node := range ctx.Topology.All() {
		diskID := "disk:" + node.Name
		domainID := "domain:" + node.Name
		applyID := "apply:" + node.Name

		g.Add(provisioning.Task{
			ID:    diskID,
			Name:  "disk " + node.Name,
			After: []string{"image"},
			Run:   ensureDiskTask(node),
		})
		g.Add(provisioning.Task{
			ID:    domainID,
			Name:  "domain " + node.Name,
			After: []string{diskID},
			Run:   ensureDomainTask(node),
		})
		g.Add(provisioning.Task{
			ID:    applyID,
			Name:  "apply " + node.Name,
			After: []string{domainID, "compile"},
			Run:   applyNodeTask(node),
		})

		allApplies = append(allApplies, applyID)
		if node.Role == topology.RoleController {
			controllerApplies = append(controllerApplies, applyID)
		}
	}

	g.Add(provisioning.Task{
		ID:    "bootstrap",
		Name:  "bootstrap",
		After: controllerApplies,
		Run:   bootstrapTask,
	})
	g.Add(provisioning.Task{
		ID:    "kubeconfig",
		Name:  "kubeconfig",
		After: []string{"bootstrap"},
		Run:   fetchKubeconfig,
	})
	g.Add(provisioning.Task{
		ID:    "health",
		Name:  "health check",
		After: append([]string{"kubeconfig"}, allApplies...),
		Run:   healthTask,
	})

	return g
}

// EnsureImage reuses the existing image volume when the marker still knows
// its schematic; otherwise it runs the full image pipeline.
func EnsureImage(ctx *provisioning.Context) error {
	volumeName := image.VolumeName(ctx.Config.Talos.Version, ctx.Config.Talos.QemuGuestAgentVersion)

	if ctx.Marker.SchematicID != "" {
		exists, err := ctx.Virt.VolumeExists(volumeName)
		if err != nil {
			return err
		}
		if exists {
			ctx.Observer.Printf("Image volume %s already present", volumeName)
			ctx.State.SchematicID = ctx.Marker.SchematicID
			return nil
		}
	}

	schematicID, err := newImageBuilder(ctx).Build(ctx)
	if err != nil {
		return err
	}

	ctx.State.SchematicID = schematicID
	ctx.Marker.SchematicID = schematicID
	return ctx.Marker.Save(ctx.MarkerPath)
}

func renderManifests(ctx *provisioning.Context) error {
	cni, err := ctx.Renderer.RenderCNI(ctx)
	if err != nil {
		return fmt.Errorf("failed to render CNI manifest: %w", err)
	}
	ctx.State.CNIManifest = cni
	return nil
}

// compileConfigs produces the shared role documents and the client
// configuration, and creates the node client from it.
func compileConfigs(ctx *provisioning.Context) error {
	gen := talos.NewGenerator(
		ctx.Config.ClusterName,
		ctx.Config.Kubernetes.Version,
		ctx.Config.Talos.Version,
		ctx.Config.Endpoint(),
		ctx.Config.VIP(),
		ctx.State.SchematicID,
		ctx.Secrets,
	)

	controllerConfig, err := gen.GenerateControllerConfig(ctx.State.CNIManifest, ctx.Renderer.LoadBalancer())
	if err != nil {
		return fmt.Errorf("failed to generate controller config: %w", err)
	}

	workerConfig, err := gen.GenerateWorkerConfig()
	if err != nil {
		return fmt.Errorf("failed to generate worker config: %w", err)
	}

	talosConfig, err := gen.GetClientConfig()
	if err != nil {
		return fmt.Errorf("failed to generate client config: %w", err)
	}

	nodes, err := ctx.NewNodes(talosConfig)
	if err != nil {
		return fmt.Errorf("failed to create node client: %w", err)
	}

	ctx.State.ControllerConfig = controllerConfig
	ctx.State.WorkerConfig = workerConfig
	ctx.State.TalosConfig = talosConfig
	ctx.State.Nodes = nodes
	return nil
}

func ensureDiskTask(node topology.Node) func(*provisioning.Context) error {
	return func(ctx *provisioning.Context) error {
		imageVolume := image.VolumeName(ctx.Config.Talos.Version, ctx.Config.Talos.QemuGuestAgentVersion)
		return ctx.Virt.CloneVolume(node.DiskVolume(), imageVolume, int(machineSize(ctx, node).DiskGB))
	}
}

func ensureDomainTask(node topology.Node) func(*provisioning.Context) error {
	return func(ctx *provisioning.Context) error {
		size := machineSize(ctx, node)
		return ctx.Virt.EnsureDomain(libvirt.DomainSpec{
			Name:       node.Name,
			VCPU:       size.VCPU,
			MemoryMB:   size.MemoryMB,
			DiskVolume: node.DiskVolume(),
			Bridge:     ctx.Config.Network.Bridge,
		})
	}
}

// applyNodeTask specializes the shared role document with the node's
// hostname and pushes it to the node's management endpoint.
func applyNodeTask(node topology.Node) func(*provisioning.Context) error {
	return func(ctx *provisioning.Context) error {
		doc := ctx.State.WorkerConfig
		if node.Role == topology.RoleController {
			doc = ctx.State.ControllerConfig
		}

		specialized, err := talos.SpecializeHostname(doc, node.Name)
		if err != nil {
			return fmt.Errorf("failed to specialize config for %s: %w", node.Name, err)
		}

		return ctx.State.Nodes.ApplyConfiguration(ctx, node.Address, specialized)
	}
}

func fetchKubeconfig(ctx *provisioning.Context) error {
	kubeconfig, err := ctx.State.Nodes.Kubeconfig(ctx, ctx.Topology.Bootstrap().Address, kubeconfigTimeout)
	if err != nil {
		return fmt.Errorf("failed to retrieve kubeconfig: %w", err)
	}
	ctx.State.Kubeconfig = kubeconfig
	return nil
}

func healthTask(ctx *provisioning.Context) error {
	return CheckHealth(ctx, ctx.State.Kubeconfig, len(ctx.Topology.Controllers), len(ctx.Topology.Workers), healthTimeout)
}

// CheckHealth waits until the cluster reports the declared Ready node
// counts through the Kubernetes API.
func CheckHealth(ctx context.Context, kubeconfig []byte, controllers, workers int, timeout time.Duration) error {
	client, err := newK8sClient(kubeconfig)
	if err != nil {
		return err
	}
	return waitForNodesReady(ctx, client, controllers, workers, timeout)
}

func machineSize(ctx *provisioning.Context, node topology.Node) config.MachineSize {
	if node.Role == topology.RoleController {
		return ctx.Config.Machine.ControlPlane
	}
	return ctx.Config.Machine.Worker
}
