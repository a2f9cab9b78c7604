package provisioning

import (
	"context"

	"github.com/talvirt/talvirt/internal/config"
	"github.com/talvirt/talvirt/internal/manifests"
	"github.com/talvirt/talvirt/internal/platform/libvirt"
	"github.com/talvirt/talvirt/internal/platform/talos"
	"github.com/talvirt/talvirt/internal/topology"
)

// State holds the shared results of provisioning tasks. It is progressively
// populated as tasks complete; graph edges order every write before its
// readers.
type State struct {
	// Image results
	SchematicID string

	// Manifest rendering results
	CNIManifest []byte

	// Compilation results
	ControllerConfig []byte
	WorkerConfig     []byte
	TalosConfig      []byte

	// Node client, created once the client configuration exists
	Nodes NodeClient

	// Cluster results
	Kubeconfig []byte
}

// NodeClientFactory creates a NodeClient from client configuration bytes.
type NodeClientFactory func(talosconfig []byte) (NodeClient, error)

// Context wraps all dependencies and state needed by provisioning tasks and
// phases.
type Context struct {
	context.Context
	Config     *config.Config
	Topology   *topology.Topology
	State      *State
	Marker     *Marker
	MarkerPath string
	Secrets    *talos.SecretsBundle
	Virt       libvirt.Manager
	Renderer   manifests.Renderer
	NewNodes   NodeClientFactory
	Observer   Observer
}

// NewContext creates a provisioning context with a console observer and
// empty state.
func NewContext(
	ctx context.Context,
	cfg *config.Config,
	topo *topology.Topology,
	virt libvirt.Manager,
) *Context {
	return &Context{
		Context:    ctx,
		Config:     cfg,
		Topology:   topo,
		State:      &State{},
		Marker:     &Marker{},
		MarkerPath: MarkerFile,
		Virt:       virt,
		Observer:   NewConsoleObserver(),
	}
}

// WithContext returns a shallow copy carrying ctx as its cancellation
// context. The graph scheduler uses it to propagate group cancellation into
// tasks.
func (c *Context) WithContext(ctx context.Context) *Context {
	clone := *c
	clone.Context = ctx
	return &clone
}
