// Package topology derives the concrete node set from the declared
// controller and worker counts. Node names and addresses are pure functions
// of role and index, so the topology is recomputed on every invocation and
// never persisted.
package topology

import (
	"fmt"

	"github.com/talvirt/talvirt/internal/config"
)

// Role distinguishes control plane nodes from workload nodes.
type Role string

const (
	// RoleController runs the control plane components.
	RoleController Role = "controller"

	// RoleWorker runs only workload components.
	RoleWorker Role = "worker"
)

// Node is one cluster member. Exactly one node carries RoleController with
// Index 0; it is the designated bootstrap target.
type Node struct {
	Role    Role
	Index   int
	Name    string
	Address string
}

// IsBootstrapTarget reports whether this node receives the one-time
// bootstrap call.
func (n Node) IsBootstrapTarget() bool {
	return n.Role == RoleController && n.Index == 0
}

// DiskVolume is the name of the node's boot volume in the storage pool.
func (n Node) DiskVolume() string {
	return n.Name + ".qcow2"
}

// Topology is the ordered node set: controllers first, then workers, each
// group ordered by index. Upgrade and apply iterate in this order.
type Topology struct {
	Controllers []Node
	Workers     []Node
}

// Generate derives the node set for the declared counts. The counts must
// already have passed config validation; Generate re-checks the range
// capacities so it is safe to call with unvalidated input.
func Generate(cfg *config.Config) (*Topology, error) {
	if cfg.Controllers < 1 || cfg.Controllers > config.MaxControllers {
		return nil, fmt.Errorf("controller count %d outside range 1..%d", cfg.Controllers, config.MaxControllers)
	}
	if cfg.Workers < 0 || cfg.Workers > config.MaxWorkers {
		return nil, fmt.Errorf("worker count %d outside range 0..%d", cfg.Workers, config.MaxWorkers)
	}

	t := &Topology{
		Controllers: make([]Node, 0, cfg.Controllers),
		Workers:     make([]Node, 0, cfg.Workers),
	}

	for i := range cfg.Controllers {
		t.Controllers = append(t.Controllers, Node{
			Role:    RoleController,
			Index:   i,
			Name:    fmt.Sprintf("%s-controller-%d", cfg.ClusterName, i),
			Address: fmt.Sprintf("%s.%d", cfg.Network.Prefix, config.ControllerAddrOffset+i),
		})
	}

	for i := range cfg.Workers {
		t.Workers = append(t.Workers, Node{
			Role:    RoleWorker,
			Index:   i,
			Name:    fmt.Sprintf("%s-worker-%d", cfg.ClusterName, i),
			Address: fmt.Sprintf("%s.%d", cfg.Network.Prefix, config.WorkerAddrOffset+i),
		})
	}

	return t, nil
}

// All returns controllers followed by workers, the canonical enumeration
// order for sequential operations.
func (t *Topology) All() []Node {
	all := make([]Node, 0, len(t.Controllers)+len(t.Workers))
	all = append(all, t.Controllers...)
	all = append(all, t.Workers...)
	return all
}

// Bootstrap returns the designated bootstrap target, controller index 0.
func (t *Topology) Bootstrap() Node {
	return t.Controllers[0]
}

// ControllerAddresses returns the controller addresses in index order.
func (t *Topology) ControllerAddresses() []string {
	return addresses(t.Controllers)
}

// WorkerAddresses returns the worker addresses in index order.
func (t *Topology) WorkerAddresses() []string {
	return addresses(t.Workers)
}

func addresses(nodes []Node) []string {
	addrs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		addrs = append(addrs, n.Address)
	}
	return addrs
}
