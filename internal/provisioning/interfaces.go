package provisioning

import (
	"context"
	"time"
)

// Phase is a unit of sequential provisioning work.
type Phase interface {
	// Name returns a human-readable phase name for logs.
	Name() string
	// Provision executes the phase.
	Provision(ctx *Context) error
}

// NodeClient is the management endpoint surface the drivers call per node.
type NodeClient interface {
	// ApplyConfiguration pushes a machine configuration document to a node.
	ApplyConfiguration(ctx context.Context, endpoint string, machineConfig []byte) error
	// Bootstrap initializes the control plane from one controller.
	Bootstrap(ctx context.Context, endpoint string) error
	// Version returns a node's running version tag.
	Version(ctx context.Context, endpoint string) (string, error)
	// ReadFile reads a file from a node.
	ReadFile(ctx context.Context, endpoint, path string) ([]byte, error)
	// Upgrade moves a node to a new installer image.
	Upgrade(ctx context.Context, endpoint, image string, preserve bool) error
	// Kubeconfig retrieves the cluster's Kubernetes client configuration.
	Kubeconfig(ctx context.Context, endpoint string, timeout time.Duration) ([]byte, error)
	// WaitForReady blocks until a node answers authenticated calls.
	WaitForReady(ctx context.Context, endpoint string, timeout time.Duration) error
}
