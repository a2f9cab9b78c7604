package talos

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	machineapi "github.com/siderolabs/talos/pkg/machinery/api/machine"
	"github.com/siderolabs/talos/pkg/machinery/client"
	clientconfig "github.com/siderolabs/talos/pkg/machinery/client/config"

	"github.com/talvirt/talvirt/internal/config"
)

// Client performs node-directed management calls authenticated by the
// cluster's client configuration.
type Client struct {
	cfg *clientconfig.Config
}

// NewClient parses the client configuration bytes into a Client.
func NewClient(talosconfig []byte) (*Client, error) {
	cfg, err := clientconfig.FromString(string(talosconfig))
	if err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	return &Client{cfg: cfg}, nil
}

// Connection seams for ApplyConfiguration, replaced in tests.
var (
	waitForEndpoint = waitForPort

	applyAuthenticated = func(ctx context.Context, c *Client, endpoint string, req *machineapi.ApplyConfigurationRequest) error {
		conn, err := c.dial(ctx, endpoint)
		if err != nil {
			return err
		}
		defer func() { _ = conn.Close() }()

		_, err = conn.ApplyConfiguration(client.WithNode(ctx, endpoint), req)
		return err
	}

	applyMaintenance = func(ctx context.Context, endpoint string, req *machineapi.ApplyConfigurationRequest) error {
		conn, err := client.New(ctx,
			client.WithEndpoints(endpoint),
			//nolint:gosec // InsecureSkipVerify is required for maintenance mode
			client.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
		)
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		defer func() { _ = conn.Close() }()

		if _, err := conn.ApplyConfiguration(ctx, req); err != nil {
			return fmt.Errorf("failed to apply configuration: %w", err)
		}

		return nil
	}
)

// ApplyConfiguration pushes a compiled machine configuration to a node.
//
// A node that already runs a configuration authenticates the call with the
// cluster credentials and treats a repeated apply as a no-op. A fresh node
// boots into maintenance mode without credentials and only accepts an
// insecure connection, so that path is the fallback.
func (c *Client) ApplyConfiguration(ctx context.Context, endpoint string, machineConfig []byte) error {
	if err := waitForEndpoint(ctx, endpoint, config.TalosAPIPort, 10*time.Minute); err != nil {
		return fmt.Errorf("failed to wait for management endpoint: %w", err)
	}

	applyReq := &machineapi.ApplyConfigurationRequest{
		Data: machineConfig,
		Mode: machineapi.ApplyConfigurationRequest_REBOOT,
	}

	if err := applyAuthenticated(ctx, c, endpoint, applyReq); err == nil {
		return nil
	}

	return applyMaintenance(ctx, endpoint, applyReq)
}

// Bootstrap issues the one-time bootstrap call initializing the control
// plane's consensus store from the given controller.
func (c *Client) Bootstrap(ctx context.Context, endpoint string) error {
	conn, err := c.dial(ctx, endpoint)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Bootstrap(ctx, &machineapi.BootstrapRequest{}); err != nil {
		return fmt.Errorf("failed to bootstrap: %w", err)
	}

	return nil
}

// Version returns the node's running version tag.
func (c *Client) Version(ctx context.Context, endpoint string) (string, error) {
	conn, err := c.dial(ctx, endpoint)
	if err != nil {
		return "", err
	}
	defer func() { _ = conn.Close() }()

	nodeCtx := client.WithNode(ctx, endpoint)

	version, err := conn.Version(nodeCtx)
	if err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}

	if len(version.Messages) == 0 {
		return "", fmt.Errorf("no version information returned")
	}

	return version.Messages[0].Version.Tag, nil
}

// ReadFile reads a file from the node. Read-only diagnostic call.
func (c *Client) ReadFile(ctx context.Context, endpoint, path string) ([]byte, error) {
	conn, err := c.dial(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	nodeCtx := client.WithNode(ctx, endpoint)

	r, err := conn.Read(nodeCtx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return data, nil
}

// Upgrade upgrades a single node to the given installer image. With
// preserve set the node keeps its data (required for single-node etcd and
// used for all rolling upgrades here). The call returns once the node has
// accepted the upgrade; WaitForReady tracks the reboot.
func (c *Client) Upgrade(ctx context.Context, endpoint, image string, preserve bool) error {
	conn, err := c.dial(ctx, endpoint)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	nodeCtx := client.WithNode(ctx, endpoint)

	req := &machineapi.UpgradeRequest{
		Image:    image,
		Preserve: preserve,
	}

	if _, err := conn.MachineClient.Upgrade(nodeCtx, req); err != nil {
		return fmt.Errorf("failed to initiate upgrade: %w", err)
	}

	return nil
}

// Kubeconfig retrieves the Kubernetes client configuration from a
// controller, waiting for the Kubernetes API to come up first.
func (c *Client) Kubeconfig(ctx context.Context, endpoint string, timeout time.Duration) ([]byte, error) {
	conn, err := c.dial(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, fmt.Errorf("timeout waiting for Kubernetes API to be ready")
		case <-ticker.C:
			kubeconfig, err := conn.Kubeconfig(ctx)
			if err == nil && len(kubeconfig) > 0 {
				return kubeconfig, nil
			}
		}
	}
}

// WaitForReady waits for a node to answer an authenticated version call,
// which it does only after it has rebooted into the applied configuration.
func (c *Client) WaitForReady(ctx context.Context, endpoint string, timeout time.Duration) error {
	if err := waitForPort(ctx, endpoint, config.TalosAPIPort, timeout); err != nil {
		return fmt.Errorf("failed to wait for node to come back: %w", err)
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("timeout waiting for node %s to be ready", endpoint)
		case <-ticker.C:
			conn, err := c.dial(ctx, endpoint)
			if err != nil {
				continue
			}

			_, err = conn.Version(client.WithNode(ctx, endpoint))
			_ = conn.Close()

			if err == nil {
				return nil
			}
		}
	}
}

// dial creates an authenticated connection to a node endpoint.
func (c *Client) dial(ctx context.Context, endpoint string) (*client.Client, error) {
	conn, err := client.New(ctx,
		client.WithConfig(c.cfg),
		client.WithEndpoints(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return conn, nil
}

// waitForPort waits for a TCP port to accept connections.
func waitForPort(ctx context.Context, ip string, port int, timeout time.Duration) error {
	address := net.JoinHostPort(ip, fmt.Sprintf("%d", port))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", address, 2*time.Second)
			if err == nil {
				_ = conn.Close()
				return nil
			}
		}
	}
}
