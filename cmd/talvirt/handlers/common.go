// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic and can be tested independently of the
// CLI framework; external dependencies enter through the factory variables
// below so tests can replace them.
package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/talvirt/talvirt/internal/config"
	"github.com/talvirt/talvirt/internal/manifests"
	"github.com/talvirt/talvirt/internal/platform/libvirt"
	"github.com/talvirt/talvirt/internal/platform/talos"
	"github.com/talvirt/talvirt/internal/provisioning"
	"github.com/talvirt/talvirt/internal/provisioning/cluster"
	"github.com/talvirt/talvirt/internal/topology"
)

// Artifact files written to the working directory.
const (
	secretsFile     = "secrets.yaml"
	talosConfigPath = "talosconfig"
	kubeconfigPath  = "kubeconfig"
)

// LibvirtURI is the hypervisor connection the CLI targets.
const LibvirtURI = "qemu:///system"

// Factory function variables, replaced in tests for dependency injection.
var (
	loadConfigFile = config.LoadFile

	getOrGenerateSecrets = talos.GetOrGenerateSecrets

	newVirtManager = func(pool string) (libvirt.Manager, error) {
		return libvirt.Connect(LibvirtURI, pool)
	}

	newNodeClient = func(talosconfig []byte) (provisioning.NodeClient, error) {
		return talos.NewClient(talosconfig)
	}

	newRenderer = func(kubernetesVersion string) manifests.Renderer {
		return manifests.NewCiliumRenderer(kubernetesVersion)
	}

	runApply    = cluster.Apply
	ensureImage = cluster.EnsureImage
	checkHealth = cluster.CheckHealth

	writeFile = os.WriteFile
	readFile  = os.ReadFile
)

// loadConfig loads the cluster configuration, defaulting to talvirt.yaml.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		configPath = config.DefaultConfigFile
	}
	return loadConfigFile(configPath)
}

// buildContext assembles the provisioning context shared by all lifecycle
// commands. The returned cleanup closes the hypervisor connection.
func buildContext(ctx context.Context, cfg *config.Config) (*provisioning.Context, func(), error) {
	topo, err := topology.Generate(cfg)
	if err != nil {
		return nil, nil, err
	}

	virt, err := newVirtManager(cfg.Pool)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to hypervisor: %w", err)
	}

	marker, err := provisioning.LoadMarker(provisioning.MarkerFile)
	if err != nil {
		_ = virt.Close()
		return nil, nil, err
	}

	pctx := provisioning.NewContext(ctx, cfg, topo, virt)
	pctx.Marker = marker
	pctx.NewNodes = newNodeClient
	pctx.Renderer = newRenderer(cfg.Kubernetes.Version)

	return pctx, func() { _ = virt.Close() }, nil
}

// nodeClientFromArtifact creates a node client from the persisted
// talosconfig artifact.
func nodeClientFromArtifact() (provisioning.NodeClient, error) {
	talosconfig, err := readFile(talosConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s - has the cluster been applied? %w", talosConfigPath, err)
	}
	return newNodeClient(talosconfig)
}
