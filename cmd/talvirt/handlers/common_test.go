package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/talvirt/talvirt/internal/config"
	"github.com/talvirt/talvirt/internal/manifests"
	"github.com/talvirt/talvirt/internal/platform/libvirt"
	"github.com/talvirt/talvirt/internal/provisioning"
)

type fakeVirt struct {
	mu      sync.Mutex
	volumes map[string]bool
	domains map[string]bool
}

func newFakeVirt() *fakeVirt {
	return &fakeVirt{volumes: map[string]bool{}, domains: map[string]bool{}}
}

func (f *fakeVirt) EnsureVolumeFromFile(name, sourcePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes[name] = true
	return nil
}

func (f *fakeVirt) CloneVolume(name, baseName string, sizeGB int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes[name] = true
	return nil
}

func (f *fakeVirt) VolumeExists(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volumes[name], nil
}

func (f *fakeVirt) DeleteVolume(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.volumes, name)
	return nil
}

func (f *fakeVirt) EnsureDomain(spec libvirt.DomainSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domains[spec.Name] = true
	return nil
}

func (f *fakeVirt) DomainExists(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.domains[name], nil
}

func (f *fakeVirt) DeleteDomain(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.domains, name)
	return nil
}

func (f *fakeVirt) Close() error { return nil }

type fakeNodes struct {
	version   string
	osRelease string
}

func (f *fakeNodes) ApplyConfiguration(ctx context.Context, endpoint string, machineConfig []byte) error {
	return nil
}

func (f *fakeNodes) Bootstrap(ctx context.Context, endpoint string) error { return nil }

func (f *fakeNodes) Version(ctx context.Context, endpoint string) (string, error) {
	return f.version, nil
}

func (f *fakeNodes) ReadFile(ctx context.Context, endpoint, path string) ([]byte, error) {
	return []byte(f.osRelease), nil
}

func (f *fakeNodes) Upgrade(ctx context.Context, endpoint, image string, preserve bool) error {
	return nil
}

func (f *fakeNodes) Kubeconfig(ctx context.Context, endpoint string, timeout time.Duration) ([]byte, error) {
	return []byte("kubeconfig"), nil
}

func (f *fakeNodes) WaitForReady(ctx context.Context, endpoint string, timeout time.Duration) error {
	return nil
}

type fakeRenderer struct{}

func (fakeRenderer) RenderCNI(ctx context.Context) ([]byte, error) { return []byte("cni"), nil }
func (fakeRenderer) LoadBalancer() []byte                          { return []byte("lb") }

func testClusterConfig() *config.Config {
	return &config.Config{
		ClusterName: "test",
		Controllers: 1,
		Workers:     1,
		Network:     config.NetworkConfig{Prefix: "10.0.0", Bridge: "virbr0"},
		Pool:        "default",
		Talos: config.TalosConfig{
			Version:               "v1.12.4",
			QemuGuestAgentVersion: "10.1.0",
		},
		Kubernetes: config.KubernetesConfig{Version: "v1.34.1"},
		Machine: config.MachineConfig{
			ControlPlane: config.MachineSize{VCPU: 2, MemoryMB: 4096, DiskGB: 20},
			Worker:       config.MachineSize{VCPU: 2, MemoryMB: 4096, DiskGB: 40},
		},
	}
}

// stubCommon replaces the config loader and hypervisor factory, isolates the
// working directory, and restores everything on cleanup.
func stubCommon(t *testing.T, virt *fakeVirt) {
	t.Helper()
	t.Chdir(t.TempDir())

	origLoad, origVirt, origRenderer := loadConfigFile, newVirtManager, newRenderer
	loadConfigFile = func(path string) (*config.Config, error) {
		return testClusterConfig(), nil
	}
	newVirtManager = func(pool string) (libvirt.Manager, error) {
		return virt, nil
	}
	newRenderer = func(kubernetesVersion string) manifests.Renderer {
		return fakeRenderer{}
	}
	t.Cleanup(func() {
		loadConfigFile, newVirtManager, newRenderer = origLoad, origVirt, origRenderer
	})
}

func stubNodeClient(t *testing.T, nodes provisioning.NodeClient) {
	t.Helper()

	orig := newNodeClient
	newNodeClient = func(talosconfig []byte) (provisioning.NodeClient, error) {
		return nodes, nil
	}
	t.Cleanup(func() { newNodeClient = orig })
}
