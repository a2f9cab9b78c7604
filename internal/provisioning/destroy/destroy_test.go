package destroy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talvirt/talvirt/internal/config"
	"github.com/talvirt/talvirt/internal/platform/libvirt"
	"github.com/talvirt/talvirt/internal/provisioning"
	"github.com/talvirt/talvirt/internal/topology"
)

type fakeVirt struct {
	volumes   map[string]bool
	domains   map[string]bool
	deleteErr error
}

func (f *fakeVirt) EnsureVolumeFromFile(name, sourcePath string) error { return nil }
func (f *fakeVirt) CloneVolume(name, baseName string, sizeGB int) error {
	return nil
}
func (f *fakeVirt) VolumeExists(name string) (bool, error) { return f.volumes[name], nil }
func (f *fakeVirt) DeleteVolume(name string) error {
	delete(f.volumes, name)
	return nil
}
func (f *fakeVirt) EnsureDomain(spec libvirt.DomainSpec) error { return nil }
func (f *fakeVirt) DomainExists(name string) (bool, error)    { return f.domains[name], nil }
func (f *fakeVirt) DeleteDomain(name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.domains, name)
	return nil
}
func (f *fakeVirt) Close() error { return nil }

func testContext(t *testing.T, virt *fakeVirt) *provisioning.Context {
	t.Helper()

	cfg := &config.Config{
		ClusterName: "test",
		Controllers: 1,
		Workers:     1,
		Network:     config.NetworkConfig{Prefix: "10.0.0"},
		Talos: config.TalosConfig{
			Version:               "v1.12.4",
			QemuGuestAgentVersion: "10.1.0",
		},
	}

	topo, err := topology.Generate(cfg)
	require.NoError(t, err)

	ctx := provisioning.NewContext(context.Background(), cfg, topo, virt)
	ctx.MarkerPath = filepath.Join(t.TempDir(), "state.yaml")
	return ctx
}

func TestProvisionRemovesEverything(t *testing.T) {
	virt := &fakeVirt{
		volumes: map[string]bool{
			"talos-v1.12.4-qemu-ga-10.1.0.qcow2": true,
			"test-controller-0.qcow2":            true,
			"test-worker-0.qcow2":                true,
		},
		domains: map[string]bool{
			"test-controller-0": true,
			"test-worker-0":     true,
		},
	}

	ctx := testContext(t, virt)
	require.NoError(t, (&provisioning.Marker{Bootstrapped: true}).Save(ctx.MarkerPath))

	require.NoError(t, NewProvisioner().Provision(ctx))

	assert.Empty(t, virt.domains)
	assert.Empty(t, virt.volumes)

	_, err := os.Stat(ctx.MarkerPath)
	assert.True(t, os.IsNotExist(err))
}

func TestProvisionIdempotentOnEmptyHypervisor(t *testing.T) {
	virt := &fakeVirt{volumes: map[string]bool{}, domains: map[string]bool{}}
	ctx := testContext(t, virt)

	assert.NoError(t, NewProvisioner().Provision(ctx))
}

func TestProvisionStopsOnDomainError(t *testing.T) {
	virt := &fakeVirt{
		volumes:   map[string]bool{"test-controller-0.qcow2": true},
		domains:   map[string]bool{"test-controller-0": true},
		deleteErr: fmt.Errorf("hypervisor unavailable"),
	}
	ctx := testContext(t, virt)

	err := NewProvisioner().Provision(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hypervisor unavailable")
	// Marker untouched on failure.
	assert.True(t, virt.volumes["test-controller-0.qcow2"])
}
