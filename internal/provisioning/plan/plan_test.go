package plan

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talvirt/talvirt/internal/config"
	"github.com/talvirt/talvirt/internal/platform/libvirt"
	"github.com/talvirt/talvirt/internal/provisioning"
	"github.com/talvirt/talvirt/internal/topology"
)

type fakeVirt struct {
	volumes map[string]bool
	domains map[string]bool
}

func (f *fakeVirt) EnsureVolumeFromFile(name, sourcePath string) error { f.volumes[name] = true; return nil }
func (f *fakeVirt) CloneVolume(name, baseName string, sizeGB int) error {
	f.volumes[name] = true
	return nil
}
func (f *fakeVirt) VolumeExists(name string) (bool, error) { return f.volumes[name], nil }
func (f *fakeVirt) DeleteVolume(name string) error         { delete(f.volumes, name); return nil }
func (f *fakeVirt) EnsureDomain(spec libvirt.DomainSpec) error {
	f.domains[spec.Name] = true
	return nil
}
func (f *fakeVirt) DomainExists(name string) (bool, error) { return f.domains[name], nil }
func (f *fakeVirt) DeleteDomain(name string) error         { delete(f.domains, name); return nil }
func (f *fakeVirt) Close() error                           { return nil }

func testContext(t *testing.T, virt *fakeVirt, bootstrapped bool) *provisioning.Context {
	t.Helper()

	cfg := &config.Config{
		ClusterName: "test",
		Controllers: 1,
		Workers:     1,
		Network:     config.NetworkConfig{Prefix: "10.0.0", Bridge: "virbr0"},
		Talos: config.TalosConfig{
			Version:               "v1.12.4",
			QemuGuestAgentVersion: "10.1.0",
		},
	}

	topo, err := topology.Generate(cfg)
	require.NoError(t, err)

	ctx := provisioning.NewContext(context.Background(), cfg, topo, virt)
	ctx.Marker.Bootstrapped = bootstrapped
	return ctx
}

func TestComputeFreshCluster(t *testing.T) {
	virt := &fakeVirt{volumes: map[string]bool{}, domains: map[string]bool{}}
	p, err := Compute(testContext(t, virt, false))
	require.NoError(t, err)

	// image volume + (disk volume + domain) per node + bootstrap
	assert.Len(t, p.Items, 1+2*2+1)
	assert.Equal(t, len(p.Items), p.Pending())
}

func TestComputePartialCluster(t *testing.T) {
	virt := &fakeVirt{
		volumes: map[string]bool{
			"talos-v1.12.4-qemu-ga-10.1.0.qcow2": true,
			"test-controller-0.qcow2":            true,
		},
		domains: map[string]bool{
			"test-controller-0": true,
		},
	}

	p, err := Compute(testContext(t, virt, false))
	require.NoError(t, err)

	byName := map[string]Status{}
	for _, item := range p.Items {
		byName[item.Name] = item.Status
	}

	assert.Equal(t, StatusExists, byName["talos-v1.12.4-qemu-ga-10.1.0.qcow2"])
	assert.Equal(t, StatusExists, byName["test-controller-0"])
	assert.Equal(t, StatusCreate, byName["test-worker-0"])
	assert.Equal(t, StatusCreate, byName["test-worker-0.qcow2"])
	assert.Equal(t, StatusCreate, byName["test"])
}

func TestComputeBootstrappedCluster(t *testing.T) {
	virt := &fakeVirt{volumes: map[string]bool{}, domains: map[string]bool{}}
	p, err := Compute(testContext(t, virt, true))
	require.NoError(t, err)

	var bootstrap *Item
	for i := range p.Items {
		if p.Items[i].Resource == "bootstrap" {
			bootstrap = &p.Items[i]
		}
	}
	require.NotNil(t, bootstrap)
	assert.Equal(t, StatusExists, bootstrap.Status)
}

func TestPrint(t *testing.T) {
	p := &Plan{Items: []Item{
		{Resource: "domain", Name: "test-controller-0", Status: StatusCreate},
		{Resource: "domain", Name: "test-worker-0", Status: StatusExists},
	}}

	var buf bytes.Buffer
	p.Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "create")
	assert.Contains(t, out, "test-controller-0")
	assert.Contains(t, out, "1 to create, 1 unchanged")
}
