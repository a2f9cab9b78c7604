package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talvirt/talvirt/internal/config"
)

func testConfig(controllers, workers int) *config.Config {
	return &config.Config{
		ClusterName: "test",
		Controllers: controllers,
		Workers:     workers,
		Network:     config.NetworkConfig{Prefix: "192.168.122"},
	}
}

func TestGenerate(t *testing.T) {
	topo, err := Generate(testConfig(3, 2))
	require.NoError(t, err)

	require.Len(t, topo.Controllers, 3)
	require.Len(t, topo.Workers, 2)

	assert.Equal(t, "test-controller-0", topo.Controllers[0].Name)
	assert.Equal(t, "192.168.122.10", topo.Controllers[0].Address)
	assert.Equal(t, "192.168.122.12", topo.Controllers[2].Address)

	assert.Equal(t, "test-worker-0", topo.Workers[0].Name)
	assert.Equal(t, "192.168.122.20", topo.Workers[0].Address)
	assert.Equal(t, "192.168.122.21", topo.Workers[1].Address)
}

func TestGenerateAddressRangesNeverOverlap(t *testing.T) {
	// Maximum counts: controllers end at .19, workers start at .20.
	topo, err := Generate(testConfig(config.MaxControllers, config.MaxWorkers))
	require.NoError(t, err)

	seen := map[string]string{}
	for _, n := range topo.All() {
		if other, dup := seen[n.Address]; dup {
			t.Fatalf("address %s assigned to both %s and %s", n.Address, other, n.Name)
		}
		seen[n.Address] = n.Name
	}

	assert.Equal(t, "192.168.122.19", topo.Controllers[config.MaxControllers-1].Address)
	assert.Equal(t, "192.168.122.254", topo.Workers[config.MaxWorkers-1].Address)
}

func TestGenerateRejectsInvalidCounts(t *testing.T) {
	_, err := Generate(testConfig(0, 1))
	assert.Error(t, err)

	_, err = Generate(testConfig(config.MaxControllers+1, 0))
	assert.Error(t, err)

	_, err = Generate(testConfig(1, config.MaxWorkers+1))
	assert.Error(t, err)
}

func TestAllEnumerationOrder(t *testing.T) {
	topo, err := Generate(testConfig(2, 2))
	require.NoError(t, err)

	var names []string
	for _, n := range topo.All() {
		names = append(names, n.Name)
	}

	assert.Equal(t, []string{
		"test-controller-0", "test-controller-1",
		"test-worker-0", "test-worker-1",
	}, names)
}

func TestBootstrapTarget(t *testing.T) {
	topo, err := Generate(testConfig(3, 0))
	require.NoError(t, err)

	assert.Equal(t, "test-controller-0", topo.Bootstrap().Name)
	assert.True(t, topo.Bootstrap().IsBootstrapTarget())
	assert.False(t, topo.Controllers[1].IsBootstrapTarget())
}

func TestDiskVolume(t *testing.T) {
	n := Node{Name: "test-worker-3"}
	assert.Equal(t, "test-worker-3.qcow2", n.DiskVolume())
}
