package handlers

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talvirt/talvirt/internal/provisioning"
)

func TestInfoListsAllNodes(t *testing.T) {
	virt := newFakeVirt()
	stubCommon(t, virt)

	marker := &provisioning.Marker{Bootstrapped: true, SchematicID: "abc123"}
	require.NoError(t, marker.Save(provisioning.MarkerFile))

	origRead := readFile
	t.Cleanup(func() { readFile = origRead })
	readFile = func(name string) ([]byte, error) {
		require.Equal(t, talosConfigPath, name)
		return []byte("talosconfig"), nil
	}

	stubNodeClient(t, &fakeNodes{
		version:   "v1.12.4",
		osRelease: "NAME=\"Talos\"\nPRETTY_NAME=\"Talos (v1.12.4)\"\n",
	})

	var out bytes.Buffer
	require.NoError(t, Info(context.Background(), "", &out))

	got := out.String()
	assert.Contains(t, got, "test-controller-0")
	assert.Contains(t, got, "10.0.0.10")
	assert.Contains(t, got, "test-worker-0")
	assert.Contains(t, got, "10.0.0.20")
	assert.Contains(t, got, "v1.12.4")
	assert.Contains(t, got, "factory.talos.dev/installer/abc123:v1.12.4")
	assert.Contains(t, got, "Talos (v1.12.4)")
}

func TestInfoMissingArtifact(t *testing.T) {
	virt := newFakeVirt()
	stubCommon(t, virt)

	err := Info(context.Background(), "", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), talosConfigPath)
}

func TestPrettyName(t *testing.T) {
	assert.Equal(t, "Talos (v1.12.4)", prettyName("ID=talos\nPRETTY_NAME=\"Talos (v1.12.4)\"\n"))
	assert.Equal(t, "-", prettyName("ID=talos\n"))
}
