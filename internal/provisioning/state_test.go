package provisioning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMarkerMissingFile(t *testing.T) {
	m, err := LoadMarker(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.False(t, m.Bootstrapped)
	assert.Empty(t, m.SchematicID)
}

func TestMarkerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	m := &Marker{Bootstrapped: true, SchematicID: "abc123"}
	require.NoError(t, m.Save(path))

	loaded, err := LoadMarker(path)
	require.NoError(t, err)
	assert.True(t, loaded.Bootstrapped)
	assert.Equal(t, "abc123", loaded.SchematicID)
}

func TestLoadMarkerMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bootstrapped: [not a bool"), 0o644))

	_, err := LoadMarker(path)
	assert.Error(t, err)
}

func TestDeleteMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, (&Marker{Bootstrapped: true}).Save(path))

	require.NoError(t, DeleteMarker(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Deleting again is not an error.
	require.NoError(t, DeleteMarker(path))
}
