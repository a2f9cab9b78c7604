package handlers

import (
	"context"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talvirt/talvirt/internal/platform/talos"
	"github.com/talvirt/talvirt/internal/provisioning"
)

func stubSecrets(t *testing.T) {
	t.Helper()

	orig := getOrGenerateSecrets
	getOrGenerateSecrets = func(path, talosVersion string) (*talos.SecretsBundle, error) {
		return &talos.SecretsBundle{}, nil
	}
	t.Cleanup(func() { getOrGenerateSecrets = orig })
}

func TestApplyWritesArtifacts(t *testing.T) {
	virt := newFakeVirt()
	stubCommon(t, virt)
	stubSecrets(t)

	origApply, origWrite := runApply, writeFile
	t.Cleanup(func() { runApply, writeFile = origApply, origWrite })

	runApply = func(pctx *provisioning.Context) error {
		pctx.State.TalosConfig = []byte("talosconfig-data")
		pctx.State.Kubeconfig = []byte("kubeconfig-data")
		return nil
	}

	written := map[string][]byte{}
	writeFile = func(name string, data []byte, perm fs.FileMode) error {
		assert.Equal(t, fs.FileMode(0o600), perm)
		written[name] = data
		return nil
	}

	require.NoError(t, Apply(context.Background(), ""))

	assert.Equal(t, []byte("talosconfig-data"), written[talosConfigPath])
	assert.Equal(t, []byte("kubeconfig-data"), written[kubeconfigPath])
}

func TestApplyPropagatesFailure(t *testing.T) {
	virt := newFakeVirt()
	stubCommon(t, virt)
	stubSecrets(t)

	origApply, origWrite := runApply, writeFile
	t.Cleanup(func() { runApply, writeFile = origApply, origWrite })

	runApply = func(pctx *provisioning.Context) error {
		return fmt.Errorf("apply test-controller-0 failed: endpoint unreachable")
	}

	written := false
	writeFile = func(name string, data []byte, perm fs.FileMode) error {
		written = true
		return nil
	}

	err := Apply(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint unreachable")
	assert.False(t, written, "artifacts must not be written after a failed apply")
}

func TestInitBuildsImageAndSecrets(t *testing.T) {
	virt := newFakeVirt()
	stubCommon(t, virt)

	secretsRequested := ""
	origSecrets, origEnsure := getOrGenerateSecrets, ensureImage
	t.Cleanup(func() { getOrGenerateSecrets, ensureImage = origSecrets, origEnsure })

	getOrGenerateSecrets = func(path, talosVersion string) (*talos.SecretsBundle, error) {
		secretsRequested = path
		return &talos.SecretsBundle{}, nil
	}

	imageEnsured := false
	ensureImage = func(pctx *provisioning.Context) error {
		imageEnsured = true
		return nil
	}

	require.NoError(t, Init(context.Background(), ""))
	assert.Equal(t, secretsFile, secretsRequested)
	assert.True(t, imageEnsured)
}
