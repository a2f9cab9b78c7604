package handlers

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanFreshCluster(t *testing.T) {
	virt := newFakeVirt()
	stubCommon(t, virt)

	var out bytes.Buffer
	require.NoError(t, Plan(context.Background(), "", &out))

	assert.Contains(t, out.String(), "create")
	assert.Contains(t, out.String(), "talos-v1.12.4-qemu-ga-10.1.0.qcow2")
	assert.Contains(t, out.String(), "test-controller-0")
	assert.Contains(t, out.String(), "test-worker-0")
	assert.Contains(t, out.String(), "6 to create, 0 unchanged")
}

func TestPlanExistingResources(t *testing.T) {
	virt := newFakeVirt()
	virt.volumes["talos-v1.12.4-qemu-ga-10.1.0.qcow2"] = true
	virt.volumes["test-controller-0.qcow2"] = true
	virt.domains["test-controller-0"] = true
	stubCommon(t, virt)

	var out bytes.Buffer
	require.NoError(t, Plan(context.Background(), "", &out))

	assert.Contains(t, out.String(), "exists")
	assert.Contains(t, out.String(), "3 to create, 3 unchanged")
}
