package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/talvirt/talvirt/internal/platform/talos"
	"github.com/talvirt/talvirt/internal/provisioning"
	"github.com/talvirt/talvirt/internal/provisioning/upgrade"
)

const upgradeHealthTimeout = 15 * time.Minute

// Upgrade moves every node to the configured version, controllers first,
// strictly one node at a time, then gates on a full health check.
func Upgrade(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	pctx, cleanup, err := buildContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	nodes, err := nodeClientFromArtifact()
	if err != nil {
		return err
	}
	pctx.State.Nodes = nodes

	installerImage := talos.InstallerImage(pctx.Marker.SchematicID, cfg.Talos.Version)
	log.Printf("Upgrading cluster %s to %s", cfg.ClusterName, installerImage)

	phases := []provisioning.Phase{
		upgrade.NewProvisioner(installerImage, cfg.Talos.Version),
	}
	if err := provisioning.RunPhases(pctx, phases); err != nil {
		return err
	}

	kubeconfig, err := readFile(kubeconfigPath)
	if err != nil {
		return fmt.Errorf("failed to read %s for the post-upgrade health check: %w", kubeconfigPath, err)
	}

	if err := checkHealth(ctx, kubeconfig, cfg.Controllers, cfg.Workers, upgradeHealthTimeout); err != nil {
		return fmt.Errorf("post-upgrade health check failed: %w", err)
	}

	log.Printf("Cluster %s upgraded to %s", cfg.ClusterName, cfg.Talos.Version)
	return nil
}
