package handlers

import (
	"context"
	"log"

	"github.com/talvirt/talvirt/internal/provisioning"
	"github.com/talvirt/talvirt/internal/provisioning/destroy"
)

// Destroy removes all cluster resources: domains, node disks, the image
// volume, and the state marker. Artifact files stay on disk; the persisted
// secrets let a later apply recreate the same cluster identity.
func Destroy(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log.Printf("Destroying cluster %s", cfg.ClusterName)

	pctx, cleanup, err := buildContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	phases := []provisioning.Phase{
		destroy.NewProvisioner(),
	}
	return provisioning.RunPhases(pctx, phases)
}
