package handlers

import (
	"context"
	"fmt"
	"log"
	"time"
)

const healthCheckTimeout = 5 * time.Minute

// Health verifies the cluster reports the declared Ready node counts
// through the persisted kubeconfig. Read-only.
func Health(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	kubeconfig, err := readFile(kubeconfigPath)
	if err != nil {
		return fmt.Errorf("failed to read %s - has the cluster been applied? %w", kubeconfigPath, err)
	}

	if err := checkHealth(ctx, kubeconfig, cfg.Controllers, cfg.Workers, healthCheckTimeout); err != nil {
		return err
	}

	log.Printf("Cluster %s is healthy: %d controllers and %d workers ready",
		cfg.ClusterName, cfg.Controllers, cfg.Workers)
	return nil
}
