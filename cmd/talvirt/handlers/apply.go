package handlers

import (
	"context"
	"fmt"
	"log"
)

// Apply materializes the declared cluster: image volume, node domains,
// compiled configuration applied per node, the one-time bootstrap, artifact
// persistence, and a final health gate.
//
// Secrets are persisted before any external call so a failed run can be
// retried without losing the cluster identity.
func Apply(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log.Printf("Applying cluster %s (%d controllers, %d workers)",
		cfg.ClusterName, cfg.Controllers, cfg.Workers)

	secrets, err := getOrGenerateSecrets(secretsFile, cfg.Talos.Version)
	if err != nil {
		return err
	}

	pctx, cleanup, err := buildContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	pctx.Secrets = secrets

	if err := runApply(pctx); err != nil {
		return err
	}

	if err := writeFile(talosConfigPath, pctx.State.TalosConfig, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", talosConfigPath, err)
	}
	if err := writeFile(kubeconfigPath, pctx.State.Kubeconfig, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", kubeconfigPath, err)
	}

	log.Printf("Cluster %s is ready; wrote %s and %s", cfg.ClusterName, talosConfigPath, kubeconfigPath)
	return nil
}
