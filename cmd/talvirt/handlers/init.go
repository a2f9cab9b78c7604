package handlers

import (
	"context"
	"log"
)

// Init prepares the cluster prerequisites without touching nodes: it
// generates and persists the secrets bundle, and builds and uploads the
// image volume for the pinned versions.
func Init(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log.Printf("Initializing cluster %s", cfg.ClusterName)

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

	if err := ensureImage(pctx); err != nil {
		return err
	}

	log.Printf("Secrets written to %s, image volume ready", secretsFile)
	return nil
}
