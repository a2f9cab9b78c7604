package talos

import (
	"fmt"
	"os"
	"time"

	"github.com/siderolabs/talos/pkg/machinery/config"
	"github.com/siderolabs/talos/pkg/machinery/config/generate/secrets"
	"gopkg.in/yaml.v3"
)

// SecretsBundle is a type alias for the Talos secrets bundle. It is created
// once per cluster lifetime and shared read-only by every configuration
// compilation and client authentication.
type SecretsBundle = secrets.Bundle

// LoadSecrets loads a secrets bundle from a file.
func LoadSecrets(path string) (*SecretsBundle, error) {
	sb, err := secrets.LoadBundle(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets bundle: %w", err)
	}

	if sb == nil {
		return nil, fmt.Errorf("loaded secrets bundle is nil")
	}

	// Re-inject clock
	sb.Clock = secrets.NewFixedClock(time.Now())
	return sb, nil
}

// SaveSecrets saves a secrets bundle to a file.
// Uses YAML format to match what the machinery's LoadBundle expects.
func SaveSecrets(path string, sb *SecretsBundle) error {
	data, err := yaml.Marshal(sb)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets bundle: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}

	return nil
}

// NewSecrets creates a fresh secrets bundle for the given Talos version.
func NewSecrets(talosVersion string) (*SecretsBundle, error) {
	vc, err := config.ParseContractFromVersion(talosVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version contract: %w", err)
	}

	sb, err := secrets.NewBundle(secrets.NewFixedClock(time.Now()), vc)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets bundle: %w", err)
	}

	return sb, nil
}

// GetOrGenerateSecrets loads secrets from path, or generates and saves them
// if the file does not exist yet.
func GetOrGenerateSecrets(path string, talosVersion string) (*SecretsBundle, error) {
	if _, err := os.Stat(path); err == nil {
		return LoadSecrets(path)
	}

	sb, err := NewSecrets(talosVersion)
	if err != nil {
		return nil, err
	}

	if err := SaveSecrets(path, sb); err != nil {
		return nil, err
	}

	return sb, nil
}
