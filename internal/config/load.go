package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file looked up in the working
// directory when no path is given.
const DefaultConfigFile = "talvirt.yaml"

// LoadFile reads and parses the configuration from a YAML file, applies
// defaults, and validates the result.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills unset fields with the pinned defaults.
func (c *Config) applyDefaults() {
	if c.Pool == "" {
		c.Pool = DefaultPool
	}
	if c.Network.Bridge == "" {
		c.Network.Bridge = DefaultBridge
	}
	if c.Talos.Version == "" {
		c.Talos.Version = DefaultTalosVersion
	}
	if c.Talos.QemuGuestAgentVersion == "" {
		c.Talos.QemuGuestAgentVersion = DefaultQemuGuestAgentVersion
	}
	if c.Kubernetes.Version == "" {
		c.Kubernetes.Version = DefaultKubernetesVersion
	}
	if c.Machine.ControlPlane == (MachineSize{}) {
		c.Machine.ControlPlane = MachineSize{VCPU: 2, MemoryMB: 4096, DiskGB: 20}
	}
	if c.Machine.Worker == (MachineSize{}) {
		c.Machine.Worker = MachineSize{VCPU: 2, MemoryMB: 4096, DiskGB: 40}
	}
}
