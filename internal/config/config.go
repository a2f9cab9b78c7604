// Package config defines the cluster configuration model and its loading
// and validation logic.
package config

import "fmt"

// Config is the top-level cluster configuration loaded from talvirt.yaml.
type Config struct {
	ClusterName string `yaml:"cluster_name"`

	// Controllers and Workers are the declared node counts. Node names and
	// addresses are derived from these counts, never persisted.
	Controllers int `yaml:"controllers"`
	Workers     int `yaml:"workers"`

	Network    NetworkConfig    `yaml:"network"`
	Pool       string           `yaml:"pool"`
	Talos      TalosConfig      `yaml:"talos"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Machine    MachineConfig    `yaml:"machine"`
}

// NetworkConfig describes the virtual network the cluster nodes attach to.
type NetworkConfig struct {
	// Prefix is the first three octets of the node /24, e.g. "10.4.2".
	// Controllers occupy .10-.19, workers .20-.254, the VIP sits at .5.
	Prefix string `yaml:"prefix"`

	// Bridge is the host bridge device the node interfaces attach to.
	Bridge string `yaml:"bridge"`
}

// TalosConfig pins the node OS version and the guest agent extension.
type TalosConfig struct {
	Version               string `yaml:"version"`
	QemuGuestAgentVersion string `yaml:"qemu_guest_agent_version"`
}

// KubernetesConfig pins the Kubernetes version.
type KubernetesConfig struct {
	Version string `yaml:"version"`
}

// MachineConfig sizes the virtual machines per role.
type MachineConfig struct {
	ControlPlane MachineSize `yaml:"control_plane"`
	Worker       MachineSize `yaml:"worker"`
}

// MachineSize is the VM resource allocation for one role.
type MachineSize struct {
	VCPU     int   `yaml:"vcpu"`
	MemoryMB int64 `yaml:"memory_mb"`
	DiskGB   int64 `yaml:"disk_gb"`
}

// Endpoint returns the cluster API endpoint URL, which points at the
// shared virtual IP in front of the controllers.
func (c *Config) Endpoint() string {
	return fmt.Sprintf("https://%s:%d", c.VIP(), KubeAPIPort)
}

// VIP returns the controllers' shared virtual IP address.
func (c *Config) VIP() string {
	return c.Network.Prefix + ".5"
}
