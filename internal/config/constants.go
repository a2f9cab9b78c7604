package config

// Pinned versions used when the configuration does not override them.
const (
	// DefaultTalosVersion is the node OS version the image builder pins.
	DefaultTalosVersion = "v1.12.4"

	// DefaultQemuGuestAgentVersion is the guest agent system extension
	// version baked into the node image.
	DefaultQemuGuestAgentVersion = "10.1.0"

	// DefaultKubernetesVersion is passed to machine config generation.
	DefaultKubernetesVersion = "v1.34.1"
)

// Common port numbers used throughout the application.
const (
	// KubeAPIPort is the standard Kubernetes API server port.
	KubeAPIPort = 6443

	// TalosAPIPort is the node management endpoint port.
	TalosAPIPort = 50000
)

const (
	// DefaultPool is the libvirt storage pool images and disks live in.
	DefaultPool = "default"

	// DefaultBridge is the host bridge nodes attach to.
	DefaultBridge = "virbr0"
)
