package config

import (
	"fmt"
	"net"
	"strings"
)

// Address range capacity per role. Controllers start at .10 and must stay
// below the worker range; workers start at .20 and must stay below .255.
const (
	ControllerAddrOffset = 10
	WorkerAddrOffset     = 20

	MaxControllers = WorkerAddrOffset - ControllerAddrOffset
	MaxWorkers     = 255 - WorkerAddrOffset
)

// Validate checks the configuration for errors that must be caught before
// any call to the hypervisor or a node is made.
func (c *Config) Validate() error {
	if c.ClusterName == "" {
		return fmt.Errorf("cluster_name is required")
	}

	if err := c.validateTopology(); err != nil {
		return fmt.Errorf("topology validation failed: %w", err)
	}

	if err := c.validateNetwork(); err != nil {
		return fmt.Errorf("network validation failed: %w", err)
	}

	return nil
}

// validateTopology enforces the disjoint address range capacities.
func (c *Config) validateTopology() error {
	if c.Controllers < 1 {
		return fmt.Errorf("at least one controller is required, got %d", c.Controllers)
	}
	if c.Controllers > MaxControllers {
		return fmt.Errorf("controller count %d exceeds address range capacity %d", c.Controllers, MaxControllers)
	}
	if c.Workers < 0 {
		return fmt.Errorf("worker count must not be negative, got %d", c.Workers)
	}
	if c.Workers > MaxWorkers {
		return fmt.Errorf("worker count %d exceeds address range capacity %d", c.Workers, MaxWorkers)
	}
	return nil
}

// validateNetwork checks the address prefix is three dotted IPv4 octets.
func (c *Config) validateNetwork() error {
	if c.Network.Prefix == "" {
		return fmt.Errorf("network.prefix is required")
	}
	if strings.Count(c.Network.Prefix, ".") != 2 {
		return fmt.Errorf("network.prefix %q must be the first three octets of a /24, e.g. \"10.4.2\"", c.Network.Prefix)
	}
	if net.ParseIP(c.Network.Prefix+".0") == nil {
		return fmt.Errorf("network.prefix %q is not a valid IPv4 prefix", c.Network.Prefix)
	}
	return nil
}
