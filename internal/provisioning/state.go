package provisioning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MarkerFile is the persisted cluster state marker in the working directory.
const MarkerFile = ".talvirt-state.yaml"

// Marker records the facts that must survive across command invocations:
// whether the cluster was bootstrapped (bootstrap is unsafe to repeat) and
// the schematic ID the image volume was built from.
type Marker struct {
	Bootstrapped bool   `yaml:"bootstrapped"`
	SchematicID  string `yaml:"schematic_id,omitempty"`
}

// LoadMarker reads the marker file. A missing file yields a zero marker,
// which is the state of a never-applied cluster.
func LoadMarker(path string) (*Marker, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Marker{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state marker: %w", err)
	}

	var m Marker
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse state marker: %w", err)
	}

	return &m, nil
}

// Save writes the marker to path.
func (m *Marker) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal state marker: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state marker: %w", err)
	}

	return nil
}

// DeleteMarker removes the marker file. A missing file is not an error.
func DeleteMarker(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state marker: %w", err)
	}
	return nil
}
