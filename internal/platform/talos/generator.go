package talos

import (
	"fmt"
	"strings"

	"github.com/siderolabs/talos/pkg/machinery/config"
	"github.com/siderolabs/talos/pkg/machinery/config/generate"
	"github.com/siderolabs/talos/pkg/machinery/config/machine"
	"gopkg.in/yaml.v3"
)

// Generator compiles machine configuration documents.
type Generator struct {
	clusterName       string
	kubernetesVersion string
	talosVersion      string
	endpoint          string
	vip               string
	schematicID       string
	secretsBundle     *SecretsBundle
}

// NewGenerator creates a Generator. endpoint is the cluster API URL, vip the
// controllers' shared virtual IP, schematicID the image factory schematic
// the installer image is derived from.
func NewGenerator(clusterName, kubernetesVersion, talosVersion, endpoint, vip, schematicID string, sb *SecretsBundle) *Generator {
	// The machinery adds the 'v' prefix to the Kubernetes version itself.
	kubernetesVersion = strings.TrimPrefix(kubernetesVersion, "v")

	return &Generator{
		clusterName:       clusterName,
		kubernetesVersion: kubernetesVersion,
		talosVersion:      talosVersion,
		endpoint:          endpoint,
		vip:               vip,
		schematicID:       schematicID,
		secretsBundle:     sb,
	}
}

// GenerateControllerConfig compiles the shared controller document.
//
// Overlay order is significant: the generated base first, then the
// controller network overlay (DHCP plus the shared VIP), then the inline
// manifest overlay carrying the rendered network plugin and load balancer
// manifests. Later overlays win on key conflicts. The per-node hostname is
// NOT part of this document; SpecializeHostname adds it at apply time.
func (g *Generator) GenerateControllerConfig(cniManifest, lbManifest []byte) ([]byte, error) {
	baseConfig, err := g.generateBaseConfig(machine.TypeControlPlane)
	if err != nil {
		return nil, err
	}

	doc, err := applyConfigPatch(baseConfig, buildBasePatch(g.InstallerImage()))
	if err != nil {
		return nil, err
	}

	doc, err = applyConfigPatch(doc, buildControllerPatch(g.vip))
	if err != nil {
		return nil, err
	}

	return applyConfigPatch(doc, buildInlineManifestPatch(cniManifest, lbManifest))
}

// GenerateWorkerConfig compiles the shared worker document. Workers need no
// role network overlay; they carry only the base overlays.
func (g *Generator) GenerateWorkerConfig() ([]byte, error) {
	baseConfig, err := g.generateBaseConfig(machine.TypeWorker)
	if err != nil {
		return nil, err
	}

	return applyConfigPatch(baseConfig, buildBasePatch(g.InstallerImage()))
}

// SpecializeHostname applies the per-node hostname overlay. It is applied
// last so the shared role document can never override it.
func SpecializeHostname(doc []byte, hostname string) ([]byte, error) {
	return applyConfigPatch(doc, buildHostnamePatch(hostname))
}

// InstallerImage returns the installer image reference nodes boot and
// upgrade from. With a schematic ID the factory image carrying the guest
// agent extension is used.
func (g *Generator) InstallerImage() string {
	return InstallerImage(g.schematicID, g.talosVersion)
}

// InstallerImage derives the installer image reference for a schematic and
// version.
func InstallerImage(schematicID, talosVersion string) string {
	if schematicID != "" {
		return fmt.Sprintf("factory.talos.dev/installer/%s:%s", schematicID, talosVersion)
	}
	return fmt.Sprintf("ghcr.io/siderolabs/installer:%s", talosVersion)
}

// generateBaseConfig generates the base document for a machine type from the
// shared secrets bundle. This is the foundation all overlays merge onto.
func (g *Generator) generateBaseConfig(machineType machine.Type) ([]byte, error) {
	vc, err := config.ParseContractFromVersion(g.talosVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version contract: %w", err)
	}

	input, err := generate.NewInput(
		g.clusterName,
		g.endpoint,
		g.kubernetesVersion,
		generate.WithVersionContract(vc),
		generate.WithSecretsBundle(g.secretsBundle),
		generate.WithInstallDisk("/dev/vda"), // virtio disk on libvirt guests
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input: %w", err)
	}

	cfg, err := input.Config(machineType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s config: %w", machineType, err)
	}

	bytes, err := cfg.Bytes()
	if err != nil {
		return nil, err
	}

	return stripComments(bytes), nil
}

// GetClientConfig returns the client configuration authenticating all
// management endpoint calls, derived from the secrets bundle and the
// cluster endpoint.
func (g *Generator) GetClientConfig() ([]byte, error) {
	vc, err := config.ParseContractFromVersion(g.talosVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version contract: %w", err)
	}

	input, err := generate.NewInput(g.clusterName, g.endpoint, g.kubernetesVersion,
		generate.WithVersionContract(vc),
		generate.WithSecretsBundle(g.secretsBundle),
	)
	if err != nil {
		return nil, err
	}

	clientCfg, err := input.Talosconfig()
	if err != nil {
		return nil, err
	}

	return clientCfg.Bytes()
}

// applyConfigPatch applies a patch map to a config document via deep merge.
func applyConfigPatch(doc []byte, patch map[string]any) ([]byte, error) {
	var configMap map[string]any
	if err := yaml.Unmarshal(doc, &configMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config document: %w", err)
	}

	deepMerge(configMap, patch)

	return yaml.Marshal(configMap)
}

// deepMerge recursively merges src into dst. Maps merge key by key; any
// other type in src overwrites dst, which gives later overlays
// last-applied-wins semantics.
func deepMerge(dst, src map[string]any) {
	for key, srcVal := range src {
		if dstVal, exists := dst[key]; exists {
			srcMap, srcIsMap := srcVal.(map[string]any)
			dstMap, dstIsMap := dstVal.(map[string]any)
			if srcIsMap && dstIsMap {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = srcVal
	}
}

func stripComments(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	var result []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		result = append(result, line)
	}
	return []byte(strings.Join(result, "\n"))
}
