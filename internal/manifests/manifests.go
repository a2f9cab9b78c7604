package manifests

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	sigsyaml "sigs.k8s.io/yaml"
)

//go:embed files/kube-vip.yaml
var kubeVIPManifest []byte

// Renderer is the manifest source the configuration compiler consumes.
type Renderer interface {
	// RenderCNI returns the network plugin manifest documents.
	RenderCNI(ctx context.Context) ([]byte, error)
	// LoadBalancer returns the services load balancer manifest fragment.
	LoadBalancer() []byte
}

// LoadBalancer returns the embedded kube-vip manifest.
func LoadBalancer() []byte {
	return kubeVIPManifest
}

// SanitizeDocuments splits a multi-document manifest payload, drops empty
// documents, and verifies each remaining document parses. Helm chart output
// routinely contains whitespace-only documents that would bloat the inline
// manifest.
func SanitizeDocuments(payload []byte) ([]byte, error) {
	var kept []string
	for _, doc := range strings.Split(string(payload), "\n---\n") {
		trimmed := strings.TrimSpace(doc)
		if trimmed == "" || trimmed == "---" {
			continue
		}

		var obj map[string]any
		if err := sigsyaml.Unmarshal([]byte(trimmed), &obj); err != nil {
			return nil, fmt.Errorf("invalid manifest document: %w", err)
		}
		if len(obj) == 0 {
			continue
		}

		kept = append(kept, trimmed)
	}

	return []byte(strings.Join(kept, "\n---\n")), nil
}
