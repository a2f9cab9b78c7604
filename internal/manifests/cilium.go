package manifests

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/engine"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/repo"
)

const (
	ciliumChartRepo    = "https://helm.cilium.io/"
	ciliumChartName    = "cilium"
	ciliumChartVersion = "1.16.1"
)

// CiliumRenderer renders the Cilium chart offline, without a cluster. The
// output is embedded as an inline manifest, so the cluster applies it itself
// at bootstrap.
type CiliumRenderer struct {
	kubernetesVersion string
}

// NewCiliumRenderer creates a renderer targeting the given Kubernetes
// version's API surface.
func NewCiliumRenderer(kubernetesVersion string) *CiliumRenderer {
	return &CiliumRenderer{kubernetesVersion: kubernetesVersion}
}

// RenderCNI downloads the Cilium chart and renders it with the cluster's
// values: Kubernetes IPAM, kube-proxy replacement against kubePrism, and the
// capability set Talos requires.
func (r *CiliumRenderer) RenderCNI(ctx context.Context) ([]byte, error) {
	loadedChart, err := downloadChart(ciliumChartRepo, ciliumChartName, ciliumChartVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to download chart: %w", err)
	}

	rendered, err := renderChart(loadedChart, "cilium", "kube-system", r.kubernetesVersion, ciliumValues())
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return SanitizeDocuments(rendered)
}

// LoadBalancer returns the embedded kube-vip fragment.
func (r *CiliumRenderer) LoadBalancer() []byte {
	return kubeVIPManifest
}

// ciliumValues are the chart values for a Talos cluster without kube-proxy.
// The API server is reached through kubePrism on every node.
func ciliumValues() map[string]any {
	return map[string]any{
		"ipam": map[string]any{
			"mode": "kubernetes",
		},
		"k8sServiceHost":       "localhost",
		"k8sServicePort":       "7445",
		"kubeProxyReplacement": true,
		"securityContext": map[string]any{
			"capabilities": map[string]any{
				"ciliumAgent":      []string{"CHOWN", "KILL", "NET_ADMIN", "NET_RAW", "IPC_LOCK", "SYS_ADMIN", "SYS_RESOURCE", "DAC_OVERRIDE", "FOWNER", "SETGID", "SETUID"},
				"cleanCiliumState": []string{"NET_ADMIN", "SYS_ADMIN", "SYS_RESOURCE"},
			},
		},
		"cgroup": map[string]any{
			"autoMount": map[string]any{
				"enabled": false,
			},
			"hostRoot": "/sys/fs/cgroup",
		},
	}
}

// downloadChart fetches a chart archive from its repository and loads it.
func downloadChart(repoURL, chartName, version string) (*chart.Chart, error) {
	settings := cli.New()

	chartPath, err := repo.FindChartInRepoURL(
		repoURL,
		chartName,
		version,
		"", "", "",
		getter.All(settings),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", chartName, repoURL, err)
	}

	defer func() {
		_ = os.Remove(chartPath)
	}()

	return loader.Load(chartPath)
}

// renderChart runs the helm engine template-only, combining the rendered
// documents into one payload.
func renderChart(ch *chart.Chart, releaseName, namespace, kubernetesVersion string, values map[string]any) ([]byte, error) {
	releaseOptions := chartutil.ReleaseOptions{
		Name:      releaseName,
		Namespace: namespace,
		IsInstall: true,
	}

	capabilities := chartutil.DefaultCapabilities.Copy()
	capabilities.KubeVersion.Version = kubernetesVersion
	parts := strings.SplitN(strings.TrimPrefix(kubernetesVersion, "v"), ".", 3)
	if len(parts) >= 2 {
		capabilities.KubeVersion.Major = parts[0]
		capabilities.KubeVersion.Minor = parts[1]
	}

	valuesToRender, err := chartutil.ToRenderValues(ch, chartutil.Values(values), releaseOptions, capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare values: %w", err)
	}

	eng := engine.Engine{}

	rendered, err := eng.Render(ch, valuesToRender)
	if err != nil {
		return nil, fmt.Errorf("failed to render templates: %w", err)
	}

	var combined bytes.Buffer
	for name, content := range rendered {
		if filepath.Base(name) == "NOTES.txt" {
			continue
		}

		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			continue
		}

		if combined.Len() > 0 {
			combined.WriteString("\n---\n")
		}
		combined.WriteString(trimmed)
		combined.WriteString("\n")
	}

	return combined.Bytes(), nil
}
