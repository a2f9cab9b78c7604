// Package k8s checks cluster health through the Kubernetes API using the
// persisted kubeconfig.
package k8s

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

const controlPlaneLabel = "node-role.kubernetes.io/control-plane"

// ClientFromKubeconfig builds a clientset from kubeconfig bytes.
func ClientFromKubeconfig(kubeconfig []byte) (kubernetes.Interface, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	return clientset, nil
}

// WaitForNodesReady polls until the cluster reports at least the declared
// number of Ready control plane and worker nodes, or the timeout elapses.
// An insufficient count at the deadline is a terminal failure.
func WaitForNodesReady(ctx context.Context, client kubernetes.Interface, controllers, workers int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	var lastControllers, lastWorkers int

	for {
		readyControllers, readyWorkers, err := CountReadyNodes(ctx, client)
		if err == nil {
			lastControllers, lastWorkers = readyControllers, readyWorkers
			if readyControllers >= controllers && readyWorkers >= workers {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("cluster not healthy: %d/%d controllers and %d/%d workers ready",
				lastControllers, controllers, lastWorkers, workers)
		case <-ticker.C:
		}
	}
}

// CountReadyNodes returns the number of Ready control plane and worker
// nodes.
func CountReadyNodes(ctx context.Context, client kubernetes.Interface) (controllers, workers int, err error) {
	nodes, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list nodes: %w", err)
	}

	for _, node := range nodes.Items {
		if !nodeReady(&node) {
			continue
		}
		if _, isControlPlane := node.Labels[controlPlaneLabel]; isControlPlane {
			controllers++
		} else {
			workers++
		}
	}

	return controllers, workers, nil
}

func nodeReady(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}
