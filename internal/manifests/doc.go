// Package manifests produces the Kubernetes manifests embedded into the
// controller configuration as inline manifests: the Cilium CNI rendered from
// its Helm chart, and the kube-vip services load balancer.
package manifests
