// Package talos generates Talos machine configurations and talks to node
// management endpoints.
//
// The Generator compiles one machine configuration document per role by
// merging overlays onto a generated base document; the per-node hostname is
// applied at apply time so the role document stays shared. The Client wraps
// the machinery client for all node-directed calls: apply, bootstrap,
// version, file reads, kubeconfig retrieval, and upgrades.
package talos
