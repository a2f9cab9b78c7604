// Package provisioning holds the shared machinery of the cluster lifecycle
// drivers: the execution context, the dependency-ordered task graph, the
// sequential phase pipeline, and the persisted cluster state marker.
package provisioning
