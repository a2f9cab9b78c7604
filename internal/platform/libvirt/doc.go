// Package libvirt implements the hypervisor boundary: storage volumes in a
// named pool and transient-free, bridge-attached virtual machine domains.
package libvirt
