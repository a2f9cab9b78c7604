package libvirt

import (
	"fmt"
	"io"
	"os"

	"libvirt.org/go/libvirt"
)

// DomainSpec describes a virtual machine domain to ensure.
type DomainSpec struct {
	Name     string
	VCPU     int
	MemoryMB int64
	// DiskVolume is the name of the node's boot volume in the pool.
	DiskVolume string
	Bridge     string
}

// Manager is the hypervisor surface the provisioning phases depend on.
type Manager interface {
	// EnsureVolumeFromFile uploads a local file into the pool under name,
	// replacing any existing volume of that name.
	EnsureVolumeFromFile(name, sourcePath string) error
	// CloneVolume creates a copy-on-write qcow2 volume backed by the named
	// base volume. Existing volumes are left untouched.
	CloneVolume(name, baseName string, sizeGB int) error
	VolumeExists(name string) (bool, error)
	DeleteVolume(name string) error

	// EnsureDomain defines and starts the domain if it does not exist.
	EnsureDomain(spec DomainSpec) error
	DomainExists(name string) (bool, error)
	// DeleteDomain stops and undefines the domain. A missing domain is not
	// an error.
	DeleteDomain(name string) error

	Close() error
}

// Client is the real Manager backed by a local libvirt connection.
type Client struct {
	conn *libvirt.Connect
	pool string
}

// Connect opens the system connection and binds the client to a storage
// pool.
func Connect(uri, pool string) (*Client, error) {
	conn, err := libvirt.NewConnect(uri)
	if err != nil {
		return nil, fmt.Errorf("could not connect to hypervisor: %w", err)
	}
	return &Client{conn: conn, pool: pool}, nil
}

// Close releases the hypervisor connection.
func (c *Client) Close() error {
	_, err := c.conn.Close()
	return err
}

// EnsureVolumeFromFile uploads sourcePath into the pool under name. Any
// existing volume of that name is deleted first so a re-run always leaves
// the pool holding exactly the uploaded content.
func (c *Client) EnsureVolumeFromFile(name, sourcePath string) error {
	if err := c.DeleteVolume(name); err != nil {
		return err
	}

	pool, err := c.lookupPool()
	if err != nil {
		return err
	}
	defer func() { _ = pool.Free() }()

	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("could not open source file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("could not stat source file: %w", err)
	}

	vol, err := pool.StorageVolCreateXML(volumeXML(name, uint64(info.Size())), 0)
	if err != nil {
		return fmt.Errorf("could not create volume %s: %w", name, err)
	}
	defer func() { _ = vol.Free() }()

	if err := c.upload(vol, f, uint64(info.Size())); err != nil {
		_ = vol.Delete(0)
		return fmt.Errorf("could not upload volume %s: %w", name, err)
	}

	return nil
}

// CloneVolume creates a qcow2 volume backed by baseName. The clone only
// stores blocks the guest writes, so every node shares the base image.
func (c *Client) CloneVolume(name, baseName string, sizeGB int) error {
	exists, err := c.VolumeExists(name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	pool, err := c.lookupPool()
	if err != nil {
		return err
	}
	defer func() { _ = pool.Free() }()

	base, err := pool.LookupStorageVolByName(baseName)
	if err != nil {
		return fmt.Errorf("could not look up base volume %s: %w", baseName, err)
	}
	defer func() { _ = base.Free() }()

	basePath, err := base.GetPath()
	if err != nil {
		return fmt.Errorf("could not get base volume path: %w", err)
	}

	vol, err := pool.StorageVolCreateXML(cloneVolumeXML(name, basePath, sizeGB), 0)
	if err != nil {
		return fmt.Errorf("could not create volume %s: %w", name, err)
	}
	_ = vol.Free()

	return nil
}

// VolumeExists reports whether the named volume exists in the pool.
func (c *Client) VolumeExists(name string) (bool, error) {
	pool, err := c.lookupPool()
	if err != nil {
		return false, err
	}
	defer func() { _ = pool.Free() }()

	vol, err := pool.LookupStorageVolByName(name)
	if err != nil {
		if isLibvirtErr(err, libvirt.ERR_NO_STORAGE_VOL) {
			return false, nil
		}
		return false, fmt.Errorf("error checking volume %s: %w", name, err)
	}
	_ = vol.Free()

	return true, nil
}

// DeleteVolume removes the named volume. A missing volume is not an error.
func (c *Client) DeleteVolume(name string) error {
	pool, err := c.lookupPool()
	if err != nil {
		return err
	}
	defer func() { _ = pool.Free() }()

	vol, err := pool.LookupStorageVolByName(name)
	if err != nil {
		if isLibvirtErr(err, libvirt.ERR_NO_STORAGE_VOL) {
			return nil
		}
		return fmt.Errorf("could not look up volume %s: %w", name, err)
	}
	defer func() { _ = vol.Free() }()

	if err := vol.Delete(0); err != nil {
		return fmt.Errorf("could not delete volume %s: %w", name, err)
	}

	return nil
}

// EnsureDomain defines and starts the domain if it is not already defined.
// An existing domain is left alone whatever its state.
func (c *Client) EnsureDomain(spec DomainSpec) error {
	exists, err := c.DomainExists(spec.Name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	volumePath, err := c.volumePath(spec.DiskVolume)
	if err != nil {
		return err
	}

	xml, err := domainXML(spec, volumePath)
	if err != nil {
		return err
	}

	domain, err := c.conn.DomainDefineXML(xml)
	if err != nil {
		return fmt.Errorf("could not define domain %s: %w", spec.Name, err)
	}
	defer func() { _ = domain.Free() }()

	if err := domain.Create(); err != nil {
		return fmt.Errorf("could not start domain %s: %w", spec.Name, err)
	}

	return nil
}

// DomainExists reports whether the named domain is defined.
func (c *Client) DomainExists(name string) (bool, error) {
	domain, err := c.conn.LookupDomainByName(name)
	if err != nil {
		if isLibvirtErr(err, libvirt.ERR_NO_DOMAIN) {
			return false, nil
		}
		return false, fmt.Errorf("error checking domain %s: %w", name, err)
	}
	_ = domain.Free()

	return true, nil
}

// DeleteDomain stops the domain if it is running and undefines it. A
// missing domain is not an error.
func (c *Client) DeleteDomain(name string) error {
	domain, err := c.conn.LookupDomainByName(name)
	if err != nil {
		if isLibvirtErr(err, libvirt.ERR_NO_DOMAIN) {
			return nil
		}
		return fmt.Errorf("could not look up domain %s: %w", name, err)
	}
	defer func() { _ = domain.Free() }()

	if state, _, _ := domain.GetState(); state != libvirt.DOMAIN_SHUTOFF {
		if err := domain.Destroy(); err != nil {
			return fmt.Errorf("could not destroy domain %s: %w", name, err)
		}
	}

	if err := domain.Undefine(); err != nil {
		return fmt.Errorf("could not undefine domain %s: %w", name, err)
	}

	return nil
}

func (c *Client) lookupPool() (*libvirt.StoragePool, error) {
	pool, err := c.conn.LookupStoragePoolByName(c.pool)
	if err != nil {
		return nil, fmt.Errorf("could not look up storage pool %s: %w", c.pool, err)
	}
	return pool, nil
}

func (c *Client) volumePath(name string) (string, error) {
	pool, err := c.lookupPool()
	if err != nil {
		return "", err
	}
	defer func() { _ = pool.Free() }()

	vol, err := pool.LookupStorageVolByName(name)
	if err != nil {
		return "", fmt.Errorf("could not look up volume %s: %w", name, err)
	}
	defer func() { _ = vol.Free() }()

	path, err := vol.GetPath()
	if err != nil {
		return "", fmt.Errorf("could not get volume path: %w", err)
	}

	return path, nil
}

func (c *Client) upload(vol *libvirt.StorageVol, r io.Reader, size uint64) error {
	stream, err := c.conn.NewStream(0)
	if err != nil {
		return fmt.Errorf("could not create stream: %w", err)
	}
	defer func() { _ = stream.Free() }()

	if err := vol.Upload(stream, 0, size, 0); err != nil {
		return fmt.Errorf("could not start upload: %w", err)
	}

	buf := make([]byte, 4<<20)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, serr := stream.Send(buf[:n]); serr != nil {
				_ = stream.Abort()
				return fmt.Errorf("stream send failed: %w", serr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = stream.Abort()
			return fmt.Errorf("read failed: %w", err)
		}
	}

	if err := stream.Finish(); err != nil {
		return fmt.Errorf("could not finish stream: %w", err)
	}

	return nil
}

func isLibvirtErr(err error, code libvirt.ErrorNumber) bool {
	lverr, ok := err.(libvirt.Error)
	return ok && lverr.Code == code
}
