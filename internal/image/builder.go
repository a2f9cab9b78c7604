// Package image builds the bootable disk volume nodes are cloned from: an
// image factory schematic carrying the qemu-guest-agent extension,
// downloaded, converted, and uploaded into the storage pool.
package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultFactoryURL is the public Talos image factory.
const DefaultFactoryURL = "https://factory.talos.dev"

const guestAgentExtension = "siderolabs/qemu-guest-agent"

// VolumeName derives the pool volume name from the version pins. One volume
// exists per (Talos version, guest agent version) pair.
func VolumeName(talosVersion, agentVersion string) string {
	return fmt.Sprintf("talos-%s-qemu-ga-%s.qcow2", talosVersion, agentVersion)
}

// volumeStore is the slice of the hypervisor boundary the builder needs.
type volumeStore interface {
	EnsureVolumeFromFile(name, sourcePath string) error
}

// commandRunner executes an external process, failing on non-zero exit.
type commandRunner func(ctx context.Context, name string, args ...string) error

// Builder drives the image pipeline. Every step failure is fatal; the
// pipeline is re-run from scratch on the next invocation.
type Builder struct {
	factoryURL   string
	talosVersion string
	agentVersion string

	httpClient *http.Client
	store      volumeStore
	run        commandRunner
}

// NewBuilder creates a Builder uploading into store.
func NewBuilder(factoryURL, talosVersion, agentVersion string, store volumeStore) *Builder {
	return &Builder{
		factoryURL:   strings.TrimSuffix(factoryURL, "/"),
		talosVersion: talosVersion,
		agentVersion: agentVersion,
		httpClient:   http.DefaultClient,
		store:        store,
		run:          runCommand,
	}
}

// Build resolves the schematic, downloads the nocloud disk image, converts
// it to qcow2, and uploads it into the pool under VolumeName. It returns the
// schematic ID the installer image reference is derived from.
func (b *Builder) Build(ctx context.Context) (string, error) {
	schematicID, err := b.ResolveSchematicID(ctx)
	if err != nil {
		return "", err
	}
	log.Printf("Resolved image factory schematic %s", schematicID)

	workDir, err := os.MkdirTemp("", "talvirt-image-*")
	if err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	compressed := filepath.Join(workDir, "nocloud-amd64.raw.xz")
	if err := b.download(ctx, schematicID, compressed); err != nil {
		return "", err
	}

	log.Printf("Decompressing disk image...")
	if err := b.run(ctx, "xz", "--decompress", "--force", compressed); err != nil {
		return "", fmt.Errorf("failed to decompress image: %w", err)
	}
	raw := strings.TrimSuffix(compressed, ".xz")

	qcow2 := filepath.Join(workDir, "image.qcow2")
	log.Printf("Converting disk image to qcow2...")
	if err := b.run(ctx, "qemu-img", "convert", "-f", "raw", "-O", "qcow2", raw, qcow2); err != nil {
		return "", fmt.Errorf("failed to convert image: %w", err)
	}

	volumeName := VolumeName(b.talosVersion, b.agentVersion)
	log.Printf("Uploading image volume %s...", volumeName)
	if err := b.store.EnsureVolumeFromFile(volumeName, qcow2); err != nil {
		return "", fmt.Errorf("failed to upload image volume: %w", err)
	}

	return schematicID, nil
}

// ResolveSchematicID registers the schematic with the image factory and
// returns its ID. The same customization always yields the same ID.
func (b *Builder) ResolveSchematicID(ctx context.Context) (string, error) {
	body, err := json.Marshal(schematicRequest{
		Customization: customization{
			SystemExtensions: systemExtensions{
				OfficialExtensions: []string{guestAgentExtension},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal schematic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.factoryURL+"/schematics", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create schematic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to register schematic: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("schematic registration returned status %d", resp.StatusCode)
	}

	var parsed schematicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode schematic response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("schematic response carried no ID")
	}

	return parsed.ID, nil
}

func (b *Builder) download(ctx context.Context, schematicID, dest string) error {
	url := fmt.Sprintf("%s/image/%s/%s/nocloud-amd64.raw.xz", b.factoryURL, schematicID, b.talosVersion)
	log.Printf("Downloading %s...", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write image file: %w", err)
	}

	return f.Close()
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("%s exited with code %d: %s", name, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}

	return nil
}

type schematicRequest struct {
	Customization customization `json:"customization"`
}

type customization struct {
	SystemExtensions systemExtensions `json:"systemExtensions"`
}

type systemExtensions struct {
	OfficialExtensions []string `json:"officialExtensions"`
}

type schematicResponse struct {
	ID string `json:"id"`
}
