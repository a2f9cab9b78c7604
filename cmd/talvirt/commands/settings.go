package commands

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/talvirt/talvirt/internal/config"
)

const releaseURL = "https://api.github.com/repos/talvirt/talvirt/releases/latest"

// applySettings wires the process-wide environment toggles: log routing and
// the release version notice. It never fails the command.
func applySettings(settings config.Settings) {
	if settings.LogPath != "" {
		// #nosec G304
		f, err := os.OpenFile(settings.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("Cannot open log path %s: %v", settings.LogPath, err)
		} else {
			log.SetOutput(f)
		}
	}

	if settings.LogLevel == "debug" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	if !settings.SkipUpdateCheck && version != "dev" {
		notifyNewerRelease()
	}
}

// notifyNewerRelease prints a notice when a newer release is published.
// Best effort: network errors and unexpected payloads are ignored.
func notifyNewerRelease() {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(releaseURL)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return
	}

	if release.TagName != "" && release.TagName != version {
		fmt.Fprintf(os.Stderr, "A newer talvirt release is available: %s (running %s)\n", release.TagName, version)
	}
}
