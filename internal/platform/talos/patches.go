package talos

// ManifestSeparator joins the rendered network plugin manifest and the load
// balancer fragment into one inline manifest payload.
const ManifestSeparator = "\n---\n"

// InlineManifestName is the name of the controller inline manifest entry.
const InlineManifestName = "talvirt-network"

// buildBasePatch is the role-independent overlay shared by both roles:
// installer image, feature flags, discovery settings, and kube-proxy/CNI
// disablement. The CNI is applied as an inline manifest instead.
func buildBasePatch(installerImage string) map[string]any {
	return map[string]any{
		"machine": map[string]any{
			"install": map[string]any{
				"image": installerImage,
			},
			"features": map[string]any{
				"kubePrism": map[string]any{
					"enabled": true,
					"port":    7445,
				},
				"hostDNS": map[string]any{
					"enabled": true,
				},
			},
		},
		"cluster": map[string]any{
			"network": map[string]any{
				"cni": map[string]any{
					"name": "none",
				},
			},
			"proxy": map[string]any{
				"disabled": true,
			},
			"discovery": map[string]any{
				"enabled": true,
				"registries": map[string]any{
					"kubernetes": map[string]any{
						"disabled": false,
					},
					"service": map[string]any{
						"disabled": true,
					},
				},
			},
		},
	}
}

// buildControllerPatch is the controller network overlay: DHCP plus the
// shared virtual IP on the primary interface.
func buildControllerPatch(vip string) map[string]any {
	return map[string]any{
		"machine": map[string]any{
			"network": map[string]any{
				"interfaces": []any{
					map[string]any{
						"interface": "eth0",
						"dhcp":      true,
						"vip": map[string]any{
							"ip": vip,
						},
					},
				},
			},
		},
	}
}

// buildInlineManifestPatch embeds the concatenated network plugin and load
// balancer manifests for automatic application at bootstrap.
func buildInlineManifestPatch(cniManifest, lbManifest []byte) map[string]any {
	return map[string]any{
		"cluster": map[string]any{
			"inlineManifests": []any{
				map[string]any{
					"name":     InlineManifestName,
					"contents": string(cniManifest) + ManifestSeparator + string(lbManifest),
				},
			},
		},
	}
}

// buildHostnamePatch is the per-node overlay applied at apply time.
func buildHostnamePatch(hostname string) map[string]any {
	return map[string]any{
		"machine": map[string]any{
			"network": map[string]any{
				"hostname": hostname,
			},
		},
	}
}
