package config

import "os"

// Settings are process-wide toggles read from the environment. They have
// no effect on the resource graph itself.
type Settings struct {
	// SkipUpdateCheck disables the anonymous release version check.
	SkipUpdateCheck bool

	// LogLevel and LogPath control operational log verbosity and routing.
	LogLevel string
	LogPath  string
}

// SettingsFromEnv reads the process-wide settings from the environment.
func SettingsFromEnv() Settings {
	return Settings{
		SkipUpdateCheck: os.Getenv("TALVIRT_SKIP_UPDATE_CHECK") != "",
		LogLevel:        os.Getenv("TALVIRT_LOG_LEVEL"),
		LogPath:         os.Getenv("TALVIRT_LOG_PATH"),
	}
}
