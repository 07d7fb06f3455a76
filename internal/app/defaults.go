package app

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - NBM_CONFIG_PATH: config file location (default: <XDG config home>/nbm.toml)
//   - NBM_HOME: base directory for nbm data and logs (default: <XDG data home>/nbm,
//     with logs in <XDG state home>/nbm)
func GetDefaults() map[string]string {
	configPath := os.Getenv("NBM_CONFIG_PATH")
	if configPath == "" {
		configPath = filepath.Join(xdg.ConfigHome, "nbm.toml")
	}

	dataDir := os.Getenv("NBM_HOME")
	logDir := filepath.Join(dataDir, "log")
	if dataDir == "" {
		dataDir = filepath.Join(xdg.DataHome, "nbm")
		logDir = filepath.Join(xdg.StateHome, "nbm")
	}

	return map[string]string{
		"config_path": configPath,
		"data_dir":    dataDir,
		"log_dir":     logDir,
	}
}
