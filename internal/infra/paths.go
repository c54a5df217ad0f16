package infra

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppDataDir resolves the per-user application directory based on OS.
func AppDataDir() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "CoinTracker"), nil
}

// IconDir is where resized coin icons are cached.
func IconDir() (string, error) {
	base, err := AppDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "assets", "icons"), nil
}

// DBPath is the SQLite database location.
func DBPath() (string, error) {
	base, err := AppDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "data", "cointracker.db"), nil
}
