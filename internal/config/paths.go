package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "feedcache"

func ConfigDir() string {
	if v := os.Getenv("FEEDCACHE_CONFIG_DIR"); v != "" {
		return v
	}
	return filepath.Join(xdg.ConfigHome, appName)
}

func CacheDir() string {
	if v := os.Getenv("FEEDCACHE_CACHE_DIR"); v != "" {
		return v
	}
	return filepath.Join(xdg.CacheHome, appName)
}

// ConfigFile is the default config location. A config.yaml next to it is
// used when no config.toml exists.
func ConfigFile() string { return filepath.Join(ConfigDir(), "config.toml") }

// DefaultStorePath is where backend keeps its data when no path is configured.
func DefaultStorePath(backend string) string {
	if backend == BackendSQLite {
		return filepath.Join(CacheDir(), "feed.db")
	}
	return filepath.Join(CacheDir(), "feed.store")
}
