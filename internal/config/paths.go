package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDatabase = "inventory.db"
	defaultStateDir = "state"
)

// ResolveConfigPath resolves the effective config path from an optional override.
func ResolveConfigPath(explicitConfigPath string) string {
	if strings.TrimSpace(explicitConfigPath) != "" {
		return explicitConfigPath
	}
	return DefaultPath()
}

// DatabasePath resolves the inventory path with precedence:
//  1. explicitPath flag
//  2. cfg.Database (relative to the config file dir when not absolute)
//  3. inventory.db next to config.toml
func DatabasePath(explicitPath, configPath string, cfg *Config) string {
	if strings.TrimSpace(explicitPath) != "" {
		return explicitPath
	}
	var fromConfig string
	if cfg != nil {
		fromConfig = cfg.Database
	}
	return resolveRelative(fromConfig, defaultDatabase, configPath)
}

// StateDir resolves the search state directory, relative to the config
// file dir when not absolute.
func StateDir(configPath string, cfg *Config) string {
	var fromConfig string
	if cfg != nil {
		fromConfig = cfg.StateDir
	}
	return resolveRelative(fromConfig, defaultStateDir, configPath)
}

// CatalogPaths resolves the configured catalog files.
func CatalogPaths(configPath string, cfg *Config) []string {
	if cfg == nil {
		return nil
	}
	out := make([]string, 0, len(cfg.CatalogFiles))
	for _, f := range cfg.CatalogFiles {
		if strings.TrimSpace(f) == "" {
			continue
		}
		out = append(out, resolveRelative(f, "", configPath))
	}
	return out
}

// SessionUser returns the explicit user, the configured one or $USER.
func SessionUser(explicitUser string, cfg *Config) string {
	if u := strings.TrimSpace(explicitUser); u != "" {
		return u
	}
	if cfg != nil {
		if u := strings.TrimSpace(cfg.User); u != "" {
			return u
		}
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}

func resolveRelative(value, fallback, configPath string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	if strings.HasPrefix(value, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, filepath.FromSlash(value[2:]))
		}
	}
	if isAbsolutePath(value) {
		return filepath.Clean(filepath.FromSlash(value))
	}
	configDir := filepath.Dir(ResolveConfigPath(configPath))
	return filepath.Join(configDir, filepath.FromSlash(value))
}

func isAbsolutePath(p string) bool {
	if filepath.IsAbs(p) {
		return true
	}
	// Treat slash-rooted config values as absolute on every OS.
	return strings.HasPrefix(filepath.ToSlash(p), "/")
}
