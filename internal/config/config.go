// Package config handles global asq configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global asq configuration.
type Config struct {
	// Database is the SQLite inventory path. Relative paths are resolved
	// against the config file directory.
	Database string `toml:"database"`

	// StateDir holds last searches and bookmarks.
	StateDir string `toml:"state_dir"`

	// CatalogFiles are extra YAML search option catalogs loaded on top of
	// the built-in one.
	CatalogFiles []string `toml:"catalog_files"`

	// User is the default session user (defaults to $USER).
	User string `toml:"user"`

	// Entities restricts visible rows to these entity ids. Empty means all.
	Entities []int `toml:"entities"`

	Search SearchConfig `toml:"search"`
	Log    LogConfig    `toml:"log"`

	// UI controls optional CLI theming preferences.
	UI UIConfig `toml:"ui"`
}

// SearchConfig bounds search requests.
type SearchConfig struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
	MaxDepth     int `toml:"max_depth"`

	// NameFormat is "realname" or "firstname".
	NameFormat string `toml:"name_format"`

	// QueryTimeout is a Go duration string such as "30s".
	QueryTimeout string `toml:"query_timeout"`

	// Debug exposes the generated SQL on every search.
	Debug bool `toml:"debug"`
}

// LogConfig controls diagnostic output on stderr.
type LogConfig struct {
	// Level is a zerolog level name: debug, info, warn, error or disabled.
	Level string `toml:"level"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output and markdown rendering.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`

	// CodeTheme sets the Glamour/Chroma theme used for rendered SQL blocks.
	// Example values: "monokai", "dracula", "github", "nord".
	CodeTheme string `toml:"code_theme"`
}

// Timeout parses QueryTimeout. Empty means no override.
func (s SearchConfig) Timeout() (time.Duration, error) {
	raw := strings.TrimSpace(s.QueryTimeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid search.query_timeout %q: %w", s.QueryTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid search.query_timeout %q: must not be negative", s.QueryTimeout)
	}
	return d, nil
}

// Validate checks values that cannot be caught by decoding alone.
func (c *Config) Validate() error {
	s := c.Search
	if s.DefaultLimit < 0 || s.MaxLimit < 0 || s.MaxDepth < 0 {
		return fmt.Errorf("search limits must not be negative")
	}
	if s.MaxLimit > 0 && s.DefaultLimit > s.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", s.DefaultLimit, s.MaxLimit)
	}
	switch strings.ToLower(strings.TrimSpace(s.NameFormat)) {
	case "", "realname", "firstname":
	default:
		return fmt.Errorf("invalid search.name_format %q (use realname or firstname)", s.NameFormat)
	}
	if _, err := s.Timeout(); err != nil {
		return err
	}
	for _, id := range c.Entities {
		if id < 0 {
			return fmt.Errorf("invalid entity id %d", id)
		}
	}
	return nil
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &Config{}, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads and validates the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	var config Config
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &config, nil
}

// DefaultPath returns the default config file path.
// Checks ~/.config/asq/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "asq", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "asq", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}

// XDGPath returns the XDG-style config path (~/.config/asq/config.toml).
func XDGPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "asq", "config.toml"), nil
}

const defaultConfig = `# asq configuration

# SQLite inventory, relative to this file unless absolute.
# database = "inventory.db"

# Last searches and bookmarks.
# state_dir = "state"

# Extra search option catalogs (YAML), e.g. for plugin itemtypes.
# catalog_files = ["plugins.yaml"]

# Session user and visible entities (empty means all).
# user = "glpi"
# entities = [0, 1]

[search]
default_limit = 20
max_limit = 500
# max_depth = 32
#
# Person names: realname (surname first) or firstname.
# name_format = "realname"
query_timeout = "30s"
# debug = false

[log]
# debug, info, warn, error or disabled
level = "warn"

# Optional UI accent color for headers in terminal output.
# Supports ANSI color codes (0-255) or hex (#RRGGBB).
# [ui]
# accent = "39"
# code_theme = "monokai"
`

// CreateDefault creates a default config file at path if it doesn't exist.
// An empty path means DefaultPath. A non-empty database is written as the
// database key.
func CreateDefault(path, database string) (string, bool, error) {
	configPath := ResolveConfigPath(path)

	if _, err := os.Stat(configPath); err == nil {
		return configPath, false, nil
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	content := defaultConfig
	if database != "" {
		content = strings.Replace(content, `# database = "inventory.db"`, "database = "+strconv.Quote(database), 1)
	}
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, true, nil
}
