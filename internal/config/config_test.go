package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFrom(t *testing.T) {
	// In TOML, keys after a [section] belong to that section.
	path := writeConfig(t, `database = "/var/lib/asq/inventory.db"
state_dir = "state"
catalog_files = ["plugins.yaml"]
user = "jsmith"
entities = [0, 2]

[search]
default_limit = 50
max_limit = 200
max_depth = 8
name_format = "firstname"
query_timeout = "5s"
debug = true

[log]
level = "debug"

[ui]
accent = "39"
code_theme = "dracula"
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database != "/var/lib/asq/inventory.db" {
		t.Errorf("expected database, got %q", cfg.Database)
	}
	if cfg.User != "jsmith" {
		t.Errorf("expected user 'jsmith', got %q", cfg.User)
	}
	if len(cfg.Entities) != 2 || cfg.Entities[1] != 2 {
		t.Errorf("expected entities [0 2], got %v", cfg.Entities)
	}
	if cfg.Search.DefaultLimit != 50 || cfg.Search.MaxLimit != 200 || cfg.Search.MaxDepth != 8 {
		t.Errorf("unexpected search limits: %+v", cfg.Search)
	}
	if cfg.Search.NameFormat != "firstname" || !cfg.Search.Debug {
		t.Errorf("unexpected search config: %+v", cfg.Search)
	}
	timeout, err := cfg.Search.Timeout()
	if err != nil || timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v (%v)", timeout, err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %q", cfg.Log.Level)
	}
	if cfg.UI.Accent != "39" || cfg.UI.CodeTheme != "dracula" {
		t.Errorf("unexpected ui config: %+v", cfg.UI)
	}
}

func TestLoadFromInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", `this is not valid toml {{{{`, "failed to parse"},
		{"unknown key", "databse = \"inv.db\"\n", "unknown config key"},
		{"name format", "[search]\nname_format = \"nickname\"\n", "name_format"},
		{"timeout", "[search]\nquery_timeout = \"soon\"\n", "query_timeout"},
		{"limits", "[search]\ndefault_limit = 100\nmax_limit = 10\n", "exceeds"},
		{"negative", "[search]\nmax_depth = -1\n", "negative"},
		{"entities", "entities = [-3]\n", "entity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.Database != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestXDGPath(t *testing.T) {
	path, err := XDGPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "config.toml" || filepath.Base(filepath.Dir(path)) != "asq" {
		t.Errorf("expected .../asq/config.toml, got %s", path)
	}
}

func TestCreateDefault(t *testing.T) {
	t.Run("template loads", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "asq", "config.toml")
		got, created, err := CreateDefault(path, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != path || !created {
			t.Fatalf("expected new file at %s, got %s (created=%v)", path, got, created)
		}

		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("default config does not load: %v", err)
		}
		if cfg.Search.DefaultLimit != 20 || cfg.Search.MaxLimit != 500 {
			t.Errorf("unexpected defaults: %+v", cfg.Search)
		}
		if cfg.Log.Level != "warn" {
			t.Errorf("expected warn level, got %q", cfg.Log.Level)
		}
	})

	t.Run("database key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if _, _, err := CreateDefault(path, `C:\data\inv.db`); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Database != `C:\data\inv.db` {
			t.Errorf("expected database to round trip, got %q", cfg.Database)
		}
	})

	t.Run("existing file is kept", func(t *testing.T) {
		path := writeConfig(t, "user = \"keep\"\n")
		_, created, err := CreateDefault(path, "other.db")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created {
			t.Error("expected existing config to be kept")
		}
		data, _ := os.ReadFile(path)
		if string(data) != "user = \"keep\"\n" {
			t.Errorf("config was overwritten: %q", data)
		}
	})
}
