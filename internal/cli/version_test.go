package cli

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/aidanlsb/assetsearch/internal/buildinfo"
	"github.com/aidanlsb/assetsearch/internal/inventory"
)

func stubBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	prev := readBuildInfo
	t.Cleanup(func() { readBuildInfo = prev })
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return bi, bi != nil
	}
}

func TestCurrentVersionInfoFromBuildInfo(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		GoVersion: "go1.23.4",
		Main: debug.Module{
			Path:    "github.com/aidanlsb/assetsearch",
			Version: "v0.4.0",
		},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-09-30T08:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "GOOS", Value: "windows"},
			{Key: "GOARCH", Value: "amd64"},
		},
	})

	info := currentVersionInfo()

	if info.Version != "v0.4.0" {
		t.Fatalf("Version = %q, want %q", info.Version, "v0.4.0")
	}
	if info.Commit != "abc123" {
		t.Fatalf("Commit = %q, want %q", info.Commit, "abc123")
	}
	if info.CommitTime != "2026-09-30T08:00:00Z" {
		t.Fatalf("CommitTime = %q", info.CommitTime)
	}
	if !info.Modified {
		t.Fatal("Modified = false, want true")
	}
	if info.GOOS != "windows" || info.GOARCH != "amd64" {
		t.Fatalf("platform = %s/%s, want windows/amd64", info.GOOS, info.GOARCH)
	}
	if info.SchemaVersion != inventory.SchemaVersion {
		t.Fatalf("SchemaVersion = %d, want %d", info.SchemaVersion, inventory.SchemaVersion)
	}
}

func TestCurrentVersionInfoFallbackWhenBuildInfoMissing(t *testing.T) {
	stubBuildInfo(t, nil)

	info := currentVersionInfo()

	if info.Version != "devel" {
		t.Fatalf("Version = %q, want %q", info.Version, "devel")
	}
	if info.ModulePath != defaultModulePath {
		t.Fatalf("ModulePath = %q, want %q", info.ModulePath, defaultModulePath)
	}
	if info.GoVersion != runtime.Version() {
		t.Fatalf("GoVersion = %q, want runtime %q", info.GoVersion, runtime.Version())
	}
}

func TestCurrentVersionInfoLdflags(t *testing.T) {
	stubBuildInfo(t, nil)
	prevVersion, prevCommit := buildinfo.Version, buildinfo.Commit
	t.Cleanup(func() { buildinfo.Version, buildinfo.Commit = prevVersion, prevCommit })
	buildinfo.Version, buildinfo.Commit = "v9.9.9", "feedface"

	info := currentVersionInfo()

	if info.Version != "v9.9.9" || info.Commit != "feedface" {
		t.Fatalf("got %s@%s, want v9.9.9@feedface", info.Version, info.Commit)
	}
}

func TestVersionCommandJSONOutput(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		GoVersion: "go1.23.4",
		Main:      debug.Module{Path: "github.com/aidanlsb/assetsearch", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "deadbeef"},
			{Key: "GOOS", Value: "darwin"},
			{Key: "GOARCH", Value: "arm64"},
		},
	})

	out, _, err := runCLI(t, "--json", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}

	var resp struct {
		OK   bool        `json:"ok"`
		Data versionInfo `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("expected JSON output, got parse error: %v; out=%s", err, out)
	}
	if !resp.OK {
		t.Fatalf("expected ok=true; out=%s", out)
	}
	if resp.Data.Version != "devel" {
		t.Fatalf("Version = %q, want %q", resp.Data.Version, "devel")
	}
	if resp.Data.Commit != "deadbeef" {
		t.Fatalf("Commit = %q, want %q", resp.Data.Commit, "deadbeef")
	}
	if resp.Data.GOOS != "darwin" || resp.Data.GOARCH != "arm64" {
		t.Fatalf("platform = %s/%s, want darwin/arm64", resp.Data.GOOS, resp.Data.GOARCH)
	}
}
