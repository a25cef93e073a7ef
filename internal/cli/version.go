package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/assetsearch/internal/buildinfo"
	"github.com/aidanlsb/assetsearch/internal/inventory"
)

const defaultModulePath = "github.com/aidanlsb/assetsearch"

type versionInfo struct {
	Version       string `json:"version"`
	ModulePath    string `json:"module_path"`
	Commit        string `json:"commit,omitempty"`
	CommitTime    string `json:"commit_time,omitempty"`
	Modified      bool   `json:"modified"`
	SchemaVersion int    `json:"schema_version"`
	GoVersion     string `json:"go_version"`
	GOOS          string `json:"goos"`
	GOARCH        string `json:"goarch"`
}

var readBuildInfo = debug.ReadBuildInfo

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show asq version and build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersionInfo()
		out := cmd.OutOrStdout()
		if isJSONOutput() {
			outputSuccess(out, info, nil, nil)
			return nil
		}

		fmt.Fprintf(out, "asq %s\n", info.Version)
		lines := [][2]string{
			{"module", info.ModulePath},
			{"commit", info.Commit},
			{"commit_time", info.CommitTime},
			{"schema", fmt.Sprint(info.SchemaVersion)},
			{"go", info.GoVersion},
			{"platform", info.GOOS + "/" + info.GOARCH},
			{"modified", fmt.Sprint(info.Modified)},
		}
		for _, l := range lines {
			if l[1] != "" {
				fmt.Fprintf(out, "%s: %s\n", l[0], l[1])
			}
		}
		return nil
	},
}

// currentVersionInfo starts from runtime defaults and overlays embedded
// module data. Release ldflags only fill fields still empty.
func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:       "devel",
		ModulePath:    defaultModulePath,
		SchemaVersion: inventory.SchemaVersion,
		GoVersion:     runtime.Version(),
		GOOS:          runtime.GOOS,
		GOARCH:        runtime.GOARCH,
	}
	if bi, ok := readBuildInfo(); ok && bi != nil {
		settings := make(map[string]string, len(bi.Settings))
		for _, kv := range bi.Settings {
			settings[kv.Key] = kv.Value
		}
		setIfPresent(&info.ModulePath, bi.Main.Path)
		setIfPresent(&info.GoVersion, bi.GoVersion)
		setIfPresent(&info.GOOS, settings["GOOS"])
		setIfPresent(&info.GOARCH, settings["GOARCH"])
		info.Version = normalizeVersion(bi.Main.Version)
		info.Commit = settings["vcs.revision"]
		info.CommitTime = settings["vcs.time"]
		info.Modified = strings.EqualFold(settings["vcs.modified"], "true")
	}

	if info.Version == "devel" {
		info.Version = normalizeVersion(buildinfo.Version)
	}
	if info.Commit == "" {
		info.Commit = buildinfo.Commit
	}
	if info.CommitTime == "" {
		info.CommitTime = buildinfo.Date
	}
	return info
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func normalizeVersion(v string) string {
	if v == "" || v == "(devel)" {
		return "devel"
	}
	return v
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
