// Package buildinfo holds release metadata set through -ldflags, e.g.
//
//	go build -ldflags "-X github.com/aidanlsb/assetsearch/internal/buildinfo.Version=v0.3.0" ./cmd/asq
package buildinfo

// Empty for local builds; the version command then falls back to the
// module build info.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)
