// Package docs holds the long-form guide bundled into the asq binary.
package docs

import "embed"

// FS contains the guide topics and their index.
//
//go:embed guide
var FS embed.FS
