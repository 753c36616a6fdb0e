// Package version holds build metadata injected with -ldflags.
package version

// Set at build time:
//
//	go build -ldflags "-X github.com/sydlexius/autotagger/internal/version.Version=v1.2.0 -X github.com/sydlexius/autotagger/internal/version.Commit=abc123"
var (
	Version = "dev"
	Commit  = "unknown"
)

// String returns "Version (Commit)".
func String() string {
	return Version + " (" + Commit + ")"
}
