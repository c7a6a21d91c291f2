package buildinfo

import "fmt"

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/imagebot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/imagebot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/imagebot/core/buildinfo.Date=2026-10-01T12:00:00Z'
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders the build identity for the version command.
func String() string {
	date := Date
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("imagebot %s (commit %s, built %s)", Version, Commit, date)
}
