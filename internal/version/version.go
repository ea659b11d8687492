// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version
	Version = "0.1.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Name is the program name reported by String.
const Name = "imcreg"

// Info is the version information in a form suitable for JSON output.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Get returns the current version information.
func Get() Info {
	return Info{Name: Name, Version: Version, BuildTime: BuildTime, GitCommit: GitCommit}
}

// String returns a one-line version banner.
func String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Name, Version, GitCommit, BuildTime)
}
