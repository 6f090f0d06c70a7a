// Package version carries build-time identification for the
// rekuest-agent binary, mirrored from the teacher's own version package.
package version

import (
	"fmt"
	"runtime"
)

// Build information; overridden at build time via -ldflags.
var (
	CommitHash = "dev"
	BuildTime  = "unknown"
	Version    = "dev"
)

// Info is the structured form returned by Get.
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the current build's version information.
func Get() Info {
	return Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders a human-readable one-liner.
func (i Info) String() string {
	return fmt.Sprintf("rekuest-agent %s (commit %s, built %s)", i.Version, i.Short(), i.BuildTime)
}

// Short returns a 7-character abbreviation of the commit hash.
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}
