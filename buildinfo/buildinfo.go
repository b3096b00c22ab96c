// Package buildinfo provides build-time properties injected via ldflags:
//
//	go build -ldflags "-X github.com/nomis52/dinamicisland/buildinfo.version=v0.3.0 \
//	    -X github.com/nomis52/dinamicisland/buildinfo.gitCommit=$(git rev-parse HEAD)"
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Properties holds build-time properties injected via ldflags.
type Properties struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Get returns the current build properties. A commit missing from ldflags is
// taken from the VCS stamp the go tool embeds, when there is one.
func Get() Properties {
	p := Properties{
		Version:   version,
		BuildTime: buildTime,
		GitCommit: gitCommit,
	}
	if p.GitCommit == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					p.GitCommit = s.Value
				case "vcs.time":
					if p.BuildTime == "unknown" {
						p.BuildTime = s.Value
					}
				}
			}
		}
	}
	return p
}

// String formats the properties for the version command.
func (p Properties) String() string {
	return fmt.Sprintf("dinamicisland %s (commit %s, built %s)", p.Version, p.GitCommit, p.BuildTime)
}
