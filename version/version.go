package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Set via -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
	GoVersion = ""
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	GitBranch string    `json:"git_branch,omitempty" yaml:"git_branch,omitempty"`
	BuildTime string    `json:"build_time,omitempty" yaml:"build_time,omitempty"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	BuildDate time.Time `json:"-" yaml:"-"`
	IsRelease bool      `json:"is_release" yaml:"is_release"`
	IsDirty   bool      `json:"is_dirty" yaml:"is_dirty"`
}

// GetVersionInfo merges the ldflags values with embedded VCS settings.
// ldflags win when both are present.
func GetVersionInfo() *Info {
	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		IsRelease: Version != "dev" && !strings.Contains(Version, "dirty"),
	}
	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t
		}
	}

	if bi, ok := readBuildInfo(); ok {
		if info.GoVersion == "" {
			info.GoVersion = bi.GoVersion
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = shortCommit(s.Value)
				}
			case "vcs.modified":
				info.IsDirty = s.Value == "true"
			case "vcs.time":
				if info.BuildTime == "" {
					if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
						info.BuildDate = t
						info.BuildTime = s.Value
					}
				}
			}
		}
	}
	return info
}

// String renders "v0.3.0 (abc1234, dirty) go1.25.0".
func (i *Info) String() string {
	var meta []string
	if i.GitCommit != "" {
		meta = append(meta, i.GitCommit)
	}
	if i.GitBranch != "" && i.GitBranch != "main" && i.GitBranch != "master" {
		meta = append(meta, i.GitBranch)
	}
	if i.IsDirty {
		meta = append(meta, "dirty")
	}
	s := i.Version
	if len(meta) > 0 {
		s += " (" + strings.Join(meta, ", ") + ")"
	}
	if i.GoVersion != "" {
		s += " " + i.GoVersion
	}
	if !i.BuildDate.IsZero() {
		s += fmt.Sprintf(" built %s", i.BuildDate.UTC().Format(time.RFC3339))
	}
	return s
}

// GetShortVersion returns "version-commit[-dirty]", used as the otel
// service.version resource attribute.
func GetShortVersion() string {
	info := GetVersionInfo()
	if info.GitCommit == "" {
		return info.Version
	}
	if info.IsDirty {
		return fmt.Sprintf("%s-%s-dirty", info.Version, info.GitCommit)
	}
	return fmt.Sprintf("%s-%s", info.Version, info.GitCommit)
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
