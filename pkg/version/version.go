package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/trititantech/server/pkg/version.Tag=..."
var (
	Tag    = "v0.0.0-dev"
	Commit = "HEAD"
)

type Version struct {
	Tag       string `json:"tag"`
	Commit    string `json:"commit"`
	GoVersion string `json:"goVersion"`
}

func (v Version) String() string {
	return fmt.Sprintf("%s (%s)", v.Tag, v.Commit)
}

func Get() Version {
	return Version{
		Tag:       Tag,
		Commit:    Commit,
		GoVersion: runtime.Version(),
	}
}
