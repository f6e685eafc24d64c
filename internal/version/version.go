// Package version reports the lamd build. Values are injected at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/lamd/internal/version.Version=v0.4.0"
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// String formats the version for `lamd --version`. Without ldflags it falls
// back to the module version recorded by the go tool.
func String() string {
	v := Version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	switch {
	case GitCommit != "" && BuildTime != "":
		return fmt.Sprintf("%s (%s, built %s)", v, GitCommit, BuildTime)
	case GitCommit != "":
		return fmt.Sprintf("%s (%s)", v, GitCommit)
	default:
		return v
	}
}
