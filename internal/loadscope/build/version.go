package build

import "runtime"

// Set at build time with -ldflags "-X github.com/loadscope/loadscope/internal/loadscope/build.ReleaseVersion=..."
var (
	ReleaseVersion = "UNKNOWN_VERSION"
	GitCommit      = "UNKNOWN_COMMIT"
	BuildTime      = "UNKNOWN_BUILDTIME"
	GoVersion      = runtime.Version()
)
