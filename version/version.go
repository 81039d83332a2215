package version

import "fmt"

// these values are set at build time via ldflags
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"

	FullVersion = computeFullVersion()
)

func computeFullVersion() string {
	return fmt.Sprintf("%s (%s) %s", Version, GitCommit, BuildDate)
}
