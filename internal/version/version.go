// Package version reports which hanaihang build is running. The variables
// are overwritten with -ldflags "-X" by the release build.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build for `hanaihangctl --version` and startup logs.
func String() string {
	return Version + " (commit " + Commit + ", built " + Date + ")"
}
