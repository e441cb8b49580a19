// Package version exposes the build identity stamped into the binary.
package version

// These are overridden at build time via -ldflags "-X ...". The zero
// values identify a binary built straight from the working tree.
var (
	// Version is the release version.
	Version = "0.0.0"

	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"

	// BuildDate is the UTC timestamp of the build.
	BuildDate = "unknown"
)

// String renders the build identity for startup logs.
func String() string {
	return Version + " (" + GitCommit + ")"
}
