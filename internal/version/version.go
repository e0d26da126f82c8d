package version

import "fmt"

// Name identifies the binary in logs and outgoing requests.
const Name = "bankcompare"

var (
	// Version is the semantic version of the binary. Overridden at build time.
	Version = "dev"
	// Commit is the git commit hash. Overridden at build time.
	Commit = "unknown"
	// BuildDate is the build timestamp. Overridden at build time.
	BuildDate = "unknown"
)

// UserAgent is sent on HTTP requests unless configuration overrides it.
func UserAgent() string {
	return Name + "/" + Version
}

// String is the build summary printed by the version command.
func String() string {
	return fmt.Sprintf("%s %s\ncommit: %s\nbuilt: %s", Name, Version, Commit, BuildDate)
}
