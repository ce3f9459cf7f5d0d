// Package buildinfo holds version information set with -ldflags at build
// time, e.g. -X github.com/bongapp/bong/internal/buildinfo.Version=1.2.0.
package buildinfo

var (
	Version    = "dev"
	Codename   = "unknown"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// Short returns the version with its codename, as shown by --version.
func Short() string {
	if Codename == "" || Codename == "unknown" {
		return Version
	}
	return Version + " (" + Codename + ")"
}
