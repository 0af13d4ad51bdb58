// Package buildinfo holds version metadata for the ledgerd binary.
package buildinfo

// Stamped at release time via -ldflags "-X .../buildinfo.Version=...";
// plain `go build` leaves the dev defaults.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
