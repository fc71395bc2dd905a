// Package buildinfo carries the version stamped in at link time, e.g.
//
//	go build -ldflags "-X github.com/m3rciful/bakerybot/core/buildinfo.Version=v1.4.0 \
//	  -X github.com/m3rciful/bakerybot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/bakerybot/core/buildinfo.Date=$(date -u +%FT%TZ)"
package buildinfo

var (
	Version = "dev"
	Commit  = "local"
	// Date is RFC 3339; empty for local builds.
	Date = ""
)

// String renders the build as "version (commit, date)".
func String() string {
	if Date == "" {
		return Version + " (" + Commit + ")"
	}
	return Version + " (" + Commit + ", " + Date + ")"
}
