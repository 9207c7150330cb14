// Package version exposes the cardlift build version.
package version

// version is stamped at build time via
// -ldflags "-X github.com/cardlift/cardlift/pkg/version.version=v1.2.3".
//
//nolint:gochecknoglobals // Build-time variable injection requires a package var.
var version = "dev"

// GetVersion returns the version string for this build.
func GetVersion() string {
	return version
}
