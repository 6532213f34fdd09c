// Package version carries the build version of ds4dsu.
package version

import (
	"fmt"
	"strings"
)

// Version is set via ldflags at build time: -ldflags "-X github.com/Alia5/ds4dsu/internal/version.Version=x.y.z"
var Version = ""

const devVersion = "0.0.1-dev"

// Get returns the version string set at build time, or a dev version when
// none was set.
func Get() (string, error) {
	if Version == "" {
		return devVersion, nil
	}

	v := strings.TrimPrefix(Version, "v")
	base := strings.SplitN(v, "-", 2)[0]
	if !strings.Contains(base, ".") {
		return "", fmt.Errorf("invalid version format: %s (expected x.y.z)", Version)
	}
	return v, nil
}

// String is Get without the error; an invalid ldflags value is reported as is.
func String() string {
	v, err := Get()
	if err != nil {
		return Version
	}
	return v
}
