package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the service version.
var Version = "0.3.0"

// DevVersion is the service version of development.
var DevVersion = "0.3.0"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// GetMinorVersion extracts the semantic version to minor version, e.g. 0.3.1 -> 0.3.
func GetMinorVersion(version string) string {
	versionList := strings.Split(version, ".")
	if len(versionList) < 2 {
		return ""
	}
	return versionList[0] + "." + versionList[1]
}

// IsVersionGreaterOrEqualThan returns true if version is greater than or equal to target.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target)) > -1
}

// IsVersionGreaterThan returns true if version is greater than target.
func IsVersionGreaterThan(version, target string) bool {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target)) > 0
}

// IsValid reports whether version is a valid semantic version without the "v" prefix.
func IsValid(version string) bool {
	return semver.IsValid(fmt.Sprintf("v%s", version))
}
