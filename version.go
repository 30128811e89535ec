package bridge

import (
	"github.com/Masterminds/semver/v3"
	"github.com/prometheus/common/version"
)

// builtAppVersion is overridden at link time with -X.
var builtAppVersion = "0.1.0-dev"

func init() {
	version.Version = builtAppVersion
}

func GetLocalVersion() (*semver.Version, error) {
	return semver.NewVersion(builtAppVersion)
}

func VersionString() string {
	return version.Print("chatpad-bridge")
}
