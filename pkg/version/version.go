// Package version reports kbsearch build information. The variables are set
// with -ldflags "-X github.com/Aman-CERP/kbsearch/pkg/version.Version=...".
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "unknown"
	// Date is RFC3339.
	Date = "unknown"

	GoVersion = runtime.Version()
)

// BuildInfo is the JSON form printed by "kbsearch version --json".
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetInfo collects the build variables and the runtime platform.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// String is the one-line form of GetInfo.
func String() string {
	info := GetInfo()
	return fmt.Sprintf("kbsearch %s (commit: %s, built: %s, go: %s, %s/%s)",
		info.Version, info.Commit, info.Date, info.GoVersion, info.OS, info.Arch)
}

// Short returns Version alone.
func Short() string {
	return Version
}
