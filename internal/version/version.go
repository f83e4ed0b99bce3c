package version

import (
	"github.com/earthboundkid/versioninfo/v2"
)

// GetVersion returns the module version with the short commit hash when available
func GetVersion() string {
	return versioninfo.Short()
}

// GetFullVersion returns version with commit info
func GetFullVersion() string {
	ver := versioninfo.Version
	commit := versioninfo.Revision
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit == "" || commit == "unknown" {
		return ver
	}

	full := ver + " (commit: " + commit
	if versioninfo.DirtyBuild {
		full += ", dirty"
	}
	return full + ")"
}
