package version

import "fmt"

const (
	snapshotString = "snapshot"
	devString      = "development"
)

var (
	// Version Build Time Injected information
	Version    string
	CommitHash string
	BuildTime  string
	Prerelease string
	Snapshot   string
	OS         string
	Arch       string
	Branch     string
)

// GetVersion returns the version information in a human consumable way. It is shown by the version
// command and sent in the User-Agent header.
func GetVersion() string {
	if Version == "" {
		return devString
	}
	return makeVersionString(Version, CommitHash, Prerelease, Snapshot, OS, Arch, Branch)
}

// UserAgent is the value of the User-Agent header on every request rget makes.
func UserAgent() string {
	return fmt.Sprintf("rget/%s", GetVersion())
}

func makeVersionString(version, commitHash, prerelease, snapshot, os, arch, branch string) (versionString string) {
	versionString = version
	if commitHash != "" {
		versionString = fmt.Sprintf("%s(%s)", versionString, commitHash)
	}
	if prerelease != "" {
		versionString = fmt.Sprintf("%s-%s", versionString, prerelease)
	} else if snapshot == "true" {
		versionString = fmt.Sprintf("%s-%s", versionString, snapshotString)
	}

	if branch != "" && branch != "main" && branch != "HEAD" {
		versionString = fmt.Sprintf("%s[%s]", versionString, branch)
	}

	if os != "" && arch != "" {
		versionString = fmt.Sprintf("%s/%s-%s", versionString, os, arch)
	} else if os != "" {
		versionString = fmt.Sprintf("%s/%s", versionString, os)
	}

	return versionString
}
