package common

import (
	"fmt"
	"strings"
)

// Set at build time with -ldflags "-X github.com/WangYihang/wiki-deadlink-finder/pkg/common.Version=..."
var (
	// Version is the current version of the program
	Version = "dev"
	// CommitHash is the commit the program was built from
	CommitHash = "unknown"
	// BuildTime is when the program was built
	BuildTime = "unknown"
)

// ProgramVersion is the version object of the program
type ProgramVersion struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
}

// Current returns the version the program was built with
func Current() ProgramVersion {
	return ProgramVersion{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
	}
}

// Short returns the short version of the program
func (v ProgramVersion) Short() string {
	return fmt.Sprintf("%s-%s", v.Version, v.CommitHash)
}

// String returns the verbose version of the program
func (v ProgramVersion) String() string {
	var b strings.Builder
	b.WriteString("wiki-deadlink-finder\n")
	fmt.Fprintf(&b, "Version: %s\n", v.Version)
	fmt.Fprintf(&b, "Commit: %s\n", v.CommitHash)
	fmt.Fprintf(&b, "Build Date: %s", v.BuildTime)
	return b.String()
}

// UserAgent returns the default User-Agent suffixed with the program version
func (v ProgramVersion) UserAgent(base string) string {
	if v.Version == "" || v.Version == "dev" {
		return base
	}
	return fmt.Sprintf("%s wiki-deadlink-finder/%s", base, v.Version)
}
