// SPDX-License-Identifier: MIT
//
// Package build carries the metadata stamped into the binary at link time,
// for example:
//
//	go build -ldflags "-X github.com/sonyaz93/Divaparadise-ai/pkg/build.buildVersion=0.2.0"
//
// Development builds run with the defaults below, so Initialize only fails
// when a release build forgets one of the required flags.
package build

import "fmt"

const (
	defaultName        = "diva-engine"
	defaultDescription = "Gain, limiter, peak meter and spectrum bars for the Divaparadise player"
)

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Set with -ldflags -X. A release build sets all of them.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildRelease string // "true" for release builds
	buildFlags   = &ldFlags{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize copies the link-time values into the build info. For release
// builds every value is required; development builds keep the defaults for
// anything left unset.
func Initialize() error {
	if buildRelease == "true" {
		if buildName == "" {
			return fmt.Errorf("BuildName is required")
		}
		if buildTime == "" {
			return fmt.Errorf("BuildTime is required")
		}
		if buildCommit == "" {
			return fmt.Errorf("BuildCommit is required")
		}
		if buildVersion == "" {
			return fmt.Errorf("BuildVersion is required")
		}
	}

	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the build information for version output.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
