// Package androidstore holds build metadata for the service binary.
package androidstore

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var releasePattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// IsRelease returns true if the version is a release version.
func IsRelease(v string) bool {
	return releasePattern.MatchString(v)
}

// FormattedVersion returns the version with its build time, if known.
func FormattedVersion(version, timestamp string) string {
	t, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil || t == 0 {
		return version
	}
	return fmt.Sprintf("%s (built %s)", version, time.Unix(t, 0).UTC().Format(time.RFC3339))
}

// Version of the service binary (set by linker).
var Version = "dev"

// Timestamp of the service binary (set by linker).
var Timestamp = "0"
