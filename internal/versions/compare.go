package versions

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// IsNewerVersion reports whether newVersion is strictly greater than oldVersion.
// It uses semantic versioning for comparison when both strings are valid semver,
// and falls back to lexicographic string comparison otherwise.
func IsNewerVersion(newVersion, oldVersion string) bool {
	newSemver, errNew := semver.NewVersion(newVersion)
	oldSemver, errOld := semver.NewVersion(oldVersion)

	if errNew != nil || errOld != nil {
		// Fallback to string comparison if semver parsing fails
		return newVersion > oldVersion
	}

	return newSemver.GreaterThan(oldSemver)
}

// MoodleRelease extracts the version from a Moodle release string such as
// "4.3.2+ (Build: 20240112)". The weekly "+" marker is dropped.
func MoodleRelease(release string) string {
	fields := strings.Fields(release)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimSuffix(fields[0], "+")
}

// AtLeast reports whether a Moodle release string is at least minimum.
// Releases that do not parse never satisfy the minimum.
func AtLeast(release, minimum string) bool {
	v, err := semver.NewVersion(MoodleRelease(release))
	if err != nil {
		return false
	}
	m, err := semver.NewVersion(minimum)
	if err != nil {
		return false
	}
	return !v.LessThan(m)
}
