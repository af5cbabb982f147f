package selfupdate

import (
	"errors"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion indicates a tag that is not valid semver. It is
// wrapped in a *ParseError identifying the offending string.
var ErrInvalidVersion = errors.New("invalid semantic version")

// Bump classifies the jump between two versions. It is informational
// only; the update decision never depends on it.
type Bump int

const (
	BumpNone Bump = iota
	BumpPatch
	BumpMinor
	BumpMajor
)

func (b Bump) String() string {
	switch b {
	case BumpPatch:
		return "patch"
	case BumpMinor:
		return "minor"
	case BumpMajor:
		return "major"
	default:
		return "none"
	}
}

// NormalizeTag strips an optional leading "v" marker and validates the
// remainder as a semantic version. The returned string carries no marker,
// so "v1.2.3" and "1.2.3" normalize identically.
func NormalizeTag(tag string) (string, error) {
	t := strings.TrimSpace(tag)
	t = strings.TrimPrefix(t, "v")
	if t == "" || !semver.IsValid("v"+t) {
		return "", &ParseError{Input: tag, Err: ErrInvalidVersion}
	}
	return t, nil
}

// CompareVersions compares two version tags by semantic-version ordering
// after normalization. Returns -1, 0, or 1.
func CompareVersions(a, b string) (int, error) {
	na, err := NormalizeTag(a)
	if err != nil {
		return 0, err
	}
	nb, err := NormalizeTag(b)
	if err != nil {
		return 0, err
	}
	return semver.Compare("v"+na, "v"+nb), nil
}

// ClassifyBump reports the kind of version bump going from current to
// next. Anything that is not an upgrade classifies as BumpNone.
func ClassifyBump(current, next string) (Bump, error) {
	nc, err := NormalizeTag(current)
	if err != nil {
		return BumpNone, err
	}
	nn, err := NormalizeTag(next)
	if err != nil {
		return BumpNone, err
	}
	vc, vn := "v"+nc, "v"+nn
	if semver.Compare(vn, vc) <= 0 {
		return BumpNone, nil
	}
	if semver.Major(vc) != semver.Major(vn) {
		return BumpMajor, nil
	}
	if semver.MajorMinor(vc) != semver.MajorMinor(vn) {
		return BumpMinor, nil
	}
	return BumpPatch, nil
}
