package selfupdate

import (
	"errors"
	"fmt"
)

var (
	// ErrReleaseNotFound is returned when no release matches the selection
	// criteria (e.g. a pinned version that no backend release carries).
	ErrReleaseNotFound = errors.New("no matching release found")

	// ErrAssetNotFound is returned when a release has no asset matching the
	// configured target. Distinct from ErrReleaseNotFound.
	ErrAssetNotFound = errors.New("no asset found for target")

	// ErrRepositoryNotFound is returned when the configured repository,
	// project, or bucket does not exist at the backend.
	ErrRepositoryNotFound = errors.New("repository not found")

	// ErrEntryNotFound is returned (wrapped in an *ArchiveError) when the
	// requested entry is missing from an archive.
	ErrEntryNotFound = errors.New("entry not found in archive")
)

// HTTPStatusError reports a non-success HTTP response from a backend API
// or a download endpoint.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// ParseError reports malformed backend data: an API response body, a
// version tag, or an object key. Input holds the offending string, or a
// short description when the input is a whole response body.
type ParseError struct {
	Backend string
	Input   string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s: cannot parse %q: %v", e.Backend, e.Input, e.Err)
	}
	return fmt.Sprintf("cannot parse %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ArchiveError reports a corrupt stream or a missing entry during
// extraction. Entry is empty for whole-archive operations.
type ArchiveError struct {
	Path  string
	Entry string
	Err   error
}

func (e *ArchiveError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("archive %s (entry %q): %v", e.Path, e.Entry, e.Err)
	}
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// ReplaceError reports a failed executable swap. Restored indicates
// whether the best-effort restoration of the previous binary succeeded;
// the update itself still failed either way.
type ReplaceError struct {
	Path     string
	Restored bool
	Err      error
}

func (e *ReplaceError) Error() string {
	if e.Restored {
		return fmt.Sprintf("replace %s: %v (previous binary restored)", e.Path, e.Err)
	}
	return fmt.Sprintf("replace %s: %v", e.Path, e.Err)
}

func (e *ReplaceError) Unwrap() error { return e.Err }
