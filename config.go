package selfupdate

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ProgressFunc receives download progress. It is invoked synchronously
// on the downloading goroutine as data arrives; total is -1 when the
// response declares no content length.
type ProgressFunc func(received, total int64)

// DefaultChecksumAsset is the release asset consulted when checksum
// verification is enabled and no other name is configured.
const DefaultChecksumAsset = "checksums.txt"

// Config describes one update attempt. The zero value is not usable;
// fill in the required fields and pass it to NewUpdater, which validates
// it eagerly and applies defaults. Backend identity (repository, project,
// bucket) lives in the backend implementations, not here.
type Config struct {
	// BinName is the name of the binary being updated. Required.
	BinName string

	// CurrentVersion is the running version, with or without a leading
	// "v" marker. Required.
	CurrentVersion string

	// Target selects the platform asset, e.g. "x86_64-unknown-linux-gnu".
	// Defaults to DetectTarget().
	Target string

	// TargetVersion pins the update to an exact version instead of the
	// most recent release.
	TargetVersion string

	// BinPathInArchive is the entry to extract from a release archive,
	// matched by path suffix. Defaults to BinName (with ".exe" appended
	// on Windows).
	BinPathInArchive string

	// InstallPath is the destination executable. Defaults to the running
	// executable's resolved path.
	InstallPath string

	// AuthToken is sent as "Authorization: Bearer" on asset downloads,
	// which GitHub's asset endpoints expect. GitLab protected assets
	// authenticate with a PRIVATE-TOKEN header instead; set it via
	// Headers for those.
	AuthToken string

	// Headers are extra request headers applied to asset downloads.
	Headers http.Header

	// OnProgress, when set, receives download progress.
	OnProgress ProgressFunc

	// VerifyChecksum requires a matching sha256 entry in the release's
	// checksum asset before extraction.
	VerifyChecksum bool

	// ChecksumAsset overrides the checksum asset name. Defaults to
	// DefaultChecksumAsset.
	ChecksumAsset string

	// TempDir is the parent directory for scratch files. Defaults to the
	// install directory on Unix and the system temp directory on Windows.
	TempDir string

	// HTTPClient performs all downloads. Timeouts are the client's
	// responsibility. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// withDefaults validates cfg and returns a copy with defaults applied.
// Missing required fields fail here, before any network traffic.
func (c Config) withDefaults() (Config, error) {
	if strings.TrimSpace(c.BinName) == "" {
		return c, fmt.Errorf("config: bin name required")
	}
	if strings.TrimSpace(c.CurrentVersion) == "" {
		return c, fmt.Errorf("config: current version required")
	}
	if _, err := NormalizeTag(c.CurrentVersion); err != nil {
		return c, fmt.Errorf("config: current version: %w", err)
	}
	if c.TargetVersion != "" {
		if _, err := NormalizeTag(c.TargetVersion); err != nil {
			return c, fmt.Errorf("config: target version: %w", err)
		}
	}

	if c.Target == "" {
		t, err := DetectTarget()
		if err != nil {
			return c, fmt.Errorf("config: %w", err)
		}
		c.Target = t
	}
	if c.BinPathInArchive == "" {
		c.BinPathInArchive = strings.TrimSuffix(c.BinName, exeSuffix) + exeSuffix
	}
	if c.InstallPath == "" {
		exe, err := osExecutable()
		if err != nil {
			return c, fmt.Errorf("config: resolving executable: %w", err)
		}
		exe, err = filepath.Abs(exe)
		if err != nil {
			return c, fmt.Errorf("config: resolving executable: %w", err)
		}
		c.InstallPath = exe
	}
	if c.ChecksumAsset == "" {
		c.ChecksumAsset = DefaultChecksumAsset
	}
	if c.TempDir == "" {
		c.TempDir = defaultTempParent(filepath.Dir(c.InstallPath))
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return c, nil
}

// Test seam for os.Executable().
var osExecutable = os.Executable
