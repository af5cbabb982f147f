// Package selfupdate updates a running executable in place from a remote
// release distribution source: GitHub releases, GitLab releases, or an
// S3-compatible object store (see the backend subpackages). The pipeline
// is release discovery, version selection, platform asset selection,
// download, archive extraction, and an atomic rename-based swap of the
// running binary.
package selfupdate

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/lansespirit/selfupdate/internal/logger"
)

// Backend lists releases from a distribution source. Implementations
// must return releases ordered most-recent-first; the updater never
// re-sorts them, it only filters and selects.
type Backend interface {
	ListReleases(ctx context.Context) ([]Release, error)
	LatestRelease(ctx context.Context) (*Release, error)
}

// Status is the outcome of a successful update attempt.
type Status struct {
	updated bool
	version string
}

// Updated reports whether a new binary was installed.
func (s Status) Updated() bool { return s.updated }

// Version returns the normalized version the binary is now at.
func (s Status) Version() string { return s.version }

func (s Status) String() string {
	if s.updated {
		return fmt.Sprintf("Updated(%s)", s.version)
	}
	return fmt.Sprintf("UpToDate(%s)", s.version)
}

// Updater runs the end-to-end update flow against one backend. It holds
// no mutable state; a failed attempt is retried by calling Update again.
// Concurrent updates of the same destination path are not serialized
// here and must be prevented by the caller.
type Updater struct {
	backend Backend
	cfg     Config
}

// NewUpdater validates cfg, applies defaults, and returns an Updater.
func NewUpdater(backend Backend, cfg Config) (*Updater, error) {
	if backend == nil {
		return nil, fmt.Errorf("config: backend required")
	}
	c, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Updater{backend: backend, cfg: c}, nil
}

// CheckForUpdate resolves the candidate release without downloading
// anything. A nil release means the binary is already up to date. The
// bump classification is informational only.
func (u *Updater) CheckForUpdate(ctx context.Context) (*Release, Bump, error) {
	rel, err := u.selectRelease(ctx)
	if err != nil {
		return nil, BumpNone, err
	}

	cmp, err := CompareVersions(u.cfg.CurrentVersion, rel.Version)
	if err != nil {
		return nil, BumpNone, err
	}
	if cmp == 0 {
		return nil, BumpNone, nil
	}
	// A pinned version that differs from the current one is always a
	// candidate, downgrades included. Without a pin, only newer counts.
	if u.cfg.TargetVersion == "" && cmp > 0 {
		return nil, BumpNone, nil
	}

	bump, err := ClassifyBump(u.cfg.CurrentVersion, rel.Version)
	if err != nil {
		return nil, BumpNone, err
	}
	return rel, bump, nil
}

// Update runs the whole flow and blocks until it reaches a terminal
// state. Scratch files are removed on every exit path; nothing is
// retried automatically.
func (u *Updater) Update(ctx context.Context) (Status, error) {
	current, err := NormalizeTag(u.cfg.CurrentVersion)
	if err != nil {
		return Status{}, err
	}

	rel, _, err := u.CheckForUpdate(ctx)
	if err != nil {
		return Status{}, err
	}
	if rel == nil {
		return Status{version: current}, nil
	}
	logger.Debug("selected release %s for target %s", rel.TagName, u.cfg.Target)

	asset, ok := rel.AssetFor(u.cfg.Target, u.cfg.BinName)
	if !ok {
		return Status{}, fmt.Errorf("release %s, target %q: %w", rel.TagName, u.cfg.Target, ErrAssetNotFound)
	}

	tmpDir, err := os.MkdirTemp(u.cfg.TempDir, "."+u.cfg.BinName+"-update-")
	if err != nil {
		return Status{}, err
	}
	defer os.RemoveAll(tmpDir)

	headers := u.downloadHeaders()
	archivePath := filepath.Join(tmpDir, filepath.Base(asset.Name))
	logger.Debug("downloading %s", asset.URL)
	if err := downloadTo(ctx, u.cfg.HTTPClient, asset.URL, headers, archivePath, u.cfg.OnProgress); err != nil {
		return Status{}, err
	}

	if u.cfg.VerifyChecksum {
		if err := u.verifyDownload(ctx, rel, asset, archivePath, tmpDir, headers); err != nil {
			return Status{}, err
		}
	}

	newBin := filepath.Join(tmpDir, "new-"+filepath.Base(u.cfg.BinPathInArchive))
	if err := ExtractFile(archivePath, u.cfg.BinPathInArchive, newBin); err != nil {
		return Status{}, err
	}

	if err := replaceExecutable(newBin, u.cfg.InstallPath); err != nil {
		return Status{}, err
	}
	logger.Info("updated %s to %s", u.cfg.InstallPath, rel.TagName)
	return Status{updated: true, version: rel.Version}, nil
}

// selectRelease applies the version selection policy: the pinned version
// when one is configured, otherwise the backend's most recent release.
func (u *Updater) selectRelease(ctx context.Context) (*Release, error) {
	if u.cfg.TargetVersion == "" {
		return u.backend.LatestRelease(ctx)
	}

	want, err := NormalizeTag(u.cfg.TargetVersion)
	if err != nil {
		return nil, err
	}
	releases, err := u.backend.ListReleases(ctx)
	if err != nil {
		return nil, err
	}
	for i := range releases {
		if releases[i].Version == want {
			return &releases[i], nil
		}
	}
	return nil, fmt.Errorf("version %s: %w", u.cfg.TargetVersion, ErrReleaseNotFound)
}

func (u *Updater) verifyDownload(ctx context.Context, rel *Release, asset Asset, archivePath, tmpDir string, headers http.Header) error {
	sumAsset, ok := rel.findAsset(u.cfg.ChecksumAsset)
	if !ok {
		return fmt.Errorf("release %s missing checksum asset %q", rel.TagName, u.cfg.ChecksumAsset)
	}
	sumPath := filepath.Join(tmpDir, filepath.Base(sumAsset.Name))
	if err := downloadTo(ctx, u.cfg.HTTPClient, sumAsset.URL, headers, sumPath, nil); err != nil {
		return err
	}
	return verifyChecksum(archivePath, sumPath, asset.Name)
}

func (u *Updater) downloadHeaders() http.Header {
	h := http.Header{}
	for k, vs := range u.cfg.Headers {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	// Release-API asset endpoints return JSON metadata unless the raw
	// binary content type is requested.
	if h.Get("Accept") == "" {
		h.Set("Accept", "application/octet-stream")
	}
	if u.cfg.AuthToken != "" && h.Get("Authorization") == "" {
		h.Set("Authorization", "Bearer "+u.cfg.AuthToken)
	}
	return h
}
