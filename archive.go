package selfupdate

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// maxEntryBytes caps a single extracted entry (500 MB) to defuse
// decompression bombs in untrusted archives.
const maxEntryBytes = 500 << 20

type archiveKind int

const (
	archivePlain archiveKind = iota // bare file, copied through unchanged
	archiveGzip                     // single gzip-compressed file
	archiveXz                       // single xz-compressed file
	archiveTar
	archiveTarGz
	archiveTarXz
	archiveZip
)

// detectArchive determines the archive kind from the file name alone.
func detectArchive(name string) archiveKind {
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return archiveTarGz
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return archiveTarXz
	case strings.HasSuffix(name, ".tar"):
		return archiveTar
	case strings.HasSuffix(name, ".zip"):
		return archiveZip
	case strings.HasSuffix(name, ".gz"):
		return archiveGzip
	case strings.HasSuffix(name, ".xz"):
		return archiveXz
	default:
		return archivePlain
	}
}

func decompress(r io.Reader, kind archiveKind) (io.Reader, error) {
	switch kind {
	case archiveGzip, archiveTarGz:
		return gzip.NewReader(r)
	case archiveXz, archiveTarXz:
		return xz.NewReader(r)
	default:
		return r, nil
	}
}

// entryMatches reports whether an archive entry path ends with the
// requested name. Entries are commonly nested under a directory prefix
// ("myapp-1.2.3/bin/myapp"), so "bin/myapp" and "myapp" both match it.
func entryMatches(path, want string) bool {
	path = filepath.ToSlash(path)
	want = filepath.ToSlash(want)
	return path == want || strings.HasSuffix(path, "/"+want)
}

// ExtractFile extracts the single archive entry whose path ends with
// entry and writes it to dest. The archive kind is detected from src's
// file name; a source that is not an archive is copied through
// unchanged. The output is written to a temporary sibling and renamed
// into place, and on non-Windows platforms it always carries the
// executable bit regardless of what the archive recorded.
func ExtractFile(src, entry, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	kind := detectArchive(filepath.Base(src))
	switch kind {
	case archivePlain, archiveGzip, archiveXz:
		r, err := decompress(f, kind)
		if err != nil {
			return &ArchiveError{Path: src, Entry: entry, Err: err}
		}
		if err := writeEntry(dest, r, true); err != nil {
			return &ArchiveError{Path: src, Entry: entry, Err: err}
		}
		return nil

	case archiveTar, archiveTarGz, archiveTarXz:
		r, err := decompress(f, kind)
		if err != nil {
			return &ArchiveError{Path: src, Entry: entry, Err: err}
		}
		tr := tar.NewReader(r)
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return &ArchiveError{Path: src, Entry: entry, Err: err}
			}
			if hdr.Typeflag != tar.TypeReg || !entryMatches(hdr.Name, entry) {
				continue
			}
			if err := writeEntry(dest, tr, true); err != nil {
				return &ArchiveError{Path: src, Entry: entry, Err: err}
			}
			return nil
		}
		return &ArchiveError{Path: src, Entry: entry, Err: ErrEntryNotFound}

	case archiveZip:
		fi, err := f.Stat()
		if err != nil {
			return err
		}
		zr, err := zip.NewReader(f, fi.Size())
		if err != nil {
			return &ArchiveError{Path: src, Entry: entry, Err: err}
		}
		for _, zf := range zr.File {
			if zf.FileInfo().IsDir() || !entryMatches(zf.Name, entry) {
				continue
			}
			rc, err := zf.Open()
			if err != nil {
				return &ArchiveError{Path: src, Entry: entry, Err: err}
			}
			werr := writeEntry(dest, rc, true)
			rc.Close()
			if werr != nil {
				return &ArchiveError{Path: src, Entry: entry, Err: werr}
			}
			return nil
		}
		return &ArchiveError{Path: src, Entry: entry, Err: ErrEntryNotFound}
	}

	return &ArchiveError{Path: src, Entry: entry, Err: fmt.Errorf("unrecognized archive kind")}
}

// ExtractAll unpacks every entry of src into destDir, preserving
// relative paths. A compressed single file is written under its own name
// with the compression extension stripped.
func ExtractAll(src, destDir string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	base := filepath.Base(src)
	kind := detectArchive(base)
	switch kind {
	case archivePlain, archiveGzip, archiveXz:
		r, err := decompress(f, kind)
		if err != nil {
			return &ArchiveError{Path: src, Err: err}
		}
		name := base
		if kind != archivePlain {
			name = strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), ".xz")
		}
		if err := writeEntry(filepath.Join(destDir, name), r, false); err != nil {
			return &ArchiveError{Path: src, Err: err}
		}
		return nil

	case archiveTar, archiveTarGz, archiveTarXz:
		r, err := decompress(f, kind)
		if err != nil {
			return &ArchiveError{Path: src, Err: err}
		}
		tr := tar.NewReader(r)
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return &ArchiveError{Path: src, Err: err}
			}
			out, err := safeJoin(destDir, hdr.Name)
			if err != nil {
				return &ArchiveError{Path: src, Entry: hdr.Name, Err: err}
			}
			switch hdr.Typeflag {
			case tar.TypeDir:
				if err := os.MkdirAll(out, 0o755); err != nil {
					return err
				}
			case tar.TypeReg:
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return err
				}
				if err := writeEntry(out, tr, false); err != nil {
					return &ArchiveError{Path: src, Entry: hdr.Name, Err: err}
				}
			}
		}

	case archiveZip:
		fi, err := f.Stat()
		if err != nil {
			return err
		}
		zr, err := zip.NewReader(f, fi.Size())
		if err != nil {
			return &ArchiveError{Path: src, Err: err}
		}
		for _, zf := range zr.File {
			out, err := safeJoin(destDir, zf.Name)
			if err != nil {
				return &ArchiveError{Path: src, Entry: zf.Name, Err: err}
			}
			if zf.FileInfo().IsDir() {
				if err := os.MkdirAll(out, 0o755); err != nil {
					return err
				}
				continue
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			rc, err := zf.Open()
			if err != nil {
				return &ArchiveError{Path: src, Entry: zf.Name, Err: err}
			}
			werr := writeEntry(out, rc, false)
			rc.Close()
			if werr != nil {
				return &ArchiveError{Path: src, Entry: zf.Name, Err: werr}
			}
		}
		return nil
	}

	return &ArchiveError{Path: src, Err: fmt.Errorf("unrecognized archive kind")}
}

// safeJoin joins an archive entry path under dir, rejecting entries that
// would escape it.
func safeJoin(dir, name string) (string, error) {
	name = filepath.FromSlash(name)
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("absolute entry path %q", name)
	}
	out := filepath.Join(dir, name)
	if out != dir && !strings.HasPrefix(out, dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry path %q escapes destination", name)
	}
	return out, nil
}

// writeEntry streams r into dest via a temporary sibling so a failure
// mid-write never leaves a partial dest. The executable flag forces the
// exec bit before the rename (a no-op on Windows).
func writeEntry(dest string, r io.Reader, executable bool) error {
	tmp := dest + ".partial"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	fail := func(err error) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}

	n, err := io.Copy(f, io.LimitReader(r, maxEntryBytes+1))
	if err != nil {
		return fail(err)
	}
	if n > maxEntryBytes {
		return fail(fmt.Errorf("entry exceeds %d byte limit", int64(maxEntryBytes)))
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if executable {
		if err := markExecutable(tmp); err != nil {
			_ = os.Remove(tmp)
			return err
		}
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
