package selfupdate

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeTarGz(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("tar write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
}

func TestDetectArchive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want archiveKind
	}{
		{"app-1.0.0.tar.gz", archiveTarGz},
		{"app-1.0.0.tgz", archiveTarGz},
		{"app-1.0.0.tar.xz", archiveTarXz},
		{"app-1.0.0.txz", archiveTarXz},
		{"app-1.0.0.tar", archiveTar},
		{"app-1.0.0.zip", archiveZip},
		{"app.gz", archiveGzip},
		{"app.xz", archiveXz},
		{"app", archivePlain},
		{"app.exe", archivePlain},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := detectArchive(tc.name); got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestExtractFileTarGz(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "app-1.0.0.tar.gz")
	writeTarGz(t, src, map[string]string{
		"app-1.0.0/README.md": "docs",
		"app-1.0.0/bin/app":   "binary-bytes",
	})

	dest := filepath.Join(dir, "app")
	if err := ExtractFile(src, "bin/app", dest); err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != "binary-bytes" {
		t.Fatalf("got %q want %q", data, "binary-bytes")
	}
	if runtime.GOOS != "windows" {
		fi, err := os.Stat(dest)
		if err != nil {
			t.Fatalf("stat dest: %v", err)
		}
		if fi.Mode().Perm()&0o111 == 0 {
			t.Fatalf("extracted binary is not executable: %v", fi.Mode())
		}
	}
}

func TestExtractFileZip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "app-1.0.0.zip")
	writeZip(t, src, map[string]string{
		"app-1.0.0/app.exe": "pe-bytes",
	})

	dest := filepath.Join(dir, "app.exe")
	if err := ExtractFile(src, "app.exe", dest); err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != "pe-bytes" {
		t.Fatalf("got %q want %q", data, "pe-bytes")
	}
}

func TestExtractFilePlainPassthrough(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "app")
	if err := os.WriteFile(src, []byte("raw"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	dest := filepath.Join(dir, "out")
	if err := ExtractFile(src, "app", dest); err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "raw" {
		t.Fatalf("got %q want %q", data, "raw")
	}
}

func TestExtractFileEntryMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "app.tar.gz")
	writeTarGz(t, src, map[string]string{"README.md": "docs"})

	dest := filepath.Join(dir, "app")
	err := ExtractFile(src, "bin/app", dest)
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	var ae *ArchiveError
	if !errors.As(err, &ae) || ae.Entry != "bin/app" {
		t.Fatalf("expected *ArchiveError naming the entry, got %v", err)
	}
	if _, serr := os.Stat(dest); !os.IsNotExist(serr) {
		t.Fatalf("dest must not exist after a failed extraction")
	}
	if _, serr := os.Stat(dest + ".partial"); !os.IsNotExist(serr) {
		t.Fatalf("partial file left behind")
	}
}

func TestEntryMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path, want string
		match      bool
	}{
		{"app", "app", true},
		{"app-1.0.0/bin/app", "app", true},
		{"app-1.0.0/bin/app", "bin/app", true},
		{"app-1.0.0/bin/myapp", "app", false},
		{"bin/app.exe", "app", false},
	}
	for _, tc := range tests {
		if got := entryMatches(tc.path, tc.want); got != tc.match {
			t.Fatalf("entryMatches(%q, %q): got %v want %v", tc.path, tc.want, got, tc.match)
		}
	}
}

func TestExtractAllTarGz(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "bundle.tar.gz")
	writeTarGz(t, src, map[string]string{
		"bundle/app":       "binary",
		"bundle/README.md": "docs",
	})

	out := filepath.Join(dir, "out")
	if err := ExtractAll(src, out); err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(out, "bundle", "app"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != "binary" {
		t.Fatalf("got %q want %q", data, "binary")
	}
}

func TestExtractAllRejectsEscapingEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, src, map[string]string{"../evil": "payload"})

	err := ExtractAll(src, filepath.Join(dir, "out"))
	if err == nil {
		t.Fatalf("expected error for entry escaping the destination")
	}
	if _, serr := os.Stat(filepath.Join(dir, "evil")); !os.IsNotExist(serr) {
		t.Fatalf("escaping entry was written")
	}
}

func TestSafeJoin(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := safeJoin(dir, "a/b"); err != nil {
		t.Fatalf("safeJoin rejected a normal path: %v", err)
	}
	if _, err := safeJoin(dir, "../escape"); err == nil {
		t.Fatalf("safeJoin accepted a traversal path")
	}
}
