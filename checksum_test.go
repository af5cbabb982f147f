package selfupdate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseChecksums(t *testing.T) {
	t.Parallel()

	data := []byte(`
# released 2026-08-30
0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef  app-1.4.0-x86_64-unknown-linux-gnu.tar.gz
AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA *app-1.4.0-x86_64-pc-windows-msvc.zip
`)
	m, err := parseChecksums(data)
	if err != nil {
		t.Fatalf("parseChecksums: %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("entries: got %d want 2", len(m))
	}
	if m["app-1.4.0-x86_64-unknown-linux-gnu.tar.gz"] == "" {
		t.Fatalf("missing linux entry")
	}
	if got := m["app-1.4.0-x86_64-pc-windows-msvc.zip"]; got != strings.ToLower(strings.Repeat("a", 64)) {
		t.Fatalf("windows entry: got %q", got)
	}
}

func TestParseChecksumsRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"short sum", "abcd  app.tar.gz\n"},
		{"no filename", "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef\n"},
		{"empty", "# only comments\n"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := parseChecksums([]byte(tc.data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestVerifyChecksum(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	asset := filepath.Join(dir, "app.tar.gz")
	content := []byte("archive bytes")
	if err := os.WriteFile(asset, content, 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	sum := sha256.Sum256(content)

	manifest := filepath.Join(dir, "checksums.txt")
	line := fmt.Sprintf("%s  app.tar.gz\n", hex.EncodeToString(sum[:]))
	if err := os.WriteFile(manifest, []byte(line), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	if err := verifyChecksum(asset, manifest, "app.tar.gz"); err != nil {
		t.Fatalf("verifyChecksum: %v", err)
	}

	if err := verifyChecksum(asset, manifest, "other.tar.gz"); err == nil {
		t.Fatalf("expected error for missing manifest entry")
	}

	bad := filepath.Join(dir, "bad.txt")
	badLine := strings.Repeat("0", 64) + "  app.tar.gz\n"
	if err := os.WriteFile(bad, []byte(badLine), 0o644); err != nil {
		t.Fatalf("write bad manifest: %v", err)
	}
	if err := verifyChecksum(asset, bad, "app.tar.gz"); err == nil {
		t.Fatalf("expected error for mismatching checksum")
	}
}
