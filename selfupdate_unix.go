//go:build !windows

package selfupdate

import "os"

const exeSuffix = ""

// markExecutable forces the executable bit. Permissions recorded in
// archives are not trusted.
func markExecutable(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.Chmod(path, fi.Mode().Perm()|0o755)
}

// defaultTempParent picks where download/extract scratch space lives.
// Staying next to the destination keeps the final renames on a single
// filesystem in the common case.
func defaultTempParent(installDir string) string { return installDir }

func hideFile(path string) error { return nil }
