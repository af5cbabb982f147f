//go:build windows

package selfupdate

import (
	"os"

	"golang.org/x/sys/windows"
)

const exeSuffix = ".exe"

func markExecutable(path string) error { return nil }

func defaultTempParent(installDir string) string { return os.TempDir() }

// hideFile marks the leftover backup hidden so it does not clutter the
// install directory. Best-effort; callers ignore the error.
func hideFile(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	return windows.SetFileAttributes(p, windows.FILE_ATTRIBUTE_HIDDEN)
}
