package selfupdate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Test seam for injecting rename failures.
var renameFile = os.Rename

// replaceExecutable swaps the binary at newBin into dst. The new file is
// first staged as a hidden sibling of dst, which guarantees the final
// renames happen on one filesystem, then the current binary is renamed
// aside to a ".old" backup and the staged file renamed into place. At
// every instant dst resolves to either the complete old or the complete
// new binary. Windows forbids overwriting a running executable but does
// allow renaming it, which is why the backup rename comes first.
//
// On failure the backup is renamed back best-effort and the error
// reports whether that restoration succeeded. The backup file is left
// behind; a stale one from an earlier attempt is removed here so it can
// never block the swap.
func replaceExecutable(newBin, dst string) error {
	mode := os.FileMode(0o755)
	if fi, err := os.Stat(dst); err == nil {
		mode = fi.Mode().Perm() | 0o111
	}

	dir := filepath.Dir(dst)
	staged := filepath.Join(dir, fmt.Sprintf(".%s.new-%d", filepath.Base(dst), time.Now().UnixNano()))
	if err := copyFile(staged, newBin, mode); err != nil {
		_ = os.Remove(staged)
		return &ReplaceError{Path: dst, Err: err}
	}

	backup := dst + ".old"
	_ = os.Remove(backup)

	if err := renameFile(dst, backup); err != nil {
		_ = os.Remove(staged)
		return &ReplaceError{Path: dst, Err: err}
	}
	if err := renameFile(staged, dst); err != nil {
		restored := renameFile(backup, dst) == nil
		_ = os.Remove(staged)
		return &ReplaceError{Path: dst, Restored: restored, Err: err}
	}

	_ = hideFile(backup)
	return nil
}

// copyFile copies src to dst with the given mode, fsyncing before close.
func copyFile(dst, src string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
