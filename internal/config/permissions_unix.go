//go:build !windows

package config

import "os"

// restrictPermissions drops group/other access from a config file that
// carries credentials.
func restrictPermissions(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.Mode().Perm()&0o077 == 0 {
		return nil
	}
	return os.Chmod(path, 0o600)
}
