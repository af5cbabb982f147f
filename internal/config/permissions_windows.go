//go:build windows

package config

// restrictPermissions is a no-op on Windows; file ACLs are inherited
// from the profile directory.
func restrictPermissions(path string) error {
	return nil
}
