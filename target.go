package selfupdate

import (
	"fmt"
	"runtime"
)

// DetectTarget returns a target triple describing the running binary's
// platform, e.g. "x86_64-unknown-linux-gnu" or "aarch64-apple-darwin".
// Linux builds report the gnu environment; callers shipping musl builds
// should set Config.Target explicitly.
func DetectTarget() (string, error) {
	var arch string
	switch runtime.GOARCH {
	case "amd64":
		arch = "x86_64"
	case "386":
		arch = "i686"
	case "arm64":
		arch = "aarch64"
	case "arm":
		arch = "armv7"
	default:
		return "", fmt.Errorf("unsupported architecture %q", runtime.GOARCH)
	}

	switch runtime.GOOS {
	case "linux":
		return arch + "-unknown-linux-gnu", nil
	case "darwin":
		return arch + "-apple-darwin", nil
	case "windows":
		return arch + "-pc-windows-msvc", nil
	case "freebsd":
		return arch + "-unknown-freebsd", nil
	default:
		return "", fmt.Errorf("unsupported operating system %q", runtime.GOOS)
	}
}
