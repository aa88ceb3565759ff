package host

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// IsRoot reports whether the process runs with effective uid 0.
func IsRoot() bool {
	return unix.Geteuid() == 0
}

// FreeSpace returns the bytes available to unprivileged users on the
// filesystem holding path.
func FreeSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("failed to stat filesystem of %s: %w", path, err)
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil // #nosec G115 - both are non-negative
}
