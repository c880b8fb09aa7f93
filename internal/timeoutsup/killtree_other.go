//go:build !linux && !darwin

package timeoutsup

import "os"

// killTree falls back to a best-effort single-process kill on platforms
// without POSIX process groups (notably Windows); descendants of pid are
// not signalled there.
func killTree(pid int) {
	if p, err := os.FindProcess(pid); err == nil {
		_ = p.Kill()
	}
}
