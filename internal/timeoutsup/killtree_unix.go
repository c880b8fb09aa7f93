//go:build linux || darwin

package timeoutsup

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// killTree sends SIGTERM followed by SIGKILL to pid's process group. The
// pipeline executor places every spawned child in its own process group
// (SysProcAttr.Setpgid) specifically so that a single negative-pid kill
// here reaches the whole tree, not just the direct child.
func killTree(pid int) {
	_ = unix.Kill(-pid, syscall.SIGTERM)
	_ = unix.Kill(-pid, syscall.SIGKILL)
}
