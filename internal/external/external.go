// Package external spawns a single external command with pre-planned
// stdin/stdout/stderr descriptors and tracks its exit. It is the
// lowest-level building block the pipeline executor wires multiple stages
// from; the color-forcing hack the teacher shell applied for interactive
// "ls"/"grep" runs is gone here, since captured output feeds the diff
// engine and must stay byte-for-byte deterministic.
package external

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/shtestcore/shtest/internal/shellenv"
)

// Stage is one spawned external command: its *exec.Cmd (for Wait) and the
// PID recorded for timeout-supervisor registration.
type Stage struct {
	Cmd *exec.Cmd
	PID int
}

// Start launches argv[0] with argv[1:] using env's cwd and environment,
// wiring stdin/stdout/stderr to the given descriptors (any of which may be
// nil, in which case os/exec connects it to the null device). The child is
// placed in its own
// process group so the timeout supervisor can terminate the whole tree
// with a single negative-PID signal.
func Start(env *shellenv.Env, argv []string, stdin, stdout, stderr *os.File) (*Stage, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = env.Cwd()
	cmd.Env = env.EnvList()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if stdin != nil {
		cmd.Stdin = stdin
	}
	if stdout != nil {
		cmd.Stdout = stdout
	}
	if stderr != nil {
		cmd.Stderr = stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &Stage{Cmd: cmd, PID: cmd.Process.Pid}, nil
}

// Wait blocks until the stage exits and returns its exit code. A
// non-exec.ExitError failure (the process never started running, or was
// killed by a signal with no portable exit code) is reported as -1.
func (s *Stage) Wait() int {
	err := s.Cmd.Wait()
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
