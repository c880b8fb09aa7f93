// Package timeoutsup implements the per-test timeout supervisor: it
// tracks spawned PIDs, fires a one-shot timer, and terminates whole
// process trees on expiry. It is the sole cancellation mechanism in the
// evaluator and is unrecoverable once fired.
package timeoutsup

import (
	"fmt"
	"os"
	"sync"
	"time"

	ps "github.com/mitchellh/go-ps"
)

// Supervisor tracks live child PIDs for one test evaluation and kills
// them all, plus their descendants, if the configured timeout elapses
// before the test finishes.
type Supervisor struct {
	mu      sync.Mutex
	pids    []int
	fired   bool
	killed  bool // done_kill_pass
	timer   *time.Timer
	timeout time.Duration
}

// New constructs a Supervisor with the given timeout. A zero timeout
// means "no timeout": StartTimer becomes a no-op and only Abort can fire
// the supervisor.
func New(timeout time.Duration) *Supervisor {
	return &Supervisor{timeout: timeout}
}

// StartTimer schedules the one-shot timer. Calling it more than once, or
// with a zero timeout, has no additional effect.
func (s *Supervisor) StartTimer() {
	if s.timeout <= 0 {
		return
	}
	s.mu.Lock()
	if s.timer != nil {
		s.mu.Unlock()
		return
	}
	s.timer = time.AfterFunc(s.timeout, s.fire)
	s.mu.Unlock()
}

// Cancel stops the timer. Safe to call after the timer has already fired.
func (s *Supervisor) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
}

// TimeoutReached reports the atomic fired flag.
func (s *Supervisor) TimeoutReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// AddProcess registers a live child. If the timer has already fired, the
// new child is killed immediately, outside the lock, before AddProcess
// returns — this is the "hold-and-kill" ordering from spec.md §4.4:
// append under lock, read done_kill_pass, release, then kill if needed.
func (s *Supervisor) AddProcess(pid int) {
	s.mu.Lock()
	s.pids = append(s.pids, pid)
	alreadyFired := s.killed
	s.mu.Unlock()

	if alreadyFired {
		killTree(pid)
	}
}

// Abort fires the supervisor on demand, exactly as the timer would,
// letting an external signal (e.g. Ctrl-C) terminate every registered
// process tree without waiting for a timeout to elapse.
func (s *Supervisor) Abort() {
	s.fire()
}

// fire is the timer callback, invoked on a separate thread by the
// platform timer utility (time.AfterFunc's own goroutine). It marks the
// flag, kills every registered PID's process tree, and clears the
// registry.
func (s *Supervisor) fire() {
	s.mu.Lock()
	s.fired = true
	pids := s.pids
	s.pids = nil
	s.killed = true
	s.mu.Unlock()

	for _, pid := range pids {
		killTree(pid)
		if survivors := Descendants(pid); len(survivors) > 0 {
			fmt.Fprintf(os.Stderr, "timeoutsup: pid %d: %d descendant(s) survived the kill pass: %v\n",
				pid, len(survivors), survivors)
		}
	}
}

// Descendants returns the PIDs of processes whose parent is pid, used as
// a diagnostic cross-check after the process-group kill: fire calls it
// after every killTree and logs any descendants it still finds.
func Descendants(pid int) []int {
	procs, err := ps.Processes()
	if err != nil {
		return nil
	}
	var out []int
	for _, p := range procs {
		if p.PPid() == pid {
			out = append(out, p.Pid())
		}
	}
	return out
}
