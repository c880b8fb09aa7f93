// Package pipeline executes one ast.Pipeline: it wires anonymous pipes
// between consecutive Commands, spawns every external stage, dispatches
// a lone recognized builtin to the builtin registry instead of exec'ing
// it, registers every spawned PID with the timeout supervisor, and
// applies the pipefail/negate exit-code policy from spec.md §4.7.
package pipeline

import (
	"bytes"
	"io"
	"os"

	"github.com/shtestcore/shtest/internal/ast"
	"github.com/shtestcore/shtest/internal/builtin"
	"github.com/shtestcore/shtest/internal/external"
	"github.com/shtestcore/shtest/internal/globexpand"
	"github.com/shtestcore/shtest/internal/redirect"
	"github.com/shtestcore/shtest/internal/shellenv"
	"github.com/shtestcore/shtest/internal/shellerr"
	"github.com/shtestcore/shtest/internal/timeoutsup"
)

// StageResult is the Shell Command Result from spec.md §3 for one stage of
// the pipeline: captured output, exit code (shellerr.ExitTimeout on
// timeout), and the redirect ledger for post-run inspection.
type StageResult struct {
	Command  *ast.Command
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Ledger   []redirect.LedgerEntry
}

// Result is the outcome of running a whole Pipeline.
type Result struct {
	Stages   []StageResult
	ExitCode int
}

// capture drains a pipe's read end in the background and yields its
// accumulated bytes once the write end is closed.
type capture struct {
	read, write *os.File
	buf         bytes.Buffer
	done        chan struct{}
}

func newCapture() (*capture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	c := &capture{read: r, write: w, done: make(chan struct{})}
	go func() {
		_, _ = io.Copy(&c.buf, c.read)
		close(c.done)
	}()
	return c, nil
}

func (c *capture) finish() string {
	_ = c.write.Close()
	<-c.done
	_ = c.read.Close()
	return c.buf.String()
}

// Run executes pipe against env, registering spawned PIDs with sup.
func Run(env *shellenv.Env, pipe *ast.Pipeline, sup *timeoutsup.Supervisor) (*Result, error) {
	n := len(pipe.Stages)
	result := &Result{Stages: make([]StageResult, n)}

	// Plan redirects and glob-expand argv for every stage up front, so an
	// open or expansion failure aborts before any process is spawned.
	plans := make([]*redirect.Plan, n)
	for i, cmd := range pipe.Stages {
		expanded, err := expandCommand(env, cmd)
		if err != nil {
			return nil, err
		}
		pipe.Stages[i] = expanded

		plan, err := redirect.Build(env.Cwd(), expanded)
		if err != nil {
			return nil, err
		}
		plans[i] = plan
	}
	defer func() {
		for _, p := range plans {
			p.Close()
		}
	}()

	type running struct {
		idx     int
		stage   *external.Stage
		outCap  *capture
		errCap  *capture
		builtin bool
	}
	var live []running
	var prevRead *os.File

	for i, cmd := range pipe.Stages {
		isLast := i == n-1
		plan := plans[i]

		stdin := plan.Stdin
		if stdin == nil {
			stdin = prevRead
		}

		var stdout, stderr *os.File
		var outCap, errCap *capture
		var nextRead *os.File

		switch {
		case plan.Stdout != nil:
			stdout = plan.Stdout
		case !isLast:
			r, w, err := os.Pipe()
			if err != nil {
				return nil, newSpawnError(err)
			}
			stdout, nextRead = w, r
		default:
			c, err := newCapture()
			if err != nil {
				return nil, newSpawnError(err)
			}
			outCap = c
			stdout = c.write
		}

		if plan.Stderr != nil {
			stderr = plan.Stderr
		} else {
			c, err := newCapture()
			if err != nil {
				return nil, newSpawnError(err)
			}
			errCap = c
			stderr = c.write
		}

		if reg, ok := builtin.Lookup(cmd.Argv[0].Value); ok && n == 1 {
			exit := reg(env, cmd, stdin, stdout, stderr)
			var stdoutStr, stderrStr string
			if outCap != nil {
				stdoutStr = outCap.finish()
			}
			if errCap != nil {
				stderrStr = errCap.finish()
			}
			result.Stages[i] = StageResult{
				Command: cmd, ExitCode: exit,
				Stdout: stdoutStr, Stderr: stderrStr, Ledger: plan.Ledger,
			}
			prevRead = nextRead
			continue
		}

		argv := make([]string, len(cmd.Argv))
		for j, tok := range cmd.Argv {
			argv[j] = tok.Value
		}

		stage, err := external.Start(env, argv, stdin, stdout, stderr)
		// The parent's copy of each fd it handed to the child must be
		// closed so EOF propagates correctly once the child exits.
		if stdout != plan.Stdout {
			_ = stdout.Close()
		}
		if stderr != plan.Stderr {
			_ = stderr.Close()
		}
		if err != nil {
			return nil, newSpawnError(err)
		}

		sup.AddProcess(stage.PID)
		result.Stages[i] = StageResult{Command: cmd, Ledger: plan.Ledger}
		live = append(live, running{idx: i, stage: stage, outCap: outCap, errCap: errCap})

		prevRead = nextRead
	}

	for _, r := range live {
		exit := r.stage.Wait()
		timedOut := sup.TimeoutReached()
		if timedOut {
			exit = shellerr.ExitTimeout
		}
		result.Stages[r.idx].ExitCode = exit
		result.Stages[r.idx].TimedOut = timedOut
		if r.outCap != nil {
			result.Stages[r.idx].Stdout = r.outCap.finish()
		}
		if r.errCap != nil {
			result.Stages[r.idx].Stderr = r.errCap.finish()
		}
	}

	result.ExitCode = exitPolicy(pipe, result.Stages)
	return result, nil
}

func exitPolicy(pipe *ast.Pipeline, stages []StageResult) int {
	for _, s := range stages {
		if s.TimedOut {
			return shellerr.ExitTimeout
		}
	}

	var exit int
	if pipe.Pipefail {
		exit = 0
		for _, s := range stages {
			if s.ExitCode != 0 {
				exit = s.ExitCode
			}
		}
	} else {
		exit = stages[len(stages)-1].ExitCode
	}

	if pipe.Negate {
		if exit == 0 {
			exit = 1
		} else {
			exit = 0
		}
	}
	return exit
}

func expandCommand(env *shellenv.Env, cmd *ast.Command) (*ast.Command, error) {
	out := &ast.Command{Redirs: cmd.Redirs, Text: cmd.Text}
	for _, tok := range cmd.Argv {
		if tok.Kind != ast.Glob {
			out.Argv = append(out.Argv, ast.Token{Kind: ast.Literal, Value: tok.Value})
			continue
		}
		matches, err := globexpand.Expand(env.Cwd(), tok.Value)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			out.Argv = append(out.Argv, ast.Token{Kind: ast.Literal, Value: m})
		}
	}
	if len(out.Argv) == 0 {
		return nil, newSpawnError(errEmptyCommand{})
	}
	return out, nil
}

type errEmptyCommand struct{}

func (errEmptyCommand) Error() string { return "command empty after glob expansion" }

// spawnError wraps a low-level failure as the SpawnError class from
// spec.md §7.
type spawnError struct{ err error }

func newSpawnError(err error) error   { return &spawnError{err} }
func (e *spawnError) Error() string   { return e.err.Error() }
func (e *spawnError) Unwrap() error   { return e.err }
func (e *spawnError) Is(target error) bool {
	return target == shellerr.Spawn
}
