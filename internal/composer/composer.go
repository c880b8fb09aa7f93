// Package composer turns a test's ordered RUN-line commands into either
// an externally-invoked script (bash/sh/.bat via os/exec) or an
// internally-evaluated ast.Node chain (via parser + evaluator), matching
// spec.md §4.11's two interpreter paths. It also owns the @pdbg debug
// marker rewrite carried over from the original implementation.
package composer

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shtestcore/shtest/internal/ast"
	"github.com/shtestcore/shtest/internal/evaluator"
	"github.com/shtestcore/shtest/internal/parser"
	"github.com/shtestcore/shtest/internal/shellenv"
	"github.com/shtestcore/shtest/internal/shellerr"
	"github.com/shtestcore/shtest/internal/testconfig"
	"github.com/shtestcore/shtest/internal/timeoutsup"
)

// Sentinels for the External Interfaces' ExecScriptResult, spec.md §6.
const (
	ExitInfra   = -99
	ExitTimeout = -999
)

// Result is ExecScriptResult from spec.md §6.
type Result struct {
	Stdout       string
	Stderr       string
	ExitCode     int
	ErrorMessage string
}

// pdbgRe matches a "@pdbg(text)" debug marker; the composed script keeps
// its captured text as the argument of a command that prints nothing, so
// the text appears only when the script's commands are echoed.
var pdbgRe = regexp.MustCompile(`@pdbg\(([^)]*)\)`)

// rewriteDebugMarkersPosix turns "@pdbg(msg)" into the no-op command
// ": 'msg'; ", matching ": '$1'; " from the original.
func rewriteDebugMarkersPosix(command string) string {
	return pdbgRe.ReplaceAllString(command, `: '$1'; `)
}

// rewriteDebugMarkersWindows turns "@pdbg(msg)" into an echo of msg
// redirected to nul, matching "echo '$1' > nul && " from the original.
func rewriteDebugMarkersWindows(command string) string {
	return pdbgRe.ReplaceAllString(command, `echo '$1' > nul && `)
}

// ComposeScript builds the script text and its filename extension for
// cfg's target interpreter. isWin32CmdExe is true only on Windows with no
// configured bash path — every other platform/config combination takes
// the POSIX shell-script path.
func ComposeScript(cfg testconfig.Config, commands []string) (script, ext string, isWin32CmdExe bool) {
	isWin32CmdExe = cfg.IsWindows && cfg.BashPath == ""

	if isWin32CmdExe {
		rewritten := make([]string, len(commands))
		for i, c := range commands {
			rewritten[i] = rewriteDebugMarkersWindows(c)
		}
		var b strings.Builder
		if cfg.EchoAllCommands {
			b.WriteString("@echo on\n")
		} else {
			b.WriteString("@echo off\n")
		}
		b.WriteString(strings.Join(rewritten, "\n@if %ERRORLEVEL% NEQ 0 EXIT\n"))
		b.WriteString("\n")
		return b.String(), ".script.bat", true
	}

	rewritten := make([]string, len(commands))
	for i, c := range commands {
		rewritten[i] = rewriteDebugMarkersPosix(c)
	}
	var b strings.Builder
	if cfg.Pipefail {
		b.WriteString("set -o pipefail;")
	}
	if cfg.EchoAllCommands {
		b.WriteString("set -x;")
	}
	b.WriteString("{ " + strings.Join(rewritten, "; } &&\n{ ") + "; }\n")
	return b.String(), ".script", false
}

// interpreterArgv builds the invocation for the composed script, folding
// in a valgrind prefix when configured.
func interpreterArgv(cfg testconfig.Config, scriptPath string, isWin32CmdExe bool) []string {
	if isWin32CmdExe {
		return []string{"cmd", "/c", scriptPath}
	}
	shell := cfg.BashPath
	if shell == "" {
		shell = "/bin/sh"
	}
	argv := []string{shell, scriptPath}
	if cfg.UseValgrind {
		argv = append(append([]string{}, cfg.ValgrindArgs...), argv...)
	}
	return argv
}

// RunExternal composes commands into a script under tempBase, invokes it
// through the configured interpreter, and captures its output via two
// anonymous temp files that are always removed before returning.
func RunExternal(cfg testconfig.Config, commands []string, cwd, tempBase string) Result {
	script, ext, isWin32CmdExe := ComposeScript(cfg, commands)
	scriptPath := tempBase + ext

	if err := os.MkdirAll(filepath.Dir(scriptPath), 0o755); err != nil {
		return Result{ExitCode: ExitInfra, ErrorMessage: err.Error()}
	}

	writeMode := os.FileMode(0o755)
	if err := os.WriteFile(scriptPath, []byte(script), writeMode); err != nil {
		return Result{ExitCode: ExitInfra, ErrorMessage: err.Error()}
	}
	defer os.Remove(scriptPath)

	outFile, err := os.CreateTemp("", "shtest-exec-output")
	if err != nil {
		return Result{ExitCode: ExitInfra, ErrorMessage: err.Error()}
	}
	defer os.Remove(outFile.Name())
	defer outFile.Close()

	errFile, err := os.CreateTemp("", "shtest-exec-error")
	if err != nil {
		return Result{ExitCode: ExitInfra, ErrorMessage: err.Error()}
	}
	defer os.Remove(errFile.Name())
	defer errFile.Close()

	argv := interpreterArgv(cfg, scriptPath, isWin32CmdExe)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cwd
	cmd.Stdout = outFile
	cmd.Stderr = errFile

	var doneCh <-chan time.Time
	if cfg.MaxIndividualTestTime > 0 {
		t := time.NewTimer(cfg.MaxIndividualTestTime)
		defer t.Stop()
		doneCh = t.C
	}

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: ExitInfra, ErrorMessage: err.Error()}
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var runErr error
	var timedOut bool
	select {
	case runErr = <-waitCh:
	case <-doneCh:
		timedOut = true
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-waitCh
	}

	stdoutBytes, _ := os.ReadFile(outFile.Name())
	stderrBytes, _ := os.ReadFile(errFile.Name())

	if timedOut {
		return Result{
			Stdout: string(stdoutBytes), Stderr: string(stderrBytes),
			ExitCode: ExitTimeout,
			ErrorMessage: fmt.Sprintf("Reached timeout of %v", cfg.MaxIndividualTestTime),
		}
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{ExitCode: ExitInfra, ErrorMessage: runErr.Error()}
		}
	}

	return Result{Stdout: string(stdoutBytes), Stderr: string(stderrBytes), ExitCode: exitCode}
}

// RunInternal evaluates commands directly through the embedded mini-shell
// (parser + evaluator), bypassing an external interpreter entirely. Each
// command string becomes one parsed ast.Node; successive commands are
// joined left-associatively with && into a single Sequence, matching
// execute_script_internal's Seq("&&") chaining.
func RunInternal(cfg testconfig.Config, env *shellenv.Env, commands []string) Result {
	if len(commands) == 0 {
		return Result{}
	}

	var chain *ast.Node
	for _, c := range commands {
		rewritten := rewriteDebugMarkersPosix(c)
		node, err := parser.Parse(rewritten, cfg.Pipefail)
		if err != nil {
			return Result{ExitCode: shellerr.ExitInternal, ErrorMessage: fmt.Sprintf("shell parser error on: %s", c)}
		}
		if chain == nil {
			chain = node
		} else {
			chain = ast.SequenceNode(&ast.Sequence{Left: chain, Right: node, Op: ast.SeqAnd})
		}
	}

	sup := timeoutsup.New(cfg.MaxIndividualTestTime)
	outcome, err := evaluator.Run(env, chain, sup)
	sup.Cancel()
	if err != nil {
		return Result{ExitCode: shellerr.ExitInternal, ErrorMessage: err.Error()}
	}

	var stdout, stderr strings.Builder
	for _, step := range outcome.Steps {
		for _, stage := range step.Result.Stages {
			stdout.WriteString(stage.Stdout)
			stderr.WriteString(stage.Stderr)
		}
	}

	result := Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: outcome.ExitCode}
	if outcome.ExitCode == ExitTimeout {
		result.ErrorMessage = fmt.Sprintf("Reached timeout of %v", cfg.MaxIndividualTestTime)
	}
	return result
}

// tempScriptBase derives a deterministic script base path from a source
// path and an Output subdirectory, matching get_temp_paths.
func tempScriptBase(sourcePath string) (tempDir, tempBase string) {
	dir := filepath.Dir(sourcePath)
	base := filepath.Base(sourcePath)
	tempDir = filepath.Join(dir, "Output")
	tempBase = filepath.Join(tempDir, base)
	return tempDir, tempBase
}

// TempPaths exposes tempScriptBase for callers composing a test run.
func TempPaths(sourcePath string) (tempDir, tempBase string) {
	return tempScriptBase(sourcePath)
}
