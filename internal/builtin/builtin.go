// Package builtin implements the mini-shell's in-process commands: cd,
// echo, mkdir, rm, and diff. Each consumes a Command plus its three
// already-planned descriptors and returns only an exit code — output goes
// straight to the descriptors the pipeline executor wired up (a real
// redirect target, a pipe to the next stage, or a capture pipe read back
// by the caller), matching spec.md §4.6's "honors its redirects" contract.
package builtin

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shtestcore/shtest/internal/ast"
	"github.com/shtestcore/shtest/internal/diffengine"
	"github.com/shtestcore/shtest/internal/shellenv"
)

// Func is the signature every builtin satisfies. stdout/stderr are never
// nil; stdin is nil when the command has no input redirect and no
// preceding pipeline stage. A builtin that does not read stdin simply
// ignores it.
type Func func(env *shellenv.Env, cmd *ast.Command, stdin, stdout, stderr *os.File) int

var registry = map[string]Func{
	"cd":    cd,
	"echo":  echo,
	"mkdir": mkdir,
	"rm":    rm,
	"diff":  diff,
}

// Lookup returns the builtin registered under name, if any.
func Lookup(name string) (Func, bool) {
	f, ok := registry[name]
	return f, ok
}

// argStrings renders a Command's argv (excluding argv[0]) as plain
// strings; by the time a builtin runs, glob tokens have already been
// lowered to literals by the pipeline executor.
func argStrings(cmd *ast.Command) []string {
	out := make([]string, 0, len(cmd.Argv)-1)
	for _, tok := range cmd.Argv[1:] {
		out = append(out, tok.Value)
	}
	return out
}

// cd changes the parent environment's cwd. It takes exactly one
// argument, is never valid inside a multi-stage pipeline (the caller only
// dispatches to builtins for length-one pipelines), and reports success
// whatever the target: a missing target directory is discovered by the
// next command that actually tries to use the cwd, per spec.md §4.1.
func cd(env *shellenv.Env, cmd *ast.Command, _, _, stderr *os.File) int {
	args := argStrings(cmd)
	if len(args) == 0 {
		fmt.Fprintln(stderr, "shtest: cd: missing operand")
		return 1
	}
	if len(args) > 1 {
		fmt.Fprintln(stderr, "shtest: cd: too many arguments")
		return 1
	}
	env.SetCwd(args[0])
	return 0
}

// echo parses -e (interpret backslash escapes) and -n (suppress trailing
// newline) greedily from the front of argv; any other leading "-..." word
// is treated as ordinary output, matching common shell behavior. Output
// words are joined with single spaces.
func echo(_ *shellenv.Env, cmd *ast.Command, _, stdout, stderr *os.File) int {
	args := argStrings(cmd)

	interpretEscapes, suppressNewline := false, false
	i := 0
loop:
	for i < len(args) {
		switch args[i] {
		case "-e":
			interpretEscapes = true
		case "-n":
			suppressNewline = true
		default:
			break loop
		}
		i++
	}
	words := args[i:]

	out := strings.Join(words, " ")
	if interpretEscapes {
		out = interpretBackslashEscapes(out)
	}
	if !suppressNewline {
		out += "\n"
	}

	if _, err := io.WriteString(stdout, out); err != nil {
		fmt.Fprintf(stderr, "shtest: echo: write failed: %v\n", err)
		return 1
	}
	return 0
}

// interpretBackslashEscapes expands \n \t \r \\ \0nnn \xNN sequences.
func interpretBackslashEscapes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		switch next {
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		case '\\':
			b.WriteByte('\\')
			i++
		case '0':
			if i+5 <= len(s) {
				if v, err := strconv.ParseUint(s[i+2:i+5], 8, 8); err == nil {
					b.WriteByte(byte(v))
					i += 4
					continue
				}
			}
			b.WriteByte(s[i])
		case 'x':
			if i+4 <= len(s) {
				if v, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
					b.WriteByte(byte(v))
					i += 3
					continue
				}
			}
			b.WriteByte(s[i])
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// mkdir creates each path argument, joined against cwd if relative. -p
// creates parents and tolerates an already-existing target. A failure on
// one path is reported but does not stop the remaining paths from being
// attempted.
func mkdir(env *shellenv.Env, cmd *ast.Command, _, _, stderr *os.File) int {
	args := argStrings(cmd)

	parents := false
	var paths []string
	for _, a := range args {
		if a == "-p" {
			parents = true
			continue
		}
		paths = append(paths, a)
	}
	if len(paths) == 0 {
		fmt.Fprintln(stderr, "shtest: mkdir: missing operand")
		return 1
	}

	exit := 0
	for _, p := range paths {
		resolved := env.Resolve(p)
		var err error
		if parents {
			err = os.MkdirAll(resolved, 0o755)
		} else {
			err = os.Mkdir(resolved, 0o755)
		}
		if err != nil {
			fmt.Fprintf(stderr, "shtest: mkdir: %s: %v\n", p, err)
			exit = 1
		}
	}
	return exit
}

// rm removes each path argument. -f ignores missing targets and makes
// read-only files writable before removal; -r/-R/--recursive allows
// directory removal. Errors from individual paths are collected; the
// command's exit is 1 if any path failed.
func rm(env *shellenv.Env, cmd *ast.Command, _, _, stderr *os.File) int {
	args := argStrings(cmd)

	force, recursive := false, false
	var paths []string
	for _, a := range args {
		switch a {
		case "-f":
			force = true
		case "-r", "-R", "--recursive":
			recursive = true
		case "-rf", "-fr":
			force, recursive = true, true
		default:
			paths = append(paths, a)
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(stderr, "shtest: rm: missing operand")
		return 1
	}

	exit := 0
	for _, p := range paths {
		resolved := env.Resolve(p)
		info, err := os.Lstat(resolved)
		if err != nil {
			if force && os.IsNotExist(err) {
				continue
			}
			fmt.Fprintf(stderr, "shtest: rm: %s: %v\n", p, err)
			exit = 1
			continue
		}

		if info.IsDir() && !recursive {
			fmt.Fprintf(stderr, "shtest: rm: %s: is a directory\n", p)
			exit = 1
			continue
		}

		if force {
			_ = os.Chmod(resolved, 0o700)
		}

		if recursive {
			err = os.RemoveAll(resolved)
		} else {
			err = os.Remove(resolved)
		}
		if err != nil {
			fmt.Fprintf(stderr, "shtest: rm: %s: %v\n", p, err)
			exit = 1
		}
	}
	return exit
}

// diff compares two files using the diff engine and writes a unified
// diff to stdout when they differ. Flags: --strip-trailing-cr, -w
// (ignore all whitespace), -b (ignore whitespace changes), --binary.
func diff(env *shellenv.Env, cmd *ast.Command, _, stdout, stderr *os.File) int {
	args := argStrings(cmd)

	opts := diffengine.Options{}
	var paths []string
	for _, a := range args {
		switch a {
		case "--strip-trailing-cr":
			opts.StripTrailingCR = true
		case "-w":
			opts.IgnoreAllSpace = true
		case "-b":
			opts.IgnoreSpaceChange = true
		case "--binary":
			opts.ForceBinary = true
		default:
			paths = append(paths, a)
		}
	}
	if len(paths) != 2 {
		fmt.Fprintln(stderr, "shtest: diff: usage: diff [options] FILE1 FILE2")
		return 2
	}

	lhs := env.Resolve(paths[0])
	rhs := env.Resolve(paths[1])

	report, err := diffengine.CompareFiles(lhs, rhs, opts)
	if err != nil {
		fmt.Fprintf(stderr, "shtest: diff: %v\n", err)
		return 2
	}
	if report.Identical {
		return 0
	}

	if _, err := io.WriteString(stdout, report.Unified); err != nil {
		fmt.Fprintf(stderr, "shtest: diff: write failed: %v\n", err)
		return 2
	}
	return 1
}
