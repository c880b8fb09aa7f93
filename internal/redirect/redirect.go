// Package redirect translates a Command's redirect list into three
// concrete file descriptors (stdin, stdout, stderr) plus an
// opened-files ledger, per spec.md §4.3.
package redirect

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shtestcore/shtest/internal/ast"
	"github.com/shtestcore/shtest/internal/shellerr"
)

// Slot is one of the three descriptor slots a plan computes.
type Slot int

const (
	Stdin Slot = iota
	Stdout
	Stderr
)

// LedgerEntry records one file opened while planning redirects, owned by
// the pipeline execution that requested the plan and freed on pipeline
// completion.
type LedgerEntry struct {
	OriginalName string
	Mode         string // "r", "w", "a"
	File         *os.File
	ResolvedPath string
}

// Plan is the outcome of planning one Command's redirects: three
// descriptors (nil meaning "inherit from parent" for stdin, or "use the
// pipe end already wired by the pipeline executor" for stdout/stderr) and
// the ledger of files opened to build them.
type Plan struct {
	Stdin, Stdout, Stderr *os.File
	Ledger                []LedgerEntry
}

// Build plans fds for cmd's redirects against cwd. Redirects are applied
// left-to-right; a later redirect targeting the same slot overrides an
// earlier one. When stdout and stderr are redirected to the same
// filename+mode, the second redirect reuses the first's descriptor
// instead of opening the file twice.
func Build(cwd string, cmd *ast.Command) (*Plan, error) {
	plan := &Plan{}
	opened := map[string]*os.File{} // key: resolvedPath+mode -> already-opened fd

	openFor := func(target, mode string) (*os.File, error) {
		resolved := target
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(cwd, resolved)
		}
		key := resolved + "|" + mode
		if f, ok := opened[key]; ok {
			return f, nil
		}

		var f *os.File
		var err error
		switch mode {
		case "r":
			f, err = os.Open(resolved)
		case "w":
			f, err = os.Create(resolved)
		case "a":
			f, err = os.OpenFile(resolved, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err == nil {
				// Compensate for platforms whose append mode does not
				// itself seek to EOF on open.
				_, _ = f.Seek(0, os.SEEK_END)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", shellerr.IO, target, err)
		}

		opened[key] = f
		plan.Ledger = append(plan.Ledger, LedgerEntry{
			OriginalName: target, Mode: mode, File: f, ResolvedPath: resolved,
		})
		return f, nil
	}

	for _, r := range cmd.Redirs {
		switch r.Op {
		case ast.RedirOut:
			f, err := openFor(r.Target, "w")
			if err != nil {
				return nil, err
			}
			assign(plan, r.FD, Stdout, f)

		case ast.RedirAppend:
			f, err := openFor(r.Target, "a")
			if err != nil {
				return nil, err
			}
			assign(plan, r.FD, Stdout, f)

		case ast.RedirIn:
			f, err := openFor(r.Target, "r")
			if err != nil {
				return nil, err
			}
			plan.Stdin = f

		case ast.RedirDup:
			src := dupSource(plan, r.Target)
			assign(plan, r.FD, Stdout, src)

		case ast.RedirBoth:
			f, err := openFor(r.Target, "w")
			if err != nil {
				return nil, err
			}
			plan.Stdout, plan.Stderr = f, f

		default:
			return nil, fmt.Errorf("%w: unsupported redirect", shellerr.Parse)
		}
	}

	return plan, nil
}

// assign routes a redirect at fd (0 default-qualified per op) onto the
// stdout or stderr slot of the plan; default points at stdout unless the
// redirect was explicitly fd-qualified with 2.
func assign(plan *Plan, fd int, fallback Slot, f *os.File) {
	slot := fallback
	if fd == 2 {
		slot = Stderr
	} else if fd == 1 {
		slot = Stdout
	}
	switch slot {
	case Stdout:
		plan.Stdout = f
	case Stderr:
		plan.Stderr = f
	}
}

// dupSource resolves "N>&M" by returning the fd M currently points at. A
// dup is a textual alias taken at this point in processing; later
// redirects to M do not retroactively change it.
func dupSource(plan *Plan, target string) *os.File {
	switch target {
	case "1":
		return plan.Stdout
	case "2":
		return plan.Stderr
	case "0":
		return plan.Stdin
	default:
		return nil
	}
}

// Close releases every file opened while building the plan.
func (p *Plan) Close() {
	for _, entry := range p.Ledger {
		_ = entry.File.Close()
	}
}
