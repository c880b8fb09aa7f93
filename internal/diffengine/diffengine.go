// Package diffengine compares two files line by line and renders a
// unified diff (context 3), per spec.md §4.8. Hunk formatting is
// delegated to github.com/pmezard/go-difflib, the same direct dependency
// the rest of this module's ecosystem (kazz187-taskguild) pulls in for
// line-oriented diffing; this package owns only the text-filter and
// binary-detection policy layered on top of it.
package diffengine

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// Options selects the whitespace/line-ending filters applied before
// comparison.
type Options struct {
	StripTrailingCR   bool
	IgnoreAllSpace    bool // -w: collapse all whitespace runs to nothing
	IgnoreSpaceChange bool // -b: collapse all whitespace runs to one space
	ForceBinary       bool // --binary: skip text filtering, compare raw bytes
}

// Report is the outcome of a comparison.
type Report struct {
	Identical bool
	Unified   string // empty when Identical
	Binary    bool
}

// binarySniffLen bounds how much of the first file is sampled for binary
// detection, mirroring the size a typical content-sniffing heuristic
// examines (cf. the same order of magnitude as http.DetectContentType's
// 512-byte sample, widened here since source/test-suite files are larger
// on average than HTTP response prefixes).
const binarySniffLen = 8000

// CompareFiles reads lhs and rhs and compares them under opts. Missing
// files are reported as an error; CompareFiles itself never returns exit
// codes — the diff builtin translates errors to exit 2 per spec.md §6.
func CompareFiles(lhsPath, rhsPath string, opts Options) (Report, error) {
	lhsData, err := os.ReadFile(lhsPath)
	if err != nil {
		return Report{}, fmt.Errorf("%s: %w", lhsPath, err)
	}
	rhsData, err := os.ReadFile(rhsPath)
	if err != nil {
		return Report{}, fmt.Errorf("%s: %w", rhsPath, err)
	}

	if opts.ForceBinary || looksBinary(lhsData) {
		return compareBinary(lhsData, rhsData), nil
	}

	lhsLines := filterLines(difflib.SplitLines(string(lhsData)), opts)
	rhsLines := filterLines(difflib.SplitLines(string(rhsData)), opts)

	if equalLines(lhsLines, rhsLines) {
		return Report{Identical: true}, nil
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lhsLines,
		B:        rhsLines,
		FromFile: lhsPath,
		ToFile:   rhsPath,
		Context:  3,
	})
	if err != nil {
		return Report{}, err
	}
	return Report{Identical: false, Unified: unified}, nil
}

// looksBinary applies a minimal charset-confidence heuristic to the first
// binarySniffLen bytes: a NUL byte or invalid UTF-8 sequence in the
// sample is taken as "no encoding matched above a minimum confidence".
func looksBinary(data []byte) bool {
	sample := data
	if len(sample) > binarySniffLen {
		sample = sample[:binarySniffLen]
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	return !utf8.Valid(sample)
}

func compareBinary(lhs, rhs []byte) Report {
	if bytes.Equal(lhs, rhs) {
		return Report{Identical: true, Binary: true}
	}
	return Report{Identical: false, Binary: true, Unified: "Binary files differ\n"}
}

// filterLines applies the per-line text filter: optional trailing-CR
// strip, then whitespace collapsing.
func filterLines(lines []string, opts Options) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = filterLine(line, opts)
	}
	return out
}

func filterLine(line string, opts Options) string {
	trailingNL := strings.HasSuffix(line, "\n")
	body := strings.TrimSuffix(line, "\n")

	if opts.StripTrailingCR {
		body = strings.TrimSuffix(body, "\r")
	}

	switch {
	case opts.IgnoreAllSpace:
		body = collapseWhitespace(body, "")
	case opts.IgnoreSpaceChange:
		body = collapseWhitespace(body, " ")
	}

	if trailingNL {
		return body + "\n"
	}
	return body
}

// collapseWhitespace replaces every run of whitespace with sep.
func collapseWhitespace(s, sep string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, sep)
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
