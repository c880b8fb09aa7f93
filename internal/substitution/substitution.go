// Package substitution builds and applies the per-test substitution list
// from spec.md §4.9: the default path-derived pairs (%s, %S, %t, %T, ...),
// their colon-normalized variants, and any config-provided pairs, guarded
// against a literal %% escaping through the other replacements.
package substitution

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Pair is one ordered (pattern, replacement) substitution. Pattern is a
// regular expression applied across the whole line, matching the
// original tool's regex-replace substitution engine.
type Pair struct {
	Pattern     string
	Replacement string
}

// Paths carries the path material a test's default substitutions are
// derived from.
type Paths struct {
	SourcePath     string // %s
	TempDir        string // %T
	TempBase       string // %t base, before ".temp" is appended
	NormalizeSlash bool
}

// marker hides a literal %% from the rest of the substitution pass; the
// final pair turns it back into a single %.
const marker = "#_MARKER_#"

// Default builds the full ordered substitution list for one test: the %%
// guard, then any user-provided pairs, then the colon-normalized path
// variants (ahead of %s, so that %s does not consume the %s:p/%s:t/%s:T
// keys), then the plain path substitutions, and last the pair that turns
// the guard marker back into a single %.
func Default(paths Paths, userPairs []Pair, isWindows bool) []Pair {
	sourcePath := paths.SourcePath
	sourceDir := filepath.Dir(sourcePath)
	tempDir := paths.TempDir
	tempBase := paths.TempBase

	if paths.NormalizeSlash {
		sourcePath = toSlash(sourcePath)
		sourceDir = toSlash(sourceDir)
		tempDir = toSlash(tempDir)
		tempBase = toSlash(tempBase)
	}

	tempName := tempBase + ".temp"
	baseName := filepath.Base(tempName)

	list := []Pair{{Pattern: "%%", Replacement: marker}}
	list = append(list, userPairs...)
	list = append(list,
		Pair{Pattern: "%:s", Replacement: colonNormalize(sourcePath, isWindows)},
		Pair{Pattern: "%:S", Replacement: colonNormalize(sourceDir, isWindows)},
		Pair{Pattern: "%s:p", Replacement: colonNormalize(sourceDir, isWindows)},
		Pair{Pattern: "%s:t", Replacement: colonNormalize(tempName, isWindows)},
		Pair{Pattern: "%s:T", Replacement: colonNormalize(tempDir, isWindows)},
	)
	list = append(list,
		Pair{Pattern: "%s", Replacement: sourcePath},
		Pair{Pattern: "%S", Replacement: sourceDir},
		Pair{Pattern: "%P", Replacement: sourceDir},
		Pair{Pattern: "%{pathsep}", Replacement: string(filepath.Separator)},
		Pair{Pattern: "%t", Replacement: tempName},
		Pair{Pattern: "%basename_t", Replacement: baseName},
		Pair{Pattern: "%T", Replacement: tempDir},
		Pair{Pattern: marker, Replacement: "%"},
	)
	return list
}

var driveLetterRe = regexp.MustCompile(`^(.):`)

// colonNormalize strips drive-colons on Windows (replacing backslashes
// with forward slashes first) or the single leading slash on POSIX, so
// the result is safe to embed in a filename.
func colonNormalize(path string, isWindows bool) string {
	if isWindows {
		path = toSlash(path)
		return driveLetterRe.ReplaceAllString(path, "$1")
	}
	return strings.TrimPrefix(path, "/")
}

func toSlash(s string) string { return strings.ReplaceAll(s, `\`, "/") }

// Apply runs every pair's regex replace, in order, across each line of
// script. The %% guard pair always comes first in a Default-built list,
// so a literal "%%" in the input survives every later pattern untouched
// and is restored to "%" once all other substitutions have run.
func Apply(script string, pairs []Pair) string {
	lines := strings.Split(script, "\n")
	for i, line := range lines {
		lines[i] = applyLine(line, pairs)
	}
	return strings.Join(lines, "\n")
}

func applyLine(line string, pairs []Pair) string {
	for _, p := range pairs {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		line = re.ReplaceAllString(line, strings.ReplaceAll(p.Replacement, "$", "$$"))
	}
	return line
}
