// Package globexpand expands a single argv token against a working
// directory, yielding zero or more literal paths. Tokens with no glob
// metacharacters pass through verbatim with no existence check; tokens
// that do contain "*", "?" or "[...]" are matched against the directory's
// entries with a compiled github.com/gobwas/glob pattern, rather than
// filepath.Glob, so the match semantics are explicit and independent of
// the platform's libc glob behavior. Brace expansion is not supported.
package globexpand

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// HasMeta reports whether token contains a glob metacharacter.
func HasMeta(token string) bool {
	return strings.ContainsAny(token, "*?[")
}

// Expand returns the ordered (lexicographic), matched paths for token
// against cwd. If token has no metacharacters, it returns []string{token}
// verbatim. A pattern that matches nothing yields an empty slice, which
// the caller must treat as removing that argv slot.
func Expand(cwd, token string) ([]string, error) {
	if !HasMeta(token) {
		return []string{token}, nil
	}

	dir, pattern := filepath.Split(token)
	base := cwd
	if dir != "" {
		if filepath.IsAbs(dir) {
			base = filepath.Clean(dir)
		} else {
			base = filepath.Join(cwd, dir)
		}
	}

	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		// A glob against a non-existent directory matches nothing; this
		// mirrors a real shell's glob (it does not error, it just fails
		// to expand).
		return nil, nil
	}

	var matches []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(pattern, ".") {
			continue // dotfiles only match patterns that themselves start with "."
		}
		if g.Match(name) {
			matches = append(matches, filepath.Join(dir, name))
		}
	}

	sort.Strings(matches)
	return matches, nil
}

// ExpandArgv expands every token of argv in order, concatenating each
// token's matches and dropping slots whose pattern matched zero paths.
func ExpandArgv(cwd string, argv []string) ([]string, error) {
	out := make([]string, 0, len(argv))
	for _, tok := range argv {
		matches, err := Expand(cwd, tok)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}
