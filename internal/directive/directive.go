// Package directive scans a test source file for keyword-tagged lines
// (RUN:, CHECK:, XFAIL., ...) per spec.md §4.10: a single alternation
// regex locates every keyword occurrence, and each match is resolved to
// a (line number, keyword, value text) triple.
package directive

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Kind classifies how a keyword's value text is meant to be interpreted
// downstream (composition does the interpreting; the scanner only
// extracts text). Built once at init as an immutable table, never
// mutated afterward.
type Kind int

const (
	TAG Kind = iota
	COMMAND
	LIST
	BOOLEAN_EXPR
	CUSTOM
)

// kindInfo pairs a Kind with its allowed trailing-suffix characters.
type kindInfo struct {
	Name     string
	Suffixes []byte
}

// Kinds is the immutable Kind -> metadata table, matching the original
// ParserKind::sm_allowedSuffixes / sm_keywordStrMap pair.
var Kinds = map[Kind]kindInfo{
	TAG:          {Name: "TAG", Suffixes: []byte{'.'}},
	COMMAND:      {Name: "COMMAND", Suffixes: []byte{':'}},
	LIST:         {Name: "LIST", Suffixes: []byte{':'}},
	BOOLEAN_EXPR: {Name: "BOOLEAN_EXPR", Suffixes: []byte{':'}},
	CUSTOM:       {Name: "CUSTOM", Suffixes: []byte{':', '.'}},
}

// Keyword is one vocabulary entry: a bare name (e.g. "RUN") and the Kind
// that determines which trailing suffixes are accepted.
type Keyword struct {
	Name string
	Kind Kind
}

// Match is one scanned occurrence: the 1-based source line it starts on,
// the exact keyword text matched (including suffix, e.g. "RUN:"), and
// the value text running to end of line, with one leading space removed.
type Match struct {
	Line    int
	Keyword string
	Value   string
}

// Scan reads path and returns every keyword occurrence in source order.
// An empty file yields an empty, non-nil-error result. A keyword vocabulary
// that fails to compile into a regex (should not happen for plain literal
// keywords) is reported as an error and yields an empty list, matching the
// original's "regex syntax error" fallback.
func Scan(path string, vocabulary []Keyword) ([]Match, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directive: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	content := string(data)
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	re, err := buildAlternation(vocabulary)
	if err != nil {
		return nil, fmt.Errorf("directive: %w", err)
	}

	var matches []Match
	lastPos, lineNumber := 0, 1
	for _, loc := range re.FindAllStringIndex(content, -1) {
		start, end := loc[0], loc[1]
		lineNumber += strings.Count(content[lastPos:start], "\n")
		lastPos = start

		lineEnd := strings.IndexByte(content[end:], '\n')
		var value string
		if lineEnd < 0 {
			value = content[end:]
		} else {
			value = content[end : end+lineEnd]
		}
		value = strings.TrimPrefix(value, " ")

		matches = append(matches, Match{
			Line:    lineNumber,
			Keyword: content[start:end],
			Value:   value,
		})
	}
	return matches, nil
}

// buildAlternation builds one regex matching any (keyword + allowed
// suffix) pair, longest literal first so e.g. "XFAIL:" is preferred over
// a hypothetical shorter prefix keyword.
func buildAlternation(vocabulary []Keyword) (*regexp.Regexp, error) {
	var literals []string
	for _, kw := range vocabulary {
		info, ok := Kinds[kw.Kind]
		if !ok {
			continue
		}
		for _, suffix := range info.Suffixes {
			literals = append(literals, kw.Name+string(suffix))
		}
	}
	sort.Slice(literals, func(i, j int) bool { return len(literals[i]) > len(literals[j]) })

	escaped := make([]string, len(literals))
	for i, lit := range literals {
		escaped[i] = regexp.QuoteMeta(lit)
	}
	return regexp.Compile(strings.Join(escaped, "|"))
}
