package fs

import (
	"bufio"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the ignore file read from the nbm data directory.
const IgnoreFileName = "ignore"

// builtinPatterns cover the temp files nbm itself writes next to a backup
// while a copy or an archive is in progress.
var builtinPatterns = []string{".nbm-tmp-*", ".nbm-zip-*"}

type ignorePattern struct {
	glob     string
	wholeRel bool // match the whole relative path instead of the base name
}

// IgnoreMatcher decides which directory members are left out of walks.
// A pattern containing '/' is matched against the slash-separated relative
// path; any other pattern against the base name alone.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher parses raw patterns on top of the built-in ones. Blank
// lines and '#' comments are skipped, and so are malformed globs.
func NewIgnoreMatcher(raw []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range append(append([]string{}, builtinPatterns...), raw...) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := filepath.Match(line, ""); err != nil {
			continue
		}
		m.patterns = append(m.patterns, ignorePattern{glob: line, wholeRel: strings.Contains(line, "/")})
	}
	return m
}

// Len returns the number of active patterns, built-ins included.
func (m *IgnoreMatcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}

// Match reports whether relativePath should be left out. A nil matcher
// matches nothing.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if m == nil || relativePath == "" {
		return false
	}

	rel := filepath.ToSlash(relativePath)
	base := rel[strings.LastIndex(rel, "/")+1:]
	for _, p := range m.patterns {
		target := base
		if p.wholeRel {
			target = rel
		}
		if ok, _ := filepath.Match(p.glob, target); ok {
			return true
		}
	}
	return false
}

// ParseIgnoreFile returns the raw lines of an ignore file; filtering is left
// to NewIgnoreMatcher. A missing file yields no lines and no error.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}
