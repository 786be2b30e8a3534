package scanner

import (
	"path"
	"path/filepath"
	"strings"
)

// IgnorePattern is one gitignore-style rule.
type IgnorePattern struct {
	raw      string
	negate   bool
	dirOnly  bool
	anchored bool
	segments []string
}

// ParseIgnorePattern parses a line of an ignore file. A pattern containing
// a slash is anchored to the directory of the ignore file; one without
// matches at any depth.
func ParseIgnorePattern(line string) IgnorePattern {
	p := IgnorePattern{raw: line}
	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}
	if strings.Contains(line, "/") {
		p.anchored = true
	}
	p.segments = strings.Split(line, "/")
	return p
}

// String returns the pattern as written.
func (p IgnorePattern) String() string {
	return p.raw
}

// IsNegation reports whether the pattern re-includes what it matches.
func (p IgnorePattern) IsNegation() bool {
	return p.negate
}

// Match reports whether rel, a slash separated path relative to the ignore
// file's directory, or any directory above it is matched by the pattern.
func (p IgnorePattern) Match(rel string, isDir bool) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if p.anchored {
		for n := 1; n <= len(parts); n++ {
			if p.dirOnly && n == len(parts) && !isDir {
				continue
			}
			if matchSegments(p.segments, parts[:n]) {
				return true
			}
		}
		return false
	}
	for i, part := range parts {
		if p.dirOnly && i == len(parts)-1 && !isDir {
			continue
		}
		if ok, _ := path.Match(p.segments[0], part); ok {
			return true
		}
	}
	return false
}

// matchSegments matches glob segments against path segments; "**" spans
// any number of segments.
func matchSegments(pattern, parts []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(parts); i++ {
			if matchSegments(pattern[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	if ok, err := path.Match(pattern[0], parts[0]); err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], parts[1:])
}

// ignoreRules are the patterns of one ignore file, relative to base.
type ignoreRules struct {
	base     string
	patterns []IgnorePattern
}

// ignored applies rule sets in order; the last matching pattern wins.
func ignored(sets []ignoreRules, rel string, isDir bool) bool {
	out := false
	for _, set := range sets {
		local := rel
		if set.base != "" {
			if !strings.HasPrefix(rel, set.base+"/") {
				continue
			}
			local = strings.TrimPrefix(rel, set.base+"/")
		}
		for _, p := range set.patterns {
			if p.Match(local, isDir) {
				out = !p.negate
			}
		}
	}
	return out
}
