// Package util holds helpers shared by the converter and the CLI.
package util

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// SplitPath turns a slash or OS separated relative path into its segments.
// "" and "." yield nil.
func SplitPath(rel string) []string {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." || rel == "" {
		return nil
	}
	return strings.Split(strings.Trim(rel, "/"), "/")
}

type rule struct {
	pattern gitignore.Pattern
	source  string
}

// IgnoreRules is an ordered list of gitignore-style patterns anchored at a
// root directory. Later patterns override earlier ones, "!" re-includes.
type IgnoreRules struct {
	root  string
	rules []rule
}

// NewIgnoreRules returns an empty rule set. root must be absolute and must
// contain every base directory passed to Add and every path passed to Match.
func NewIgnoreRules(root string) *IgnoreRules {
	return &IgnoreRules{root: filepath.Clean(root)}
}

// Add appends patterns defined relative to baseDir, which lies inside the
// root. Blank lines and "#" comments are skipped.
func (r *IgnoreRules) Add(baseDir string, patterns ...string) {
	domain := r.segments(baseDir)
	for _, p := range patterns {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		r.rules = append(r.rules, rule{pattern: gitignore.ParsePattern(trimmed, domain), source: p})
	}
}

// Len returns the number of patterns.
func (r *IgnoreRules) Len() int {
	return len(r.rules)
}

// Match reports whether absPath is ignored and, if so, the pattern that
// decided it.
func (r *IgnoreRules) Match(absPath string, isDir bool) (bool, string) {
	segs := r.segments(absPath)
	if len(segs) == 0 {
		return false, ""
	}
	for i := len(r.rules) - 1; i >= 0; i-- {
		switch r.rules[i].pattern.Match(segs, isDir) {
		case gitignore.Exclude:
			return true, r.rules[i].source
		case gitignore.Include:
			return false, ""
		}
	}
	return false, ""
}

func (r *IgnoreRules) segments(absPath string) []string {
	rel, err := filepath.Rel(r.root, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return SplitPath(rel)
}
