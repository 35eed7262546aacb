package archive

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
)

// IgnoreSet is an ordered list of glob patterns excluding archive entries.
//
// Patterns are matched against slash-separated destination paths. A pattern
// without a slash matches at any depth, so "*.git" excludes both "a.git" and
// "HexEdit/typelib/a.git". A path is also excluded when one of its parent
// directories matches, and a later "!pattern" re-includes what an earlier
// pattern excluded. The zero value and nil exclude nothing.
type IgnoreSet struct {
	patterns []string
	matcher  *patternmatcher.PatternMatcher
}

// NewIgnoreSet compiles patterns.
func NewIgnoreSet(patterns ...string) (*IgnoreSet, error) {
	normalized := make([]string, 0, len(patterns))

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		negate := strings.HasPrefix(p, "!")
		body := strings.TrimPrefix(p, "!")

		if !strings.Contains(body, "/") {
			body = "**/" + body
		}

		if negate {
			body = "!" + body
		}

		normalized = append(normalized, filepath.FromSlash(body))
	}

	matcher, err := patternmatcher.New(normalized)
	if err != nil {
		return nil, fmt.Errorf("compile ignore patterns: %w", err)
	}

	return &IgnoreSet{
		patterns: append([]string(nil), patterns...),
		matcher:  matcher,
	}, nil
}

// Patterns returns the patterns as given to NewIgnoreSet.
func (s *IgnoreSet) Patterns() []string {
	if s == nil {
		return nil
	}

	return append([]string(nil), s.patterns...)
}

// Match reports whether the destination path dest is excluded.
func (s *IgnoreSet) Match(dest string) (bool, error) {
	if s == nil || s.matcher == nil {
		return false, nil
	}

	// Entries are matched one by one, without the walk state MatchesUsingParentResults needs.
	ignored, err := s.matcher.MatchesOrParentMatches(filepath.FromSlash(dest)) //nolint:staticcheck // See above.
	if err != nil {
		return false, fmt.Errorf("match %s: %w", dest, err)
	}

	return ignored, nil
}
