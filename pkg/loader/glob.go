package loader

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ExpandGlobs expands a list of file paths and glob patterns into a deduplicated
// list of locations. Input order is kept because merge results depend on it;
// the matches of a single pattern are sorted. Patterns that don't match any
// files are returned as-is (the caller should handle file-not-found errors).
// URLs are never globbed.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	add := func(loc string) {
		if !seen[loc] {
			seen[loc] = true
			result = append(result, loc)
		}
	}

	for _, pattern := range patterns {
		if isURL(pattern) {
			add(pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}

		if len(matches) == 0 {
			add(pattern)
			continue
		}

		sort.Strings(matches)
		for _, match := range matches {
			add(match)
		}
	}

	return result, nil
}

func isURL(location string) bool {
	return strings.Contains(location, "://")
}
