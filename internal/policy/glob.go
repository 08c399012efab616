package policy

import (
	"path/filepath"
	"strings"
)

// pathGlobMatch matches a path against a glob, with ** crossing directory
// separators. Comparison is case-insensitive since artifact paths come from
// mixed-platform scans.
func pathGlobMatch(pattern, value string) bool {
	pattern = strings.ToLower(strings.TrimSpace(filepath.ToSlash(pattern)))
	value = strings.ToLower(strings.TrimSpace(filepath.ToSlash(value)))
	if pattern == "" {
		return false
	}
	if strings.Contains(pattern, "**") {
		parts := strings.SplitN(pattern, "**", 2)
		prefix := parts[0]
		suffix := parts[1]
		if prefix != "" && !strings.HasPrefix(value, prefix) {
			return false
		}
		if suffix == "" {
			return true
		}
		for i := 0; i <= len(value); i++ {
			tail := value[i:]
			if ok, _ := filepath.Match(strings.TrimPrefix(suffix, "/"), strings.TrimPrefix(tail, "/")); ok {
				return true
			}
		}
		return false
	}
	ok, _ := filepath.Match(pattern, value)
	return ok
}
