package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

const maxFileBytes = 2 * 1024 * 1024

var skipDirNames = map[string]struct{}{
	".git": {}, ".vibecheck": {}, "node_modules": {}, "vendor": {}, "dist": {},
	"build": {}, ".next": {}, "coverage": {}, "out": {},
}

var sourceExts = map[string]struct{}{
	".ts": {}, ".tsx": {}, ".js": {}, ".jsx": {}, ".mjs": {}, ".cjs": {}, ".mts": {}, ".cts": {},
}

// WalkResult lists the candidate source files, as slash-separated paths
// relative to the root, plus the count of files skipped for size.
type WalkResult struct {
	Paths   []string
	Skipped int
}

// Walk discovers scannable source files under root. Directories that never
// hold first-party route code are pruned.
func Walk(root string) (WalkResult, error) {
	var res WalkResult
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skipDirNames[d.Name()]; skip && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if _, ok := sourceExts[ext]; !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxFileBytes {
			res.Skipped++
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		res.Paths = append(res.Paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return WalkResult{}, err
	}
	sort.Strings(res.Paths)
	return res, nil
}
