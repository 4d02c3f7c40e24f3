package pandda

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExclusionSet holds canonicalized paths that must never be touched.
// Membership checks canonicalize the candidate the same way, so relative
// and symlinked spellings of an excluded file still match.
type ExclusionSet map[string]struct{}

// NewExclusionSet canonicalizes the given paths into a set. Paths that
// cannot be made absolute are kept verbatim rather than dropped, so an
// unresolvable entry can still match its own spelling.
func NewExclusionSet(paths []string) ExclusionSet {
	set := make(ExclusionSet, len(paths))
	for _, p := range paths {
		set[canonicalPath(p)] = struct{}{}
	}
	return set
}

// Contains reports whether the path is excluded.
func (s ExclusionSet) Contains(path string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[canonicalPath(path)]
	return ok
}

func canonicalPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// EnumerateEventMaps finds every event map file under the root's
// processed-datasets area, skipping excluded paths. Dataset directories
// with no matching files contribute nothing. Ordering follows directory
// iteration and is not meaningful; every file is normalized independently.
func EnumerateEventMaps(root string, layout Layout, excluded ExclusionSet) ([]string, error) {
	datasetsDir := filepath.Join(root, layout.ProcessedDatasetsDir)
	entries, err := os.ReadDir(datasetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read processed datasets directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		datasetDir := filepath.Join(datasetsDir, entry.Name())
		dsFiles, err := os.ReadDir(datasetDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset directory %s: %w", datasetDir, err)
		}
		for _, f := range dsFiles {
			if f.IsDir() {
				continue
			}
			name := f.Name()
			if !strings.Contains(name, layout.EventMapMarker) || !strings.HasSuffix(name, layout.MapExtension) {
				continue
			}
			path := filepath.Join(datasetDir, name)
			if excluded.Contains(path) {
				continue
			}
			files = append(files, path)
		}
	}
	return files, nil
}
