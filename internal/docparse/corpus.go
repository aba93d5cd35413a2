package docparse

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// docExtensions are the file extensions the corpus walker recognizes.
var docExtensions = map[string]struct{}{
	".md":       {},
	".markdown": {},
	".mdx":      {},
}

// skipDirs are directory names excluded from traversal: version-control
// metadata, build output, and dependency caches.
var skipDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"target":       {},
	".next":        {},
}

// CollectFiles walks root and returns every recognized documentation file,
// in lexicographic path order. WalkDir visits entries sorted by name, so
// the order is deterministic across runs.
func CollectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := docExtensions[ext]; ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ReadDocument loads one corpus file into an immutable Document.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return Document{Path: path, Content: string(data)}, nil
}
