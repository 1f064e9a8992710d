package loader

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ignored directories (exact match on folder name)
var ignoredDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	".venv":        {},
	"venv":         {},
	"__pycache__":  {},
}

var dataExtensions = map[string]string{
	".csv":     "csv",
	".db":      "sqlite",
	".sqlite":  "sqlite",
	".sqlite3": "sqlite",
}

// DataFile is a file found by Discover.
type DataFile struct {
	Name string // file stem, matched against source names
	Path string
	Type string // "csv" or "sqlite"
}

// Discover walks root for data files, skipping ignored directories. Results are sorted by
// path; when two files share a stem the first in path order wins.
func Discover(root string) ([]DataFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var found []DataFile
	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if _, ok := ignoredDirs[info.Name()]; ok {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(info.Name()))
		typ, ok := dataExtensions[ext]
		if !ok {
			return nil
		}
		found = append(found, DataFile{
			Name: strings.TrimSuffix(info.Name(), filepath.Ext(info.Name())),
			Path: path,
			Type: typ,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

// Index maps each stem to its first data file.
func Index(files []DataFile) map[string]DataFile {
	idx := make(map[string]DataFile, len(files))
	for _, f := range files {
		if _, exists := idx[f.Name]; !exists {
			idx[f.Name] = f
		}
	}
	return idx
}
