package syntax

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type definitionFile struct {
	Rel string
	Abs string
}

func shouldSkipDefinitionDir(name string) bool {
	switch name {
	case ".git", "node_modules", "vendor":
		return true
	default:
		return strings.HasPrefix(name, ".") && name != "."
	}
}

func collectDefinitionFiles(root string) ([]definitionFile, error) {
	clean := filepath.Clean(root)
	var out []definitionFile
	err := filepath.WalkDir(clean, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != clean && shouldSkipDefinitionDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsDefinitionFile(path) {
			return nil
		}

		rel, err := filepath.Rel(clean, path)
		if err != nil {
			rel = path
		}
		out = append(out, definitionFile{
			Rel: filepath.ToSlash(rel),
			Abs: path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Rel) < strings.ToLower(out[j].Rel)
	})
	return out, nil
}
