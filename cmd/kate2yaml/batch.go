package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/genhl/syntax"
)

// Result describes the conversion of one file in a batch.
type Result struct {
	Rel      string // path relative to the input directory, slash separated
	Output   string
	Name     string // language name
	Problems []error
	Err      error
}

func isXMLDefinition(name string) bool {
	name = strings.TrimSuffix(strings.ToLower(name), ".xz")
	return filepath.Ext(name) == ".xml"
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules"
}

// ConvertDir converts every XML definition below in into out, keeping the
// relative layout. A file that fails to convert is reported in its Result
// and does not stop the batch.
func ConvertDir(in, out string) ([]Result, error) {
	root := filepath.Clean(in)
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isXMLDefinition(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	results := make([]Result, 0, len(files))
	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		r := Result{
			Rel:    filepath.ToSlash(rel),
			Output: filepath.Join(out, yamlName(rel)),
		}
		doc, err := syntax.ReadFile(path)
		if err != nil {
			r.Err = err
			results = append(results, r)
			continue
		}
		r.Name = doc.Name
		r.Problems = Check(doc)
		r.Err = writeYAML(r.Output, doc)
		results = append(results, r)
	}
	return results, nil
}
