package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/odvcencio/genhl/syntax"
)

// Encode writes doc as YAML.
func Encode(w io.Writer, doc *syntax.Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", doc.Name, err)
	}
	return enc.Close()
}

// ConvertFile reads the definition at path and writes its YAML form to w.
func ConvertFile(w io.Writer, path string) (*syntax.Document, error) {
	doc, err := syntax.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := Encode(w, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Check builds doc on its own and returns its problems. References to
// other languages are resolved against the built-in definitions.
func Check(doc *syntax.Document) []error {
	reg, err := syntax.NewDefaultRegistry()
	if err != nil {
		return []error{err}
	}
	return syntax.Build(doc, syntax.WithResolver(reg)).Problems()
}

// yamlName maps a definition file name to the name of its YAML rendering:
// "c.xml.xz" becomes "c.yaml".
func yamlName(name string) string {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".xz") {
		name = name[:len(name)-len(".xz")]
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".yaml"
}

func writeYAML(path string, doc *syntax.Document) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(f, doc)
}
