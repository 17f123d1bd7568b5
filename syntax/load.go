package syntax

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xi2/xz"
	"gopkg.in/yaml.v3"
)

var entityDecl = regexp.MustCompile(`<!ENTITY\s+([A-Za-z_][\w.-]*)\s+"([^"]*)"\s*>`)

// DecodeXML reads a Kate XML definition. Entities declared in the DOCTYPE
// internal subset are expanded.
func DecodeXML(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.Entity = make(map[string]string, len(xml.HTMLEntity))
	for k, v := range xml.HTMLEntity {
		dec.Entity[k] = v
	}
	for _, m := range entityDecl.FindAllSubmatch(data, -1) {
		dec.Entity[string(m[1])] = string(m[2])
	}

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode definition xml: %w", err)
	}
	doc.normalize()
	return &doc, nil
}

// DecodeYAML reads the YAML rendering of a definition.
func DecodeYAML(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode definition yaml: %w", err)
	}
	doc.normalize()
	return &doc, nil
}

// IsDefinitionFile reports whether path names a file ReadFile understands.
func IsDefinitionFile(path string) bool {
	switch definitionExt(path) {
	case ".xml", ".yaml", ".yml":
		return true
	}
	return false
}

func definitionExt(path string) string {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".xz")
	return filepath.Ext(name)
}

// Decode reads a definition from r, choosing the encoding from name's
// extension. Names ending in .xz are decompressed first.
func Decode(r io.Reader, name string) (*Document, error) {
	if strings.HasSuffix(strings.ToLower(name), ".xz") {
		zr, err := xz.NewReader(r, xz.DefaultDictMax)
		if err != nil {
			return nil, fmt.Errorf("open xz stream %s: %w", name, err)
		}
		r = zr
	}
	switch definitionExt(name) {
	case ".yaml", ".yml":
		return DecodeYAML(r)
	case ".xml":
		return DecodeXML(r)
	default:
		return nil, fmt.Errorf("%s: unsupported definition format", name)
	}
}

// ReadFile decodes the definition stored at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Decode(f, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadFile reads and builds the definition stored at path. Build problems
// do not fail the load; they are reported by Definition.Problems.
func LoadFile(path string, opts ...BuildOption) (*Definition, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Build(doc, opts...), nil
}
