package syntax

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDecodeXMLExpandsEntities(t *testing.T) {
	f, err := Builtin().Open("c.xml")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	doc, err := DecodeXML(f)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "C" {
		t.Fatalf("name = %q, want C", doc.Name)
	}

	var found bool
	for _, r := range doc.Highlighting.Contexts[0].Rules {
		if r.Kind == "RegExpr" && strings.HasPrefix(r.Params["String"], `#\s*(?:if|`) {
			found = true
		}
	}
	if !found {
		t.Error("entity in RegExpr String was not expanded")
	}
}

func TestDecodeYAML(t *testing.T) {
	f, err := Builtin().Open("ini.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	doc, err := DecodeYAML(f)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "INI Files" {
		t.Errorf("name = %q, want INI Files", doc.Name)
	}
	if n := len(doc.Highlighting.Contexts); n != 3 {
		t.Fatalf("contexts = %d, want 3", n)
	}

	first := doc.Highlighting.Contexts[0].Rules[1]
	if first.Kind != "AnyChar" {
		t.Errorf("kind = %q, want AnyChar", first.Kind)
	}
	if got := first.param("String"); got != ";#" {
		t.Errorf("String = %q, want %q", got, ";#")
	}
	if got := first.param("firstNonSpace"); got != "true" {
		t.Errorf("firstNonSpace = %q, want true", got)
	}
}

func TestDecodeYAMLRejectsUnknownFields(t *testing.T) {
	if _, err := DecodeYAML(strings.NewReader("name: X\nbogus: 1\n")); err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestLoadCompressed(t *testing.T) {
	def, err := LoadFile(filepath.Join("testdata", "mini.xml.xz"))
	if err != nil {
		t.Fatal(err)
	}
	if def.Broken() {
		t.Fatalf("problems: %v", def.Problems())
	}
	if def.Name() != "Mini" {
		t.Errorf("name = %q, want Mini", def.Name())
	}
	if got, want := def.Extensions(), []string{"*.mini"}; !reflect.DeepEqual(got, want) {
		t.Errorf("extensions = %v, want %v", got, want)
	}

	kw, ok := def.ItemData("Keyword")
	if !ok || kw.Custom == nil || kw.Custom.Color == nil {
		t.Fatalf("Keyword item = %+v, want a custom colour", kw)
	}
	if got := kw.Custom.Color.Hex(); got != "#ff0000" {
		t.Errorf("colour = %s, want #ff0000", got)
	}
	if kw.Custom.Bold == nil || !*kw.Custom.Bold {
		t.Error("Keyword should be bold")
	}
	if kw.Custom.Italic != nil {
		t.Error("Keyword italic should be unset")
	}
}

func TestDecodeByExtension(t *testing.T) {
	tests := map[string]bool{
		"a/b/c.xml": true,
		"c.XML.xz":  true,
		"c.yml":     true,
		"c.json":    false,
	}
	for path, want := range tests {
		if got := IsDefinitionFile(path); got != want {
			t.Errorf("IsDefinitionFile(%q) = %v, want %v", path, got, want)
		}
	}

	if _, err := Decode(strings.NewReader("{}"), "x.json"); err == nil {
		t.Error("expected an error for an unsupported extension")
	}
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadFile(filepath.Join(dir, "missing.xml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.xml")
	if err := os.WriteFile(bad, []byte("<language"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadFile(bad)
	if err == nil || !strings.Contains(err.Error(), "bad.xml") {
		t.Errorf("ReadFile(bad.xml) error = %v, want one naming the file", err)
	}
}
