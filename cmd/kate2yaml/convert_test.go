package main

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odvcencio/genhl/highlight"
	"github.com/odvcencio/genhl/syntax"
)

func copyBuiltin(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := fs.ReadFile(syntax.Builtin(), name)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestYAMLName(t *testing.T) {
	tests := map[string]string{
		"c.xml":           "c.yaml",
		"c.xml.xz":        "c.yaml",
		"langs/Shell.XML": "langs/Shell.yaml",
		"a.b.xml":         "a.b.yaml",
	}
	for in, want := range tests {
		require.Equal(t, want, yamlName(in), in)
	}
}

func TestConvertFileHighlightsTheSame(t *testing.T) {
	samples := map[string]highlight.StringLines{
		"c.xml":      {"#include <stdio.h>", "int main() {", "  /* hi", "  */ return 0x1F; // done", "}"},
		"python.xml": {"def f(x):", `    """doc`, `    """`, "    return x + 1.5  # ok"},
	}
	for name, lines := range samples {
		t.Run(name, func(t *testing.T) {
			path := copyBuiltin(t, t.TempDir(), name)

			var buf bytes.Buffer
			doc, err := ConvertFile(&buf, path)
			require.NoError(t, err)
			require.Empty(t, Check(doc))

			fromYAML, err := syntax.DecodeYAML(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			require.Equal(t, doc.Name, fromYAML.Name)
			require.Equal(t, doc.Extensions, fromYAML.Extensions)

			want := highlight.New(syntax.Build(doc)).HighlightAll(lines)
			defYAML := syntax.Build(fromYAML)
			require.False(t, defYAML.Broken(), "%v", defYAML.Problems())
			got := highlight.New(defYAML).HighlightAll(lines)
			require.Len(t, got, len(want))
			for i := range want {
				require.Equal(t, want[i].Formats, got[i].Formats, "line %d", i)
				require.Equal(t, want[i].Fold, got[i].Fold, "line %d", i)
				require.Equal(t, want[i].BlockState(), got[i].BlockState(), "line %d", i)
			}
		})
	}
}

func TestConvertFileErrors(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	_, err := ConvertFile(&buf, filepath.Join(dir, "missing.xml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte("<language"), 0o644))
	_, err = ConvertFile(&buf, bad)
	require.ErrorContains(t, err, "bad.xml")
}

func TestCheckReportsProblems(t *testing.T) {
	doc, err := syntax.DecodeXML(bytes.NewReader([]byte(`<language name="Odd">
  <highlighting>
    <contexts>
      <context name="a" attribute="Normal" lineEndContext="nowhere"/>
    </contexts>
    <itemDatas><itemData name="Normal" defStyleNum="dsNormal"/></itemDatas>
  </highlighting>
</language>`)))
	require.NoError(t, err)
	problems := Check(doc)
	require.NotEmpty(t, problems)
	require.ErrorIs(t, problems[0], syntax.ErrUnresolvedContext)
}

func TestConvertDir(t *testing.T) {
	in := t.TempDir()
	copyBuiltin(t, in, "c.xml")
	copyBuiltin(t, filepath.Join(in, "more"), "shell.xml")
	copyBuiltin(t, in, "ini.yaml")
	copyBuiltin(t, filepath.Join(in, ".git"), "python.xml")
	require.NoError(t, os.WriteFile(filepath.Join(in, "broken.xml"), []byte("<nope"), 0o644))

	out := t.TempDir()
	results, err := ConvertDir(in, out)
	require.NoError(t, err)

	var rels []string
	for _, r := range results {
		rels = append(rels, r.Rel)
	}
	require.Equal(t, []string{"broken.xml", "c.xml", "more/shell.xml"}, rels)
	require.Error(t, results[0].Err)
	require.NoError(t, results[1].Err)
	require.Equal(t, "C", results[1].Name)
	require.Empty(t, results[1].Problems)
	require.Equal(t, "Bash", results[2].Name)

	def, err := syntax.LoadFile(filepath.Join(out, "more", "shell.yaml"))
	require.NoError(t, err)
	require.Equal(t, "Bash", def.Name())
	require.False(t, def.Broken())

	_, err = os.Stat(filepath.Join(out, "broken.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
