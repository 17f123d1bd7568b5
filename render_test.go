package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/genhl/config"
	"github.com/odvcencio/genhl/highlight"
	"github.com/odvcencio/genhl/syntax"
	"github.com/odvcencio/genhl/theme"
)

func newRenderer(t *testing.T, format string) *renderer {
	t.Helper()
	reg, err := syntax.NewDefaultRegistry()
	require.NoError(t, err)
	th, err := theme.New("github")
	require.NoError(t, err)
	return &renderer{reg: reg, theme: th, format: format, log: zerolog.Nop()}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want highlight.StringLines
	}{
		{"", highlight.StringLines{""}},
		{"a", highlight.StringLines{"a"}},
		{"a\n", highlight.StringLines{"a"}},
		{"a\r\nb", highlight.StringLines{"a", "b"}},
		{"a\n\nb\n", highlight.StringLines{"a", "", "b"}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, splitLines(tt.in), "splitLines(%q)", tt.in)
	}
}

func TestRenderNoop(t *testing.T) {
	r := newRenderer(t, "noop")
	var buf bytes.Buffer
	require.NoError(t, r.render(&buf, "main.c", "int a;\n/* x */ int b;\n"))
	require.Equal(t, "int a;\n/* x */ int b;\n", buf.String())
}

func TestRenderHTML(t *testing.T) {
	r := newRenderer(t, "html")
	var buf bytes.Buffer
	require.NoError(t, r.render(&buf, "main.c", "int a;"))
	require.Contains(t, buf.String(), "<span")
	require.Contains(t, buf.String(), "int")
}

func TestRenderStates(t *testing.T) {
	r := newRenderer(t, "states")
	var buf bytes.Buffer
	require.NoError(t, r.render(&buf, "main.c", "/* a\nb */"))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "depth=1 Persistent(")
	require.Contains(t, lines[1], "depth=0 Default")
}

func TestRenderErrors(t *testing.T) {
	var buf bytes.Buffer
	err := newRenderer(t, "nope").render(&buf, "main.c", "int a;")
	require.ErrorContains(t, err, `unknown output format "nope"`)

	err = newRenderer(t, "noop").render(&buf, "notes.xyz", "text")
	require.ErrorContains(t, err, "-lang")

	r := newRenderer(t, "noop")
	r.lang = "Cobol"
	err = r.render(&buf, "main.c", "text")
	require.ErrorIs(t, err, syntax.ErrUnknownLanguage)
}

func TestRenderFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.c":  "int a;\n",
		"b.py": "def b():\n    pass\n",
		"c.sh": "echo c\n",
	}
	var paths []string
	for _, name := range []string{"a.c", "b.py", "c.sh"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(files[name]), 0o644))
		paths = append(paths, path)
	}

	r := newRenderer(t, "noop")
	var buf bytes.Buffer
	require.NoError(t, r.renderFiles(context.Background(), &buf, paths, 2))
	require.Equal(t, "int a;\ndef b():\n    pass\necho c\n", buf.String())

	err := r.renderFiles(context.Background(), &buf, []string{filepath.Join(dir, "missing.c")}, 2)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunList(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	out, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, run(context.Background(), cfg, options{list: true}, nil, out))
	data, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	require.Contains(t, string(data), "Python")
	require.Contains(t, string(data), "*.c *.h")
}

func TestRunStdin(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	out, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer out.Close()

	opts := options{lang: "INI Files", format: "auto"}
	require.NoError(t, run(context.Background(), cfg, opts, strings.NewReader("[s]\nk = v\n"), out))
	data, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	require.Equal(t, "[s]\nk = v\n", string(data), "a file is not a terminal, so auto picks plain text")
}
