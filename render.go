package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/genhl/highlight"
	"github.com/odvcencio/genhl/syntax"
	"github.com/odvcencio/genhl/theme"
)

type renderer struct {
	reg    *syntax.Registry
	theme  *theme.Theme
	hlOpts []highlight.Option
	format string
	lang   string
	log    zerolog.Logger
}

// renderFiles highlights files concurrently and writes them in argument
// order.
func (r *renderer) renderFiles(ctx context.Context, w io.Writer, files []string, jobs int) error {
	outputs := make([]bytes.Buffer, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			return r.render(&outputs[i], path, string(data))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i := range outputs {
		if _, err := outputs[i].WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) language(name string) (string, error) {
	if r.lang != "" {
		return r.lang, nil
	}
	if e := r.reg.DetectLanguage(name); e != nil {
		return e.Name, nil
	}
	return "", fmt.Errorf("%s: cannot determine the language; use -lang", name)
}

func (r *renderer) render(w io.Writer, name, text string) error {
	lang, err := r.language(name)
	if err != nil {
		return err
	}
	def, release, err := r.reg.Acquire(lang)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer release()

	lines := splitLines(text)
	blocks := highlight.New(def, r.hlOpts...).HighlightAll(lines)
	r.log.Debug().Str("file", name).Str("language", def.Name()).Int("lines", len(lines)).Msg("highlighted")

	if r.format == "states" {
		return writeStates(w, lines, blocks)
	}
	formatter, ok := formatters.Registry[r.format]
	if !ok {
		return fmt.Errorf("unknown output format %q", r.format)
	}
	var tokens []chroma.Token
	for i, line := range lines {
		tokens = append(tokens, r.theme.Tokens(line, blocks[i].Formats)...)
		tokens = append(tokens, chroma.Token{Type: chroma.Text, Value: "\n"})
	}
	return formatter.Format(w, r.theme.ChromaStyle(), chroma.Literator(tokens...))
}

// writeStates prints the carried state and fold level of every line.
func writeStates(w io.Writer, lines highlight.StringLines, blocks []*highlight.Block) error {
	for i, b := range blocks {
		if _, err := fmt.Fprintf(w, "%4d  %-22s fold %-3d %s\n", i+1, b.BlockState(), b.Fold.Indent, lines[i]); err != nil {
			return err
		}
	}
	return nil
}

// splitLines splits text at line breaks. A final line break does not start
// another line.
func splitLines(text string) highlight.StringLines {
	if text == "" {
		return highlight.StringLines{""}
	}
	var lines highlight.StringLines
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		end := i
		if end > start && text[end-1] == '\r' {
			end--
		}
		lines = append(lines, text[start:end])
		start = i + 1
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
