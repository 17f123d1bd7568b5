// Package theme renders highlight formats with chroma styles.
package theme

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/odvcencio/genhl/highlight"
	"github.com/odvcencio/genhl/syntax"
)

var (
	// ErrUnknownStyle is returned for a style name chroma does not know.
	ErrUnknownStyle  = errors.New("theme: unknown style")
	ErrUnknownFormat = errors.New("theme: unknown format")
)

var tokenTypes = [...]chroma.TokenType{
	syntax.Normal:           chroma.Text,
	syntax.VisualWhitespace: chroma.TextWhitespace,
	syntax.Keyword:          chroma.Keyword,
	syntax.DataType:         chroma.KeywordType,
	syntax.Decimal:          chroma.LiteralNumberInteger,
	syntax.BaseN:            chroma.LiteralNumberHex,
	syntax.Float:            chroma.LiteralNumberFloat,
	syntax.Char:             chroma.LiteralStringChar,
	syntax.String:           chroma.LiteralString,
	syntax.Comment:          chroma.Comment,
	syntax.Alert:            chroma.CommentSpecial,
	syntax.Error:            chroma.Error,
	syntax.Function:         chroma.NameFunction,
	syntax.RegionMarker:     chroma.NameLabel,
	syntax.Others:           chroma.CommentPreproc,
}

// TokenType returns the chroma token type used to render f.
func TokenType(f syntax.FormatID) chroma.TokenType {
	if f < 0 || int(f) >= len(tokenTypes) {
		return chroma.Text
	}
	return tokenTypes[f]
}

// Names returns the available style names.
func Names() []string {
	names := styles.Names()
	sort.Strings(names)
	return names
}

// Attributes is the resolved rendering of a format range.
type Attributes struct {
	chroma.StyleEntry
	StrikeOut bool
}

// CSS renders a as inline CSS declarations.
func (a Attributes) CSS() string {
	var decls []string
	if a.Colour.IsSet() {
		decls = append(decls, "color:"+a.Colour.String())
	}
	if a.Background.IsSet() {
		decls = append(decls, "background-color:"+a.Background.String())
	}
	if a.Bold == chroma.Yes {
		decls = append(decls, "font-weight:bold")
	}
	if a.Italic == chroma.Yes {
		decls = append(decls, "font-style:italic")
	}
	var deco []string
	if a.Underline == chroma.Yes {
		deco = append(deco, "underline")
	}
	if a.StrikeOut {
		deco = append(deco, "line-through")
	}
	if len(deco) > 0 {
		decls = append(decls, "text-decoration:"+strings.Join(deco, " "))
	}
	return strings.Join(decls, ";")
}

// Theme resolves formats against a chroma style with per-format overrides.
type Theme struct {
	name      string
	style     *chroma.Style
	overrides map[syntax.FormatID]Override
}

// Option configures a Theme.
type Option func(*Theme)

// WithOverrides replaces the rendering of individual formats.
func WithOverrides(o map[syntax.FormatID]Override) Option {
	return func(t *Theme) {
		t.overrides = o
	}
}

// New returns the theme built on the chroma style called name.
func New(name string, opts ...Option) (*Theme, error) {
	base, ok := styles.Registry[name]
	if !ok {
		base, ok = styles.Registry[strings.ToLower(name)]
	}
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownStyle, name)
	}
	t := &Theme{name: base.Name}
	for _, opt := range opts {
		opt(t)
	}

	t.style = base
	if len(t.overrides) > 0 {
		b := base.Builder()
		for f, o := range t.overrides {
			tt := TokenType(f)
			e := base.Get(tt)
			o.apply(&e)
			b.AddEntry(tt, e)
		}
		style, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("build style %s: %w", name, err)
		}
		t.style = style
	}
	return t, nil
}

// Name returns the name of the underlying chroma style.
func (t *Theme) Name() string { return t.name }

// ChromaStyle returns the style with overrides applied, for use with chroma
// formatters.
func (t *Theme) ChromaStyle() *chroma.Style { return t.style }

// Style resolves the rendering of r: the format's style entry, then the
// itemData customisation carried by r, then the visual white space colour.
func (t *Theme) Style(r highlight.FormatRange) Attributes {
	a := Attributes{StyleEntry: t.style.Get(TokenType(r.Format))}
	if c := r.Custom; c != nil {
		if c.Color != nil {
			a.Colour = toColour(*c.Color)
		}
		setTrilean(&a.Bold, c.Bold)
		setTrilean(&a.Italic, c.Italic)
		setTrilean(&a.Underline, c.Underline)
		if c.StrikeOut != nil {
			a.StrikeOut = *c.StrikeOut
		}
	}
	if r.Whitespace {
		a.Colour = t.whitespaceColour()
	}
	return a
}

// whitespaceColour sits halfway between the normal text colour and the
// background.
func (t *Theme) whitespaceColour() chroma.Colour {
	normal := t.style.Get(chroma.Text)
	fg, bg := colorful.Color{}, colorful.Color{R: 1, G: 1, B: 1}
	if normal.Colour.IsSet() {
		fg = fromColour(normal.Colour)
	}
	if normal.Background.IsSet() {
		bg = fromColour(normal.Background)
	}
	return toColour(fg.BlendLab(bg, 0.5))
}

// Tokens splits text into chroma tokens following formats. Text not covered
// by any range is plain text.
func (t *Theme) Tokens(text string, formats []highlight.FormatRange) []chroma.Token {
	runes := []rune(text)
	var out []chroma.Token
	pos := 0
	for _, f := range formats {
		start := min(f.Start, len(runes))
		end := min(f.Start+f.Length, len(runes))
		if start > pos {
			out = append(out, chroma.Token{Type: chroma.Text, Value: string(runes[pos:start])})
		}
		if end > start {
			out = append(out, chroma.Token{Type: TokenType(f.Format), Value: string(runes[start:end])})
		}
		pos = max(pos, end)
	}
	if pos < len(runes) {
		out = append(out, chroma.Token{Type: chroma.Text, Value: string(runes[pos:])})
	}
	return out
}

func setTrilean(dst *chroma.Trilean, v *bool) {
	switch {
	case v == nil:
	case *v:
		*dst = chroma.Yes
	default:
		*dst = chroma.No
	}
}

func toColour(c colorful.Color) chroma.Colour {
	r, g, b := c.Clamped().RGB255()
	return chroma.NewColour(r, g, b)
}

func fromColour(c chroma.Colour) colorful.Color {
	return colorful.Color{
		R: float64(c.Red()) / 255,
		G: float64(c.Green()) / 255,
		B: float64(c.Blue()) / 255,
	}
}
