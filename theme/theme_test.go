package theme

import (
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/genhl/highlight"
	"github.com/odvcencio/genhl/syntax"
)

func TestTokenType(t *testing.T) {
	require.Equal(t, chroma.Text, TokenType(syntax.Normal))
	require.Equal(t, chroma.Comment, TokenType(syntax.Comment))
	require.Equal(t, chroma.LiteralNumberInteger, TokenType(syntax.Decimal))
	require.Equal(t, chroma.Text, TokenType(syntax.FormatID(99)))
}

func TestNewUnknownStyle(t *testing.T) {
	_, err := New("no-such-style")
	require.ErrorIs(t, err, ErrUnknownStyle)

	th, err := New("monokai")
	require.NoError(t, err)
	require.Equal(t, "monokai", th.Name())
	require.Contains(t, Names(), "monokai")
}

func TestParseOverrides(t *testing.T) {
	o, err := ParseOverrides(map[string]any{
		"keyword": map[string]any{"color": "#ff0000", "bold": "true"},
		"Comment": map[string]any{"italic": 1, "underline": false},
	})
	require.NoError(t, err)
	require.Len(t, o, 2)
	require.Equal(t, "#ff0000", o[syntax.Keyword].Color.Hex())
	require.True(t, *o[syntax.Keyword].Bold)
	require.Nil(t, o[syntax.Keyword].Italic)
	require.True(t, *o[syntax.Comment].Italic)
	require.False(t, *o[syntax.Comment].Underline)

	_, err = ParseOverrides(map[string]any{"nonsense": map[string]any{}})
	require.ErrorIs(t, err, ErrUnknownFormat)

	_, err = ParseOverrides(map[string]any{"keyword": map[string]any{"color": "red"}})
	require.Error(t, err)

	_, err = ParseOverrides(map[string]any{"keyword": map[string]any{"blink": true}})
	require.ErrorContains(t, err, "blink")

	_, err = ParseOverrides(map[string]any{"keyword": "bold"})
	require.Error(t, err)
}

func TestStyleAppliesOverrides(t *testing.T) {
	o, err := ParseOverrides(map[string]any{
		"keyword": map[string]any{"color": "#00ff00", "bold": false},
	})
	require.NoError(t, err)
	th, err := New("github", WithOverrides(o))
	require.NoError(t, err)

	a := th.Style(highlight.FormatRange{Format: syntax.Keyword})
	require.Equal(t, "#00ff00", a.Colour.String())
	require.Equal(t, chroma.No, a.Bold)
	require.Equal(t, "#00ff00", th.ChromaStyle().Get(chroma.Keyword).Colour.String())
}

func TestStyleAppliesItemCustomisation(t *testing.T) {
	th, err := New("github")
	require.NoError(t, err)

	red := colorful.Color{R: 1}
	yes := true
	a := th.Style(highlight.FormatRange{
		Format: syntax.Others,
		Custom: &syntax.ItemStyle{Color: &red, Italic: &yes, StrikeOut: &yes},
	})
	require.Equal(t, "#ff0000", a.Colour.String())
	require.Equal(t, chroma.Yes, a.Italic)
	require.True(t, a.StrikeOut)

	css := a.CSS()
	require.Contains(t, css, "color:#ff0000")
	require.Contains(t, css, "font-style:italic")
	require.Contains(t, css, "text-decoration:line-through")
}

func TestWhitespaceColour(t *testing.T) {
	o, err := ParseOverrides(map[string]any{
		"normal": map[string]any{"color": "#000000", "background": "#ffffff"},
	})
	require.NoError(t, err)
	th, err := New("github", WithOverrides(o))
	require.NoError(t, err)

	a := th.Style(highlight.FormatRange{Format: syntax.Normal, Whitespace: true})
	r, g, b := a.Colour.Red(), a.Colour.Green(), a.Colour.Blue()
	require.InDelta(t, float64(r), float64(g), 1)
	require.InDelta(t, float64(g), float64(b), 1)
	require.Greater(t, r, uint8(60))
	require.Less(t, r, uint8(200))
}

func TestTokens(t *testing.T) {
	th, err := New("github")
	require.NoError(t, err)

	tokens := th.Tokens("int x; // é", []highlight.FormatRange{
		{Start: 0, Length: 3, Format: syntax.DataType},
		{Start: 7, Length: 4, Format: syntax.Comment},
	})
	require.Equal(t, []chroma.Token{
		{Type: chroma.KeywordType, Value: "int"},
		{Type: chroma.Text, Value: " x; "},
		{Type: chroma.Comment, Value: "// é"},
	}, tokens)

	require.Nil(t, th.Tokens("", nil))
	require.Equal(t, []chroma.Token{{Type: chroma.Text, Value: "abc"}}, th.Tokens("abc", nil))
}

func TestCSSEmpty(t *testing.T) {
	require.Empty(t, Attributes{}.CSS())
}
