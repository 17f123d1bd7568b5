package highlight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odvcencio/genhl/syntax"
)

func buildXML(t *testing.T, src string) *syntax.Definition {
	t.Helper()
	doc, err := syntax.DecodeXML(strings.NewReader(src))
	require.NoError(t, err)
	def := syntax.Build(doc)
	require.False(t, def.Broken(), "problems: %v", def.Problems())
	return def
}

func builtin(t *testing.T, name string) *syntax.Definition {
	t.Helper()
	reg, err := syntax.NewDefaultRegistry()
	require.NoError(t, err)
	def, err := reg.Definition(name)
	require.NoError(t, err)
	require.False(t, def.Broken(), "problems: %v", def.Problems())
	return def
}

type span struct {
	Start, Length int
	Format        syntax.FormatID
}

func spans(b *Block) []span {
	out := make([]span, len(b.Formats))
	for i, f := range b.Formats {
		out[i] = span{f.Start, f.Length, f.Format}
	}
	return out
}

const itemDatas = `
    <itemDatas>
      <itemData name="Normal" defStyleNum="dsNormal"/>
      <itemData name="Keyword" defStyleNum="dsKeyword"/>
      <itemData name="String" defStyleNum="dsString"/>
    </itemDatas>`

const cycleDef = `<language name="Cycle" version="1" extensions="*.cyc">
  <highlighting>
    <contexts>
      <context name="A" attribute="Normal" lineEndContext="#stay">
        <DetectChar attribute="Keyword" char="(" context="B"/>
        <DetectChar attribute="Keyword" char="]" context="#pop"/>
      </context>
      <context name="B" attribute="String" lineEndContext="#stay">
        <DetectChar attribute="Keyword" char="[" context="A"/>
        <DetectChar attribute="Keyword" char=")" context="#pop"/>
      </context>
    </contexts>` + itemDatas + `
  </highlighting>
</language>`

func TestCommentContinuation(t *testing.T) {
	h := New(builtin(t, "C"))

	first := h.HighlightBlock(`// comment \`, nil)
	require.Equal(t, WillContinue, first.BlockState().Observable)
	require.Equal(t, []span{{0, 12, syntax.Comment}}, spans(first))

	second := h.HighlightBlock("more comment", first)
	require.Equal(t, []span{{0, 12, syntax.Comment}}, spans(second))
	require.Equal(t, Default, second.BlockState().Observable)

	third := h.HighlightBlock("int x;", second)
	require.Equal(t, syntax.DataType, third.Formats[0].Format)
}

func TestContinuedPreprocessor(t *testing.T) {
	h := New(builtin(t, "C"))

	lines := StringLines{
		`#define MAX(a, b) \`,
		`    ((a) > (b) ? (a) : (b))`,
		`int x;`,
	}
	blocks := h.HighlightAll(lines)
	require.Equal(t, WillContinue, blocks[0].BlockState().Observable)
	for _, f := range blocks[1].Formats {
		require.Equal(t, syntax.Others, f.Format)
	}
	require.Equal(t, Default, blocks[1].BlockState().Observable)
	require.Equal(t, syntax.DataType, blocks[2].Formats[0].Format)
}

func TestCyclicContexts(t *testing.T) {
	h := New(buildXML(t, cycleDef))

	open := h.HighlightBlock("(", nil)
	nested := h.HighlightBlock("([", nil)
	require.True(t, open.BlockState().Persistent())
	require.True(t, nested.BlockState().Persistent())
	require.NotEqual(t, open.State, nested.State)
	require.Equal(t, []span{{0, 2, syntax.Keyword}}, spans(nested))

	aba := h.tables.sequences[nested.BlockState().Observable-PersistentsStart]
	require.Len(t, aba, 3)
	require.Equal(t, "Cycle/0|Cycle/1|Cycle/0", sequenceKey(aba))
	require.NotEqual(t, sequenceKey(aba), sequenceKey(aba[:1]))

	// Leaving the inner A lands back on the A,B sequence and its id.
	back := h.HighlightBlock("]", nested)
	require.Equal(t, open.State, back.State)

	closed := h.HighlightBlock(")", back)
	require.Equal(t, Default, closed.BlockState().Observable)
}

func TestOrderedAlternation(t *testing.T) {
	def := buildXML(t, `<language name="Alt" version="1">
  <highlighting>
    <contexts>
      <context name="Main" attribute="Normal" lineEndContext="#stay">
        <StringDetect attribute="Keyword" String="ab"/>
        <StringDetect attribute="String" String="abc"/>
      </context>
    </contexts>`+itemDatas+`
  </highlighting>
</language>`)

	b := New(def).HighlightBlock("abc", nil)
	require.Equal(t, []span{{0, 2, syntax.Keyword}, {2, 1, syntax.Normal}}, spans(b))
}

func TestEmptyMatchAdvances(t *testing.T) {
	def := buildXML(t, `<language name="Empty" version="1">
  <highlighting>
    <contexts>
      <context name="Main" attribute="Normal" lineEndContext="#stay">
        <RegExpr attribute="Keyword" String="x*"/>
      </context>
    </contexts>`+itemDatas+`
  </highlighting>
</language>`)

	b := New(def).HighlightBlock("xxab", nil)
	require.Equal(t, []span{{0, 2, syntax.Keyword}, {2, 2, syntax.Normal}}, spans(b))
}

func TestLookAheadPingPongTerminates(t *testing.T) {
	def := buildXML(t, `<language name="PingPong" version="1">
  <highlighting>
    <contexts>
      <context name="A" attribute="Normal" lineEndContext="#stay">
        <RegExpr String="." lookAhead="true" context="B"/>
      </context>
      <context name="B" attribute="String" lineEndContext="#pop">
        <RegExpr String="." lookAhead="true" context="#pop"/>
      </context>
    </contexts>`+itemDatas+`
  </highlighting>
</language>`)

	b := New(def).HighlightBlock("abc", nil)
	require.Equal(t, []span{{0, 3, syntax.Normal}}, spans(b))
	require.Equal(t, Default, b.BlockState().Observable)
}

func TestFallthrough(t *testing.T) {
	def := buildXML(t, `<language name="Fall" version="1">
  <highlighting>
    <contexts>
      <context name="Main" attribute="Normal" lineEndContext="#stay">
        <DetectChar attribute="Keyword" char="@" context="Tag"/>
      </context>
      <context name="Tag" attribute="String" lineEndContext="#pop" fallthrough="true" fallthroughContext="#pop">
        <DetectIdentifier/>
      </context>
    </contexts>`+itemDatas+`
  </highlighting>
</language>`)

	b := New(def).HighlightBlock("@tag rest", nil)
	require.Equal(t, []span{
		{0, 1, syntax.Keyword},
		{1, 3, syntax.String},
		{4, 5, syntax.Normal},
	}, spans(b))
}

const sampleC = `#include <stdio.h>
/* block
   comment */
int main(void) {
    char c = '\n';
    printf("hi %d\n", 0x1F); // TODO
    return 0;
}`

func TestIdempotence(t *testing.T) {
	def := builtin(t, "C")
	lines := StringLines(strings.Split(sampleC, "\n"))
	h := New(def)
	blocks := h.HighlightAll(lines)

	// Re-highlight out of order, from the stored previous blocks.
	for i := len(lines) - 1; i >= 0; i-- {
		var prev *Block
		if i > 0 {
			prev = blocks[i-1]
		}
		require.Equal(t, blocks[i], h.HighlightLine(lines, i, prev), "line %d", i)
	}

	// A fresh highlighter assigns the same ids in the same order.
	require.Equal(t, blocks, New(def).HighlightAll(lines))
}

func TestPersistentIDsAreStable(t *testing.T) {
	h := New(builtin(t, "C"))

	first := h.HighlightBlock("/* open", nil)
	require.True(t, first.BlockState().Persistent())
	h.HighlightBlock("char *s = \"x\";", nil)
	h.HighlightBlock("x = 1; /* again", nil)
	again := h.HighlightBlock("/* open", nil)
	require.Equal(t, first.State, again.State)

	inside := h.HighlightBlock("still inside", first)
	require.Equal(t, first.State, inside.State)
	require.Equal(t, []span{{0, 12, syntax.Comment}}, spans(inside))

	id, ok := h.mapPersistentSequence(sequenceKey(h.tables.sequences[0]))
	require.True(t, ok)
	require.Equal(t, PersistentsStart, id)
}

func TestStaleStateFallsBackToDefault(t *testing.T) {
	h := New(builtin(t, "C"))
	want := h.HighlightBlock("int x;", nil)

	for _, obs := range []ObservableState{200, WillContinue, Continued} {
		prev := BlockFromState(BlockState{Observable: obs}.Encode())
		got := h.HighlightBlock("int x;", prev)
		require.Equal(t, want.Formats, got.Formats)
		require.Equal(t, Default, got.BlockState().Observable)
	}
}

func TestBlockFromStateKeepsDepthAsCount(t *testing.T) {
	prev := BlockFromState(BlockState{RegionDepth: MaxRegionDepth}.Encode())
	require.Empty(t, prev.Regions())

	h := New(builtin(t, "C"))
	closed := h.HighlightBlock("}", prev)
	require.Equal(t, MaxRegionDepth-1, closed.BlockState().RegionDepth)
	require.Empty(t, closed.Regions())

	// A named region opened on top must be closed by name first.
	opened := h.HighlightBlock("{ }", BlockFromState(BlockState{RegionDepth: 3}.Encode()))
	require.Equal(t, 3, opened.BlockState().RegionDepth)
	nested := h.HighlightBlock("{", BlockFromState(BlockState{RegionDepth: 3}.Encode()))
	require.Equal(t, 4, nested.BlockState().RegionDepth)
	require.Equal(t, []string{"Brace"}, nested.Regions())
	require.True(t, closed.EndsLike(h.HighlightBlock("}", prev)))
	require.False(t, nested.EndsLike(opened))
}

func TestBrokenDefinition(t *testing.T) {
	doc, err := syntax.DecodeXML(strings.NewReader(`<language name="Broken" version="1">
  <highlighting>
    <contexts>
      <context name="Main" attribute="Normal" lineEndContext="#stay">
        <DetectChar char="x" context="Missing"/>
      </context>
    </contexts>
  </highlighting>
</language>`))
	require.NoError(t, err)
	def := syntax.Build(doc)
	require.True(t, def.Broken())

	h := New(def, WithVisualWhitespace(true))
	require.True(t, h.Broken())

	prev := BlockFromState(BlockState{RegionDepth: 2}.Encode())
	b := h.HighlightBlock("a x", prev)
	require.Equal(t, []FormatRange{
		{Start: 0, Length: 1, Format: syntax.Normal},
		{Start: 1, Length: 1, Format: syntax.Normal, Whitespace: true},
		{Start: 2, Length: 1, Format: syntax.Normal},
	}, b.Formats)
	require.Equal(t, BlockState{RegionDepth: 2}, b.BlockState())
}

func TestHereDocument(t *testing.T) {
	h := New(builtin(t, "Bash"))
	lines := StringLines{
		"cat <<EOF",
		"hello $USER",
		"EOF",
		"echo done",
	}
	blocks := h.HighlightAll(lines)

	require.Equal(t, []span{{0, 4, syntax.Normal}, {4, 5, syntax.Keyword}}, spans(blocks[0]))
	require.True(t, blocks[0].BlockState().Persistent())
	require.Equal(t, blocks[0].State, blocks[1].State)
	require.Equal(t, []span{{0, 6, syntax.String}, {6, 5, syntax.Others}}, spans(blocks[1]))
	require.NotNil(t, blocks[1].Formats[0].Custom)
	require.Equal(t, Default, blocks[2].BlockState().Observable)
	require.Equal(t, syntax.Function, blocks[3].Formats[0].Format)

	// A different terminator is a different dynamic context binding.
	other := h.HighlightBlock("cat <<END", nil)
	require.NotEqual(t, blocks[0].State, other.State)
	require.Equal(t, blocks[0].State, h.HighlightBlock("cat <<EOF", nil).State)

	// The terminator of another here-document does not close this one.
	require.Equal(t, other.State, h.HighlightBlock("EOF", other).State)
}

func TestRegionFolding(t *testing.T) {
	h := New(builtin(t, "C"))
	lines := StringLines{
		"int f() {",
		"    return 1;",
		"}",
		"void g()",
		"{",
		"    if (x) {",
		"    } else {",
		"    }",
		"}",
	}
	blocks := h.HighlightAll(lines)

	indents := make([]int, len(blocks))
	depths := make([]int, len(blocks))
	for i, b := range blocks {
		indents[i] = b.Fold.Indent
		depths[i] = b.BlockState().RegionDepth
	}
	require.Equal(t, []int{0, 1, 1, 0, 1, 1, 1, 2, 1}, indents)
	require.Equal(t, []int{1, 1, 0, 0, 1, 2, 2, 1, 0}, depths)

	require.True(t, blocks[4].Fold.StartIncluded)
	require.False(t, blocks[6].Fold.EndIncluded)
	require.True(t, blocks[7].Fold.EndIncluded)
	require.Equal(t, []string{"Brace", "Brace"}, blocks[6].Regions())
}

func TestIndentationFolding(t *testing.T) {
	def := builtin(t, "Python")
	h := New(def, WithTabSettings(TabSettings{TabSize: 4, IndentSize: 4}))
	require.True(t, h.IndentationBasedFolding())

	lines := StringLines{
		"def f():",
		"    x = 1",
		"",
		"    return x",
		"   ",
		"y = 2",
	}
	var indents []int
	for _, b := range h.HighlightAll(lines) {
		indents = append(indents, b.Fold.Indent)
		require.Zero(t, b.BlockState().RegionDepth)
	}
	require.Equal(t, []int{0, 4, 4, 4, 0, 0}, indents)

	require.False(t, New(def, WithFolding(FoldRegions)).IndentationBasedFolding())
}

func TestDocstringRegion(t *testing.T) {
	h := New(builtin(t, "Python"), WithFolding(FoldRegions))
	blocks := h.HighlightAll(StringLines{`"""doc`, `more`, `"""`})
	require.Equal(t, 1, blocks[0].BlockState().RegionDepth)
	require.True(t, blocks[0].BlockState().Persistent())
	require.Equal(t, []span{{0, 4, syntax.String}}, spans(blocks[1]))
	require.Equal(t, BlockState{}, blocks[2].BlockState())
}

func TestVisualWhitespace(t *testing.T) {
	h := New(builtin(t, "C"), WithVisualWhitespace(true))
	b := h.HighlightBlock("int  x;", nil)
	require.Equal(t, []FormatRange{
		{Start: 0, Length: 3, Format: syntax.DataType},
		{Start: 3, Length: 2, Format: syntax.Normal, Whitespace: true},
		{Start: 5, Length: 2, Format: syntax.Normal},
	}, b.Formats)
}

func TestStateCapacity(t *testing.T) {
	h := New(buildXML(t, cycleDef), WithStateCapacity(1))

	open := h.HighlightBlock("(", nil)
	require.Equal(t, PersistentsStart, open.BlockState().Observable)

	nested := h.HighlightBlock("([", nil)
	require.Equal(t, Default, nested.BlockState().Observable)
	require.Equal(t, 1, h.PersistentStates())
}

func TestNumbersWithChildRules(t *testing.T) {
	h := New(builtin(t, "C"))
	b := h.HighlightBlock("x = 10UL + 1.5f + 017 + 0x1F;", nil)

	var got []syntax.FormatID
	for _, f := range b.Formats {
		if f.Format != syntax.Normal {
			got = append(got, f.Format)
		}
	}
	require.Equal(t, []syntax.FormatID{syntax.Decimal, syntax.Float, syntax.BaseN, syntax.BaseN}, got)
	require.Equal(t, span{4, 4, syntax.Decimal}, spans(b)[1])
}
