package highlight

import "github.com/mattn/go-runewidth"

// TabSettings controls how leading white space is measured for
// indentation-based folding.
type TabSettings struct {
	TabSize    int
	IndentSize int
}

// DefaultTabSettings uses 8-column tabs and 4-column indents.
var DefaultTabSettings = TabSettings{TabSize: 8, IndentSize: 4}

// IndentationColumn returns the display column of the first non-space
// character of text. A tab advances to the next tab stop; other white
// space advances by its display width, so an ideographic space counts
// as two columns.
func (ts TabSettings) IndentationColumn(text string) int {
	tab := ts.TabSize
	if tab <= 0 {
		tab = DefaultTabSettings.TabSize
	}
	col := 0
	for _, r := range text {
		switch {
		case r == '\t':
			col = (col/tab + 1) * tab
		case r == ' ':
			col++
		case isSpace(r):
			col += max(runewidth.RuneWidth(r), 1)
		default:
			return col
		}
	}
	return col
}

// IndentLevel converts a column into a number of indent steps.
func (ts TabSettings) IndentLevel(column int) int {
	if ts.IndentSize <= 0 {
		return column
	}
	return column / ts.IndentSize
}
