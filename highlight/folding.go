package highlight

// regionFold computes the fold hint of a line from the region depth it
// started with and the brace adjustments seen on it.
func regionFold(depthIn, delta int) Fold {
	return Fold{
		Indent:        max(depthIn+delta, 0),
		StartIncluded: delta > 0,
		EndIncluded:   delta >= 0,
	}
}

// indentationFold uses the indentation column of the line. A blank line
// takes the indentation of its neighbours when both agree, so blank lines
// inside an indented block do not split it.
func (h *Highlighter) indentationFold(text []rune, lines Lines, n int) Fold {
	f := Fold{EndIncluded: true}
	if !blank(text) {
		f.Indent = h.tabs.IndentationColumn(string(text))
		return f
	}
	if lines == nil {
		return f
	}
	if prev := h.neighbouringIndent(lines, n, -1); prev > 0 {
		if next := h.neighbouringIndent(lines, n, 1); next == prev {
			f.Indent = prev
		}
	}
	return f
}

func (h *Highlighter) neighbouringIndent(lines Lines, n, step int) int {
	for i := n + step; i >= 0 && i < lines.Len(); i += step {
		if text := lines.Line(i); !blank([]rune(text)) {
			return h.tabs.IndentationColumn(text)
		}
	}
	return 0
}
