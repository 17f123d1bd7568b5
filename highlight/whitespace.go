package highlight

import "unicode"

func isSpace(r rune) bool { return unicode.IsSpace(r) }

func blank(text []rune) bool {
	for _, r := range text {
		if !isSpace(r) {
			return false
		}
	}
	return true
}

// overlayWhitespace splits ranges so every run of white space becomes a
// range of its own flagged Whitespace. Formats are left as the rules set
// them; renderers decide how flagged runs look.
func overlayWhitespace(text []rune, ranges []FormatRange) []FormatRange {
	out := make([]FormatRange, 0, len(ranges))
	for _, r := range ranges {
		end := r.Start + r.Length
		for i := r.Start; i < end; {
			ws := isSpace(text[i])
			j := i + 1
			for j < end && isSpace(text[j]) == ws {
				j++
			}
			seg := r
			seg.Start, seg.Length, seg.Whitespace = i, j-i, ws
			out = append(out, seg)
			i = j
		}
	}
	return out
}
