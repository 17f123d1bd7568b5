package document

import (
	"slices"

	"github.com/odvcencio/genhl/highlight"
)

// FoldRegion is a foldable range of lines. The start line stays visible
// when the region is folded.
type FoldRegion struct {
	StartLine int  `json:"start"`
	EndLine   int  `json:"end"`
	Folded    bool `json:"folded,omitempty"`
}

// lineShift describes how an edit moved lines: lines first+1..first+removed
// were replaced by added new ones.
type lineShift struct {
	first   int
	removed int
	added   int
}

// FoldState holds the fold regions of a document, ordered by start line,
// and which of them are folded.
type FoldState struct {
	regions []FoldRegion
}

// update derives the regions from the fold levels of blocks. A line
// followed by lines of a greater level starts a region that runs until the
// next line whose level is not greater. Folded regions follow their start
// line across the edit; a fold whose start line was removed is dropped.
func (fs *FoldState) update(blocks []*highlight.Block, edit lineShift) {
	folded := make(map[int]bool)
	for _, r := range fs.regions {
		if !r.Folded {
			continue
		}
		switch start := r.StartLine; {
		case start <= edit.first:
			folded[start] = true
		case start > edit.first+edit.removed:
			folded[start+edit.added-edit.removed] = true
		}
	}

	var regions []FoldRegion
	for i := 0; i+1 < len(blocks); i++ {
		level := blocks[i].Fold.Indent
		if blocks[i+1].Fold.Indent <= level {
			continue
		}
		end := i + 1
		for end+1 < len(blocks) && blocks[end+1].Fold.Indent > level {
			end++
		}
		regions = append(regions, FoldRegion{StartLine: i, EndLine: end, Folded: folded[i]})
	}
	fs.regions = regions
}

func (fs *FoldState) find(line int) (int, bool) {
	return slices.BinarySearchFunc(fs.regions, line, func(r FoldRegion, line int) int {
		return r.StartLine - line
	})
}

// Toggle folds or unfolds the region starting at line. It reports false if
// no region starts there.
func (fs *FoldState) Toggle(line int) bool {
	i, ok := fs.find(line)
	if ok {
		fs.regions[i].Folded = !fs.regions[i].Folded
	}
	return ok
}

func (fs *FoldState) setAll(folded bool) {
	for i := range fs.regions {
		fs.regions[i].Folded = folded
	}
}

// FoldAll folds every region.
func (fs *FoldState) FoldAll() { fs.setAll(true) }

// UnfoldAll unfolds every region.
func (fs *FoldState) UnfoldAll() { fs.setAll(false) }

// IsLineHidden reports whether line lies inside a folded region.
func (fs *FoldState) IsLineHidden(line int) bool {
	for _, r := range fs.regions {
		if r.StartLine >= line {
			break
		}
		if r.Folded && line <= r.EndLine {
			return true
		}
	}
	return false
}

// Regions returns the fold regions ordered by start line.
func (fs *FoldState) Regions() []FoldRegion {
	return fs.regions
}

// VisibleLines returns the indices of the lines left visible by folding.
func (fs *FoldState) VisibleLines(total int) []int {
	visible := make([]int, 0, total)
	hiddenTo := -1
	for line, next := 0, 0; line < total; line++ {
		for next < len(fs.regions) && fs.regions[next].StartLine < line {
			if r := fs.regions[next]; r.Folded {
				hiddenTo = max(hiddenTo, r.EndLine)
			}
			next++
		}
		if line > hiddenTo {
			visible = append(visible, line)
		}
	}
	return visible
}
