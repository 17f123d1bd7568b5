// Package document keeps the text of one file together with the highlight
// block of every line, and re-highlights only what an edit invalidates.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/odvcencio/genhl/highlight"
)

var (
	// ErrNoPath is returned by Save on an untitled document.
	ErrNoPath = errors.New("document has no path; use SaveAs")
	// ErrEditMismatch is returned when an edit's old text is not found at
	// its offset.
	ErrEditMismatch = errors.New("edit does not match document text")
)

// editOp records a single edit for undo/redo support.
type editOp struct {
	offset  int
	oldText string
	newText string
}

// Change is the range of lines an edit re-highlighted, both ends
// included.
type Change struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// Document manages the text and highlighting of a single file.
type Document struct {
	path      string // absolute path, or "" if untitled
	lines     []string
	savedText string
	blocks    []*highlight.Block

	hl    *highlight.Highlighter
	folds *FoldState
	log   zerolog.Logger

	undoStack []editOp
	redoStack []editOp
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the logger used to report re-highlighting.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Document) {
		d.log = l
	}
}

// New creates an empty, untitled document highlighted by hl. A document
// owns its highlighter; do not share hl between documents.
func New(hl *highlight.Highlighter, opts ...Option) *Document {
	d := &Document{
		hl:  hl,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.reset("")
	return d
}

// Open creates a document from the file at path.
func Open(path string, hl *highlight.Highlighter, opts ...Option) (*Document, error) {
	d := New(hl, opts...)
	if err := d.Open(path); err != nil {
		return nil, err
	}
	return d, nil
}

// Open reads the file at path into the document, replacing any existing
// content. The stored path is converted to an absolute path.
func (d *Document) Open(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return err
	}

	d.path = absPath
	d.reset(string(data))
	d.savedText = string(data)
	return nil
}

// Save writes the current text to the stored path.
func (d *Document) Save() error {
	if d.path == "" {
		return ErrNoPath
	}
	text := d.Text()
	if err := os.WriteFile(d.path, []byte(text), 0o644); err != nil {
		return err
	}
	d.savedText = text
	return nil
}

// SaveAs writes the current text to path, updates the stored path and
// marks the document as clean.
func (d *Document) SaveAs(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	text := d.Text()
	if err := os.WriteFile(absPath, []byte(text), 0o644); err != nil {
		return err
	}

	d.path = absPath
	d.savedText = text
	return nil
}

// Path returns the absolute file path, or "" if the document is untitled.
func (d *Document) Path() string {
	return d.path
}

// Untitled reports whether the document has no associated file path.
func (d *Document) Untitled() bool {
	return d.path == ""
}

// Title returns the base filename, or "untitled".
func (d *Document) Title() string {
	if d.path == "" {
		return "untitled"
	}
	return filepath.Base(d.path)
}

// Text returns the current text content.
func (d *Document) Text() string {
	return strings.Join(d.lines, "\n")
}

// SetText replaces the whole text, re-highlights it and forgets the undo
// history.
func (d *Document) SetText(text string) {
	d.reset(text)
}

// Dirty reports whether the text differs from the last saved/opened text.
func (d *Document) Dirty() bool {
	return d.Text() != d.savedText
}

// Len returns the number of lines. A document always has at least one.
func (d *Document) Len() int {
	return len(d.lines)
}

// Line returns line i without its line break.
func (d *Document) Line(i int) string {
	return d.lines[i]
}

// Block returns the highlight result of line i.
func (d *Document) Block(i int) *highlight.Block {
	return d.blocks[i]
}

// Blocks returns the highlight results of every line.
func (d *Document) Blocks() []*highlight.Block {
	return d.blocks
}

// Highlighter returns the highlighter of the document.
func (d *Document) Highlighter() *highlight.Highlighter {
	return d.hl
}

// Folds returns the fold regions of the document and their folded state.
func (d *Document) Folds() *FoldState {
	return d.folds
}

func (d *Document) reset(text string) {
	d.lines = strings.Split(text, "\n")
	d.blocks = make([]*highlight.Block, len(d.lines))
	d.undoStack = nil
	d.redoStack = nil
	d.folds = &FoldState{}
	d.rehighlight(0, len(d.lines)-1)
	d.folds.update(d.blocks, lineShift{})
}

// ApplyEdit replaces the text at [offset, offset+len(oldText)) with newText,
// records it on the undo stack and re-highlights the affected lines.
// Offsets are in bytes.
func (d *Document) ApplyEdit(offset int, oldText, newText string) (Change, error) {
	text := d.Text()
	if offset < 0 || offset+len(oldText) > len(text) || text[offset:offset+len(oldText)] != oldText {
		return Change{}, fmt.Errorf("%w at offset %d", ErrEditMismatch, offset)
	}
	d.undoStack = append(d.undoStack, editOp{
		offset:  offset,
		oldText: oldText,
		newText: newText,
	})
	d.redoStack = nil
	return d.splice(text, offset, oldText, newText), nil
}

// Undo reverses the last edit. It reports false if the undo stack is empty.
func (d *Document) Undo() (Change, bool) {
	if len(d.undoStack) == 0 {
		return Change{}, false
	}
	op := d.undoStack[len(d.undoStack)-1]
	d.undoStack = d.undoStack[:len(d.undoStack)-1]
	d.redoStack = append(d.redoStack, op)
	return d.splice(d.Text(), op.offset, op.newText, op.oldText), true
}

// Redo reapplies the last undone edit. It reports false if the redo stack
// is empty.
func (d *Document) Redo() (Change, bool) {
	if len(d.redoStack) == 0 {
		return Change{}, false
	}
	op := d.redoStack[len(d.redoStack)-1]
	d.redoStack = d.redoStack[:len(d.redoStack)-1]
	d.undoStack = append(d.undoStack, op)
	return d.splice(d.Text(), op.offset, op.oldText, op.newText), true
}

func (d *Document) splice(text string, offset int, oldText, newText string) Change {
	first := strings.Count(text[:offset], "\n")
	removed := strings.Count(oldText, "\n")
	added := strings.Count(newText, "\n")

	text = text[:offset] + newText + text[offset+len(oldText):]
	d.lines = strings.Split(text, "\n")

	blocks := make([]*highlight.Block, 0, len(d.lines))
	blocks = append(blocks, d.blocks[:first]...)
	blocks = append(blocks, make([]*highlight.Block, added+1)...)
	blocks = append(blocks, d.blocks[first+removed+1:]...)
	d.blocks = blocks

	change := d.rehighlight(first, first+added)
	d.folds.update(d.blocks, lineShift{first: first, removed: removed, added: added})
	return change
}

// rehighlight recomputes lines first..last and keeps going past last until
// a line ends in the same state it ended in before the edit.
func (d *Document) rehighlight(first, last int) Change {
	if d.hl.IndentationBasedFolding() {
		// Blank lines take their fold level from both neighbours.
		for first > 0 && blankLine(d.lines[first-1]) {
			first--
		}
		for last+1 < len(d.lines) && blankLine(d.lines[last+1]) {
			last++
		}
	}

	i := first
	for ; i < len(d.lines); i++ {
		old := d.blocks[i]
		var prev *highlight.Block
		if i > 0 {
			prev = d.blocks[i-1]
		}
		b := d.hl.HighlightLine(d, i, prev)
		d.blocks[i] = b
		if i >= last && old != nil && b.EndsLike(old) {
			break
		}
	}
	if i == len(d.lines) {
		i--
	}

	d.log.Debug().
		Str("document", d.Title()).
		Int("first", first).
		Int("last", i).
		Int("lines", len(d.lines)).
		Msg("re-highlighted")
	return Change{First: first, Last: i}
}

func blankLine(s string) bool {
	return strings.TrimSpace(s) == ""
}
