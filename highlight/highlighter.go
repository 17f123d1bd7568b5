// Package highlight runs language definitions over text one line at a
// time. The state a line leaves behind is packed into a single integer plus
// a small carried Block, so a host can re-highlight any line, in any order,
// from the block of the line above it.
package highlight

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/odvcencio/genhl/syntax"
)

// FoldingMode selects how fold hints are computed.
type FoldingMode int

const (
	// FoldAuto uses indentation for indentation-sensitive definitions and
	// regions otherwise.
	FoldAuto FoldingMode = iota
	FoldRegions
	FoldIndentation
)

// FormatRange assigns a format to Length runes starting at rune offset
// Start.
type FormatRange struct {
	Start  int
	Length int
	Format syntax.FormatID
	// Custom is the itemData customisation of the rule or context, if any.
	Custom *syntax.ItemStyle
	// Whitespace marks a run of white space when visual white space is on.
	Whitespace bool
}

// Fold is the folding hint of a line.
type Fold struct {
	// Indent is the fold level of the line; a line followed by lines of a
	// greater level starts a fold.
	Indent int
	// StartIncluded is set when a region opens at the first non-space
	// character, so the line belongs to the fold started above it.
	StartIncluded bool
	// EndIncluded is false when the line closes a region before other
	// text, so the fold closing here ends on the previous line.
	EndIncluded bool
}

// Block is the result of highlighting one line. Hosts keep the Block of
// every line and pass it back when highlighting the line below.
type Block struct {
	State   int
	Formats []FormatRange
	Fold    Fold

	regions    []string
	unnamed    int
	continueID ObservableState
	original   ObservableState
}

// BlockFromState returns a block carrying only a packed state, for hosts
// that persist states without blocks. Region names are unknown: the depth
// is kept as a count, and any endRegion closes one of those regions once
// no named region is open.
func BlockFromState(state int) *Block {
	return &Block{State: state, unnamed: DecodeState(state).RegionDepth}
}

// BlockState decodes b.State.
func (b *Block) BlockState() BlockState { return DecodeState(b.State) }

// Regions returns the names of the folding regions open at the end of the
// line, innermost last. Regions inherited from BlockFromState have no name
// and are not listed.
func (b *Block) Regions() []string { return b.regions }

// EndsLike reports whether a line starting after b highlights exactly like
// one starting after o.
func (b *Block) EndsLike(o *Block) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.State == o.State &&
		b.continueID == o.continueID &&
		b.original == o.original &&
		b.unnamed == o.unnamed &&
		slices.Equal(b.regions, o.regions)
}

// Lines gives indentation-based folding access to neighbouring lines.
type Lines interface {
	Len() int
	Line(i int) string
}

// Highlighter highlights lines of one document with one definition. It is
// not safe for concurrent use; the definition it holds may be shared.
type Highlighter struct {
	def *syntax.Definition
	log zerolog.Logger

	tabs             TabSettings
	folding          FoldingMode
	visualWhitespace bool

	tables    *stateTables
	exhausted bool
	scan      *syntax.Scan

	// Per-line state, valid during one HighlightBlock call.
	contexts     []frame
	observable   ObservableState
	original     ObservableState
	willContinue bool
	regions      []string
	unnamed      int
	foldDelta    int
	formats      []FormatRange
	length       int
	emptyAt      int
	emptyRules   []syntax.Rule
	fellThrough  []*syntax.Context
}

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithLogger sets the logger for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Highlighter) {
		h.log = l
	}
}

// WithTabSettings sets the tab settings used by indentation folding.
func WithTabSettings(ts TabSettings) Option {
	return func(h *Highlighter) {
		h.tabs = ts
	}
}

// WithFolding selects the folding mode.
func WithFolding(m FoldingMode) Option {
	return func(h *Highlighter) {
		h.folding = m
	}
}

// WithVisualWhitespace splits runs of white space into their own ranges.
func WithVisualWhitespace(on bool) Option {
	return func(h *Highlighter) {
		h.visualWhitespace = on
	}
}

// WithStateCapacity caps the persistent-state table below its natural
// limit of MaxPersistentID-PersistentsStart+1 sequences. Once full, lines
// that would need a new id end in the Default state.
func WithStateCapacity(n int) Option {
	return func(h *Highlighter) {
		h.tables = newStateTables(n)
	}
}

// New returns a highlighter for def. A broken definition still yields a
// working highlighter that formats every line as Normal.
func New(def *syntax.Definition, opts ...Option) *Highlighter {
	h := &Highlighter{
		def:     def,
		log:     zerolog.Nop(),
		tabs:    DefaultTabSettings,
		folding: FoldAuto,
		scan:    syntax.NewScan(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.tables == nil {
		h.tables = newStateTables(0)
	}
	if def.Broken() {
		h.log.Warn().Str("language", def.Name()).Err(def.Err()).Msg("definition is broken, highlighting disabled")
	}
	return h
}

// Definition returns the definition h highlights with.
func (h *Highlighter) Definition() *syntax.Definition { return h.def }

// Broken reports whether h only emits the Normal format.
func (h *Highlighter) Broken() bool { return h.def.Broken() }

// PersistentStates returns how many context sequences have been assigned
// an id.
func (h *Highlighter) PersistentStates() int { return len(h.tables.sequences) }

// IndentationBasedFolding reports whether fold hints follow indentation.
func (h *Highlighter) IndentationBasedFolding() bool {
	switch h.folding {
	case FoldIndentation:
		return true
	case FoldRegions:
		return false
	}
	return h.def.IndentationSensitive()
}

// HighlightBlock highlights text given the block of the previous line, nil
// for the first line of a document. It never modifies prev. Blank lines
// get a zero fold indent under indentation folding; use HighlightLine to
// let them follow their neighbours.
func (h *Highlighter) HighlightBlock(text string, prev *Block) *Block {
	return h.highlight([]rune(text), prev, nil, 0)
}

// HighlightLine highlights line n of lines.
func (h *Highlighter) HighlightLine(lines Lines, n int, prev *Block) *Block {
	return h.highlight([]rune(lines.Line(n)), prev, lines, n)
}

// HighlightAll highlights every line of lines in document order.
func (h *Highlighter) HighlightAll(lines Lines) []*Block {
	blocks := make([]*Block, lines.Len())
	var prev *Block
	for i := range blocks {
		blocks[i] = h.HighlightLine(lines, i, prev)
		prev = blocks[i]
	}
	return blocks
}

// StringLines adapts a slice of lines to Lines.
type StringLines []string

func (l StringLines) Len() int          { return len(l) }
func (l StringLines) Line(i int) string { return l[i] }

func (h *Highlighter) highlight(text []rune, prev *Block, lines Lines, n int) *Block {
	h.formats = nil
	h.foldDelta = 0
	h.willContinue = false
	h.length = len(text)
	h.emptyAt = -1
	h.regions = nil
	h.unnamed = 0
	depthIn := 0
	if prev != nil {
		h.regions = slices.Clone(prev.regions)
		h.unnamed = prev.unnamed
		depthIn = prev.BlockState().RegionDepth
	}

	block := &Block{}
	if h.def.Broken() {
		h.applyFormat(0, len(text), nil)
		block.State = BlockState{RegionDepth: depthIn}.Encode()
		block.regions = h.regions
		block.unnamed = h.unnamed
	} else {
		h.setupDataForBlock(prev)
		h.scan.Reset(text)
		h.scan.Captures = h.top().captures
		h.lineBegin()

		for h.scan.Progress.Offset < h.length {
			h.iterateThroughRules(false, h.top().ctx.Rules)
		}
		h.lineEnd()
		h.commit(block)
	}

	block.Formats = h.formats
	if h.visualWhitespace {
		block.Formats = overlayWhitespace(text, block.Formats)
	}
	if h.IndentationBasedFolding() {
		block.Fold = h.indentationFold(text, lines, n)
	} else {
		block.Fold = regionFold(depthIn, h.foldDelta)
	}
	return block
}

// setupDataForBlock restores the context stack from the previous block.
func (h *Highlighter) setupDataForBlock(prev *Block) {
	h.original = Default
	if prev == nil {
		h.setupDefault()
		h.observable = Default
		return
	}
	switch s := prev.BlockState(); {
	case s.Observable == Default:
		h.setupDefault()
		h.observable = Default
	case s.Observable == WillContinue:
		h.setupFromWillContinue(prev)
	case s.Observable == Continued:
		h.setupFromContinued(prev)
	default:
		h.setupFromPersistent(s.Observable)
	}
}

func (h *Highlighter) setupFromWillContinue(prev *Block) {
	h.original = prev.original
	h.observable = Continued
	if !h.pushContextSequence(prev.continueID) {
		h.observable = Default
	}
}

// setupFromContinued resumes from the state that was current before the
// continuation started.
func (h *Highlighter) setupFromContinued(prev *Block) {
	if prev.original < PersistentsStart {
		h.setupDefault()
		h.observable = Default
		return
	}
	h.setupFromPersistent(prev.original)
}

func (h *Highlighter) setupFromPersistent(id ObservableState) {
	h.observable = id
	if !h.pushContextSequence(id) {
		h.observable = Default
	}
}

func (h *Highlighter) lineBegin() {
	ctx := h.top().ctx
	if !ctx.LineBegin.Stay() {
		h.changeContext(ctx.LineBegin, nil)
	}
	if h.length == 0 {
		if ctx := h.top().ctx; !ctx.LineEmpty.Stay() {
			h.changeContext(ctx.LineEmpty, nil)
		}
	}
}

// maxLineEndSwitches bounds lineEndContext chains, which can push contexts
// whose own lineEndContext switches again.
const maxLineEndSwitches = 64

func (h *Highlighter) lineEnd() {
	if h.willContinue {
		return
	}
	for i := 0; i < maxLineEndSwitches; i++ {
		ctx := h.top().ctx
		if ctx.LineEnd.Stay() {
			return
		}
		if ctx.LineEnd.Push == nil && len(h.contexts) == 1 {
			return
		}
		h.changeContext(ctx.LineEnd, nil)
	}
	h.log.Debug().Str("language", h.def.Name()).Msg("lineEndContext switches did not settle")
}

// commit encodes the final stack into block. The packed state always
// decodes to the stack the line ended with.
func (h *Highlighter) commit(block *Block) {
	block.regions = h.regions
	block.unnamed = h.unnamed
	block.original = h.original
	if h.willContinue {
		h.createWillContinueBlock(block)
		return
	}

	obs := Default
	switch {
	case h.observable == Continued && h.sameSequence(h.original):
		obs = Continued
	case h.isDefaultSequence():
		obs = Default
	case h.observable >= PersistentsStart && h.tables.persistent[h.currentContextSequence()] == h.observable:
		obs = h.observable
	default:
		obs, _ = h.mapPersistentSequence(h.currentContextSequence())
	}
	block.State = BlockState{RegionDepth: h.regionDepth(), Observable: obs}.Encode()
}

func (h *Highlighter) regionDepth() int {
	return h.unnamed + len(h.regions)
}

// sameSequence reports whether the stack equals the one state restores to.
func (h *Highlighter) sameSequence(state ObservableState) bool {
	if state < PersistentsStart {
		return h.isDefaultSequence()
	}
	i := int(state - PersistentsStart)
	return i < len(h.tables.sequences) && sequenceKey(h.tables.sequences[i]) == h.currentContextSequence()
}

// createWillContinueBlock snapshots the whole stack, captures included, for
// the next line. The state preceding the continuation chain is kept so the
// line after the continued one can return to it.
func (h *Highlighter) createWillContinueBlock(block *Block) {
	if h.observable != WillContinue && h.observable != Continued {
		block.original = h.observable
	}
	id, ok := h.mapPersistentSequence(h.currentContextSequence())
	if !ok {
		block.State = BlockState{RegionDepth: h.regionDepth()}.Encode()
		return
	}
	block.continueID = id
	block.State = BlockState{RegionDepth: h.regionDepth(), Observable: WillContinue}.Encode()
}

func (h *Highlighter) applyFormat(start, length int, item *syntax.ItemData) {
	if length <= 0 {
		return
	}
	r := FormatRange{Start: start, Length: length, Format: syntax.Normal}
	if item != nil {
		r.Format = item.Format
		r.Custom = item.Custom
	}
	if n := len(h.formats); n > 0 {
		last := &h.formats[n-1]
		if last.Start+last.Length == start && last.Format == r.Format && last.Custom == r.Custom {
			last.Length += length
			return
		}
	}
	h.formats = append(h.formats, r)
}
