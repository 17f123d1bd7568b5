package syntax

import (
	"errors"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/text/cases"
)

// ItemStyle holds the optional rendering customisation of an itemData.
// Nil pointers mean "not specified".
type ItemStyle struct {
	Color     *colorful.Color
	Bold      *bool
	Italic    *bool
	Underline *bool
	StrikeOut *bool
}

// ItemData is a named format declared by a definition.
type ItemData struct {
	Name   string
	Style  string // Kate default style, e.g. "dsComment"
	Format FormatID
	Custom *ItemStyle // nil when the definition does not customise it
}

// KeywordList is a named word list used by keyword rules.
type KeywordList struct {
	Name   string
	words  map[string]struct{}
	folded map[string]struct{}
}

func newKeywordList(name string, items []string) *KeywordList {
	fold := cases.Fold()
	l := &KeywordList{
		Name:   name,
		words:  make(map[string]struct{}, len(items)),
		folded: make(map[string]struct{}, len(items)),
	}
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		l.words[it] = struct{}{}
		l.folded[fold.String(it)] = struct{}{}
	}
	return l
}

// Len returns the number of distinct words.
func (l *KeywordList) Len() int { return len(l.words) }

// Contains reports whether word is in the list. When insensitive is set,
// word must already be case folded.
func (l *KeywordList) Contains(word string, insensitive bool) bool {
	if insensitive {
		_, ok := l.folded[word]
		return ok
	}
	_, ok := l.words[word]
	return ok
}

const defaultDelimiters = " \t.():!+,-<=>%&*/;?[]^{|}~\\"

// Definition is an immutable, shareable language definition. It is safe
// for concurrent use by any number of highlighters once built.
type Definition struct {
	name       string
	section    string
	version    string
	extensions []string
	mimeTypes  []string
	priority   int

	caseSensitive        bool
	indentationSensitive bool
	delimiters           map[rune]struct{}

	contexts  []*Context
	byName    *orderedmap.OrderedMap[string, *Context]
	itemDatas *orderedmap.OrderedMap[string, *ItemData]
	lists     map[string]*KeywordList

	problems []error
}

func (d *Definition) Name() string         { return d.name }
func (d *Definition) Section() string      { return d.section }
func (d *Definition) Version() string      { return d.version }
func (d *Definition) Extensions() []string { return d.extensions }
func (d *Definition) MimeTypes() []string  { return d.mimeTypes }
func (d *Definition) Priority() int        { return d.priority }

// CaseSensitive reports the default keyword case sensitivity.
func (d *Definition) CaseSensitive() bool { return d.caseSensitive }

// IndentationSensitive reports whether folding follows indentation rather
// than region markers.
func (d *Definition) IndentationSensitive() bool { return d.indentationSensitive }

// DefaultContext returns the first declared context, or nil for an empty
// definition.
func (d *Definition) DefaultContext() *Context {
	if len(d.contexts) == 0 {
		return nil
	}
	return d.contexts[0]
}

// Context returns the context declared under name.
func (d *Definition) Context(name string) (*Context, bool) {
	return d.byName.Get(name)
}

// Contexts returns the contexts in declaration order.
func (d *Definition) Contexts() []*Context { return d.contexts }

// ItemData returns the itemData declared under name.
func (d *Definition) ItemData(name string) (*ItemData, bool) {
	return d.itemDatas.Get(name)
}

// ItemDatas returns the itemDatas in declaration order.
func (d *Definition) ItemDatas() []*ItemData {
	out := make([]*ItemData, 0, d.itemDatas.Len())
	for pair := d.itemDatas.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// KeywordList returns the list declared under name.
func (d *Definition) KeywordList(name string) (*KeywordList, bool) {
	l, ok := d.lists[name]
	return l, ok
}

// IsDelimiter reports whether r separates keywords.
func (d *Definition) IsDelimiter(r rune) bool {
	_, ok := d.delimiters[r]
	return ok
}

// Problems lists what went wrong while building the definition.
func (d *Definition) Problems() []error { return d.problems }

// Broken reports whether the definition has unresolved references or
// malformed rules. Highlighters fall back to plain formatting for it.
func (d *Definition) Broken() bool { return len(d.problems) > 0 || len(d.contexts) == 0 }

// Err joins the problems into one error, or returns nil.
func (d *Definition) Err() error {
	if len(d.contexts) == 0 && len(d.problems) == 0 {
		return &DefinitionError{Language: d.name, Err: ErrNoContexts}
	}
	return errors.Join(d.problems...)
}
