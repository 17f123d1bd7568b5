package syntax

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
)

// Rule is one pattern of a context. Rules are immutable and shared by every
// highlighter using their definition; per-highlighter state lives in Scan.
type Rule interface {
	Base() *RuleBase
	match(s *Scan) bool
}

// RuleBase carries the attributes common to every Kate rule.
type RuleBase struct {
	Kind string

	Item        *ItemData // nil means the context's format
	Context     Transition
	BeginRegion string
	EndRegion   string

	LookAhead     bool
	FirstNonSpace bool
	Dynamic       bool
	Column        int // -1 when unset

	Children []Rule

	def              *Definition
	consumesNonSpace bool
}

func (b *RuleBase) Base() *RuleBase { return b }

// Definition returns the definition the rule was declared in. It differs
// from the context's one for rules pulled in with IncludeRules ##Other.
func (b *RuleBase) Definition() *Definition { return b.def }

func newRuleBase(def *Definition, kind string) RuleBase {
	return RuleBase{Kind: kind, Column: -1, def: def, consumesNonSpace: true}
}

// dynamicCacheLimit bounds the per-highlighter cache of regular
// expressions compiled from captures.
const dynamicCacheLimit = 512

// Scan is what rules match against: the line, the progress cursor and the
// captures bound to the active dynamic context. A Scan belongs to a single
// highlighter and is not safe for concurrent use.
type Scan struct {
	Text     []rune
	Progress Progress
	Captures []string

	fold    cases.Caser
	dynamic map[string]*regexp2.Regexp
}

// NewScan returns an empty Scan.
func NewScan() *Scan {
	return &Scan{
		fold:    cases.Fold(),
		dynamic: make(map[string]*regexp2.Regexp),
	}
}

// Reset prepares s for highlighting text.
func (s *Scan) Reset(text []rune) {
	s.Text = text
	s.Captures = nil
	s.Progress.Reset()
}

// Match runs r at the current offset, applying the attributes shared by
// every rule kind. On failure the offset is left untouched; lookahead rules
// never move it.
func Match(r Rule, s *Scan) bool {
	b := r.Base()
	p := &s.Progress
	if p.Offset >= len(s.Text) {
		return false
	}
	if b.FirstNonSpace && !p.OnlySpacesSoFar {
		return false
	}
	if b.Column >= 0 && b.Column != p.Offset {
		return false
	}

	original := p.Offset
	p.Captures = nil
	if !r.match(s) {
		p.Offset = original
		p.ClearBracesMatches()
		return false
	}

	if p.OnlySpacesSoFar && !b.LookAhead && b.consumesNonSpace && p.Offset > original {
		p.OnlySpacesSoFar = false
	}
	if b.LookAhead {
		p.Offset = original
	}
	return true
}

func (s *Scan) matchCharacter(b *RuleBase, c rune) bool {
	p := &s.Progress
	if p.Offset >= len(s.Text) || s.Text[p.Offset] != c {
		return false
	}
	if !b.LookAhead {
		if c == '{' && p.OnlySpacesSoFar {
			p.OpeningBraceMatchAtFirstNonSpace = true
		} else if c == '}' && !blank(s.Text[p.Offset+1:]) {
			p.ClosingBraceMatchAtNonEnd = true
		}
	}
	p.Offset++
	return true
}

func (s *Scan) matchString(str []rune, insensitive bool) bool {
	p := &s.Progress
	if len(str) == 0 || p.Offset+len(str) > len(s.Text) {
		return false
	}
	seg := s.Text[p.Offset : p.Offset+len(str)]
	if insensitive {
		if !strings.EqualFold(string(seg), string(str)) {
			return false
		}
	} else {
		for i, r := range str {
			if seg[i] != r {
				return false
			}
		}
	}
	p.Offset += len(str)
	return true
}

func (s *Scan) matchPredicate(pred func(rune) bool) bool {
	p := &s.Progress
	start := p.Offset
	for p.Offset < len(s.Text) && pred(s.Text[p.Offset]) {
		p.Offset++
	}
	return p.Offset > start
}

func (s *Scan) peek(offset int) (rune, bool) {
	if offset < 0 || offset >= len(s.Text) {
		return 0, false
	}
	return s.Text[offset], true
}

func blank(rs []rune) bool {
	for _, r := range rs {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// replaceCaptures substitutes %N placeholders with the N-th capture. A
// missing capture is replaced by the empty string.
func replaceCaptures(pattern string, captures []string, escape func(string) string) string {
	if !strings.ContainsRune(pattern, '%') {
		return pattern
	}
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' || i+1 >= len(pattern) || pattern[i+1] < '0' || pattern[i+1] > '9' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(pattern) && pattern[j] >= '0' && pattern[j] <= '9' {
			j++
		}
		n, _ := strconv.Atoi(pattern[i+1 : j])
		if n < len(captures) {
			capture := captures[n]
			if escape != nil {
				capture = escape(capture)
			}
			b.WriteString(capture)
		}
		i = j - 1
	}
	return b.String()
}
