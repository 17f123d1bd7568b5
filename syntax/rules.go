package syntax

import (
	"strings"
	"unicode"
)

// DetectChar matches a single character. A dynamic DetectChar names a
// capture instead and matches the first character of it.
type DetectChar struct {
	RuleBase
	Char    rune
	Capture int
}

func (r *DetectChar) match(s *Scan) bool {
	c := r.Char
	if r.Dynamic {
		if r.Capture >= len(s.Captures) || s.Captures[r.Capture] == "" {
			return false
		}
		c = []rune(s.Captures[r.Capture])[0]
	}
	return s.matchCharacter(&r.RuleBase, c)
}

// Detect2Chars matches two consecutive characters.
type Detect2Chars struct {
	RuleBase
	Char  rune
	Char1 rune
}

func (r *Detect2Chars) match(s *Scan) bool {
	return s.matchCharacter(&r.RuleBase, r.Char) && s.matchCharacter(&r.RuleBase, r.Char1)
}

// AnyChar matches one character out of a set.
type AnyChar struct {
	RuleBase
	Set string
}

func (r *AnyChar) match(s *Scan) bool {
	c, ok := s.peek(s.Progress.Offset)
	if !ok || !strings.ContainsRune(r.Set, c) {
		return false
	}
	return s.matchCharacter(&r.RuleBase, c)
}

// StringDetect matches a literal string, %N placeholders being replaced by
// captures when the rule is dynamic.
type StringDetect struct {
	RuleBase
	Str         string
	Insensitive bool

	runes []rune
}

func (r *StringDetect) match(s *Scan) bool {
	str := r.runes
	if r.Dynamic {
		str = []rune(replaceCaptures(r.Str, s.Captures, nil))
	}
	return s.matchString(str, r.Insensitive)
}

// WordDetect is a StringDetect bounded by keyword delimiters on both sides.
type WordDetect struct {
	RuleBase
	Str         string
	Insensitive bool

	runes []rune
}

func (r *WordDetect) match(s *Scan) bool {
	start := s.Progress.Offset
	if prev, ok := s.peek(start - 1); ok && !r.def.IsDelimiter(prev) {
		return false
	}
	if !s.matchString(r.runes, r.Insensitive) {
		return false
	}
	if next, ok := s.peek(s.Progress.Offset); ok && !r.def.IsDelimiter(next) {
		return false
	}
	return true
}

// KeywordRule matches a whole word from a keyword list.
type KeywordRule struct {
	RuleBase
	List        *KeywordList
	Insensitive bool
}

func (r *KeywordRule) match(s *Scan) bool {
	p := &s.Progress
	if prev, ok := s.peek(p.Offset - 1); ok && !r.def.IsDelimiter(prev) {
		return false
	}
	end := p.Offset
	for end < len(s.Text) && !r.def.IsDelimiter(s.Text[end]) {
		end++
	}
	if end == p.Offset {
		return false
	}
	word := string(s.Text[p.Offset:end])
	if r.Insensitive {
		word = s.fold.String(word)
	}
	if !r.List.Contains(word, r.Insensitive) {
		return false
	}
	p.Offset = end
	return true
}

// IntRule matches a decimal integer that does not start with 0.
type IntRule struct {
	RuleBase
}

func (r *IntRule) match(s *Scan) bool {
	p := &s.Progress
	// 09 must not be read as an integer following an invalid octal.
	if prev, ok := s.peek(p.Offset - 1); ok && isDigit(prev) {
		return false
	}
	c, ok := s.peek(p.Offset)
	if !ok || !isDigit(c) || c == '0' {
		return false
	}
	p.Offset++
	s.matchPredicate(isDigit)
	return true
}

// FloatRule matches a floating point literal: digits with a decimal point
// and/or an exponent.
type FloatRule struct {
	RuleBase
}

func (r *FloatRule) match(s *Scan) bool {
	p := &s.Progress
	integral := s.matchPredicate(isDigit)
	point := false
	if c, ok := s.peek(p.Offset); ok && c == '.' {
		p.Offset++
		point = true
	}
	fractional := s.matchPredicate(isDigit)

	exponent := false
	if c, ok := s.peek(p.Offset); ok && (c == 'e' || c == 'E') {
		mark := p.Offset
		p.Offset++
		if c, ok := s.peek(p.Offset); ok && (c == '+' || c == '-') {
			p.Offset++
		}
		if s.matchPredicate(isDigit) {
			exponent = true
		} else {
			p.Offset = mark
		}
	}
	return (integral || fractional) && (point || exponent)
}

// HlCOct matches a C octal literal with an optional L/U suffix.
type HlCOct struct {
	RuleBase
}

func (r *HlCOct) match(s *Scan) bool {
	if !s.matchCharacter(&r.RuleBase, '0') || !s.matchPredicate(isOctal) {
		return false
	}
	s.matchSuffix()
	return true
}

// HlCHex matches a C hexadecimal literal with an optional L/U suffix.
type HlCHex struct {
	RuleBase
}

func (r *HlCHex) match(s *Scan) bool {
	if !s.matchCharacter(&r.RuleBase, '0') {
		return false
	}
	c, ok := s.peek(s.Progress.Offset)
	if !ok || (c != 'x' && c != 'X') {
		return false
	}
	s.Progress.Offset++
	if !s.matchPredicate(isHex) {
		return false
	}
	s.matchSuffix()
	return true
}

func (s *Scan) matchSuffix() {
	if c, ok := s.peek(s.Progress.Offset); ok && strings.ContainsRune("lLuU", c) {
		s.Progress.Offset++
	}
}

// HlCStringChar matches a C escape sequence.
type HlCStringChar struct {
	RuleBase
}

func (r *HlCStringChar) match(s *Scan) bool {
	return s.matchEscapeSequence()
}

// HlCChar matches a C character literal such as 'a' or '\n'.
type HlCChar struct {
	RuleBase
}

func (r *HlCChar) match(s *Scan) bool {
	p := &s.Progress
	if !s.matchCharacter(&r.RuleBase, '\'') {
		return false
	}
	c, ok := s.peek(p.Offset)
	if !ok {
		return false
	}
	if c != '\\' && c != '\'' {
		p.Offset++
	} else if !s.matchEscapeSequence() {
		return false
	}
	return s.matchCharacter(&r.RuleBase, '\'')
}

func (s *Scan) matchEscapeSequence() bool {
	p := &s.Progress
	if c, ok := s.peek(p.Offset); !ok || c != '\\' {
		return false
	}
	c, ok := s.peek(p.Offset + 1)
	if !ok {
		return false
	}
	switch {
	case strings.ContainsRune("abefnrtv\"'?\\", c):
		p.Offset += 2
		return true
	case isOctal(c):
		p.Offset++
		for n := 0; n < 3; n++ {
			if c, ok := s.peek(p.Offset); !ok || !isOctal(c) {
				break
			}
			p.Offset++
		}
		return true
	case c == 'x' || c == 'X':
		start := p.Offset
		p.Offset += 2
		n := 0
		for ; n < 2; n++ {
			if c, ok := s.peek(p.Offset); !ok || !isHex(c) {
				break
			}
			p.Offset++
		}
		if n == 0 {
			p.Offset = start
			return false
		}
		return true
	}
	return false
}

// RangeDetect matches from Char up to and including the next Char1 on the
// same line.
type RangeDetect struct {
	RuleBase
	Char  rune
	Char1 rune
}

func (r *RangeDetect) match(s *Scan) bool {
	p := &s.Progress
	if !s.matchCharacter(&r.RuleBase, r.Char) {
		return false
	}
	for i := p.Offset; i < len(s.Text); i++ {
		if s.Text[i] == r.Char1 {
			p.Offset = i + 1
			return true
		}
	}
	return false
}

// LineContinue matches Char (a backslash by default) as the very last
// character of the line and flags the line as continuing.
type LineContinue struct {
	RuleBase
	Char rune
}

func (r *LineContinue) match(s *Scan) bool {
	p := &s.Progress
	if p.Offset != len(s.Text)-1 || s.Text[p.Offset] != r.Char {
		return false
	}
	p.Offset++
	p.WillContinueLine = true
	return true
}

// DetectSpaces matches a run of white space.
type DetectSpaces struct {
	RuleBase
}

func (r *DetectSpaces) match(s *Scan) bool {
	return s.matchPredicate(unicode.IsSpace)
}

// DetectIdentifier matches [A-Za-z_][A-Za-z0-9_]* with Unicode letters.
type DetectIdentifier struct {
	RuleBase
}

func (r *DetectIdentifier) match(s *Scan) bool {
	p := &s.Progress
	c, ok := s.peek(p.Offset)
	if !ok || !(unicode.IsLetter(c) || c == '_') {
		return false
	}
	p.Offset++
	s.matchPredicate(func(c rune) bool {
		return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
	})
	return true
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }
func isOctal(c rune) bool { return c >= '0' && c <= '7' }
func isHex(c rune) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
