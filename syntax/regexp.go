package syntax

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// regexpTimeout bounds a single regular expression match. A match that
// times out counts as a failed match.
const regexpTimeout = 250 * time.Millisecond

// RegExpr matches a regular expression anchored at the current offset.
type RegExpr struct {
	RuleBase
	Pattern     string
	Insensitive bool
	Minimal     bool

	re *regexp2.Regexp
}

func (r *RegExpr) match(s *Scan) bool {
	re := r.re
	if r.Dynamic {
		re = s.dynamicRegexp(r)
	}
	if re == nil {
		return false
	}
	p := &s.Progress
	m, err := re.FindRunesMatchStartingAt(s.Text, p.Offset)
	if err != nil || m == nil || m.Index != p.Offset {
		return false
	}
	groups := m.Groups()
	captures := make([]string, len(groups))
	for i := range groups {
		captures[i] = groups[i].String()
	}
	p.Captures = captures
	p.Offset += m.Length
	return true
}

func (s *Scan) dynamicRegexp(r *RegExpr) *regexp2.Regexp {
	pattern := replaceCaptures(r.Pattern, s.Captures, regexp2.Escape)
	key := pattern
	if r.Insensitive {
		key = "i:" + key
	}
	if r.Minimal {
		key = "m:" + key
	}
	if re, ok := s.dynamic[key]; ok {
		return re
	}
	re, err := compileRegexp(pattern, r.Insensitive, r.Minimal)
	if err != nil {
		re = nil
	}
	if len(s.dynamic) >= dynamicCacheLimit {
		clear(s.dynamic)
	}
	s.dynamic[key] = re
	return re
}

func compileRegexp(pattern string, insensitive, minimal bool) (*regexp2.Regexp, error) {
	if minimal {
		pattern = lazyQuantifiers(pattern)
	}
	opts := regexp2.None
	if insensitive {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(`\G(?:`+pattern+`)`, opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = regexpTimeout
	return re, nil
}

// lazyQuantifiers rewrites greedy quantifiers into their lazy form, which
// is how Kate's minimal="true" attribute behaves.
func lazyQuantifiers(pattern string) string {
	rs := []rune(pattern)
	var b strings.Builder
	inClass := false
	for i := 0; i < len(rs); i++ {
		c := rs[i]
		b.WriteRune(c)
		if c == '\\' {
			if i+1 < len(rs) {
				i++
				b.WriteRune(rs[i])
			}
			continue
		}
		if inClass {
			if c == ']' {
				inClass = false
			}
			continue
		}
		if c == '[' {
			inClass = true
			if i+1 < len(rs) && rs[i+1] == '^' {
				i++
				b.WriteRune(rs[i])
			}
			if i+1 < len(rs) && rs[i+1] == ']' {
				i++
				b.WriteRune(rs[i])
			}
			continue
		}

		quantifier := false
		switch c {
		case '*', '+':
			quantifier = true
		case '?':
			quantifier = i > 0 && rs[i-1] != '('
		case '}':
			quantifier = closesRepeat(rs, i)
		}
		if !quantifier {
			continue
		}
		if i+1 < len(rs) && (rs[i+1] == '?' || rs[i+1] == '+') {
			i++
			b.WriteRune(rs[i])
			continue
		}
		b.WriteRune('?')
	}
	return b.String()
}

// closesRepeat reports whether the brace at end closes a {n}, {n,} or
// {n,m} repeat.
func closesRepeat(rs []rune, end int) bool {
	digits := 0
	for i := end - 1; i >= 0; i-- {
		switch {
		case rs[i] == '{':
			return digits > 0 && (i == 0 || rs[i-1] != '\\')
		case isDigit(rs[i]):
			digits++
		case rs[i] == ',':
		default:
			return false
		}
	}
	return false
}
