package highlight

import (
	"github.com/odvcencio/genhl/syntax"
)

// iterateThroughRules evaluates rules in declared order at the current
// offset; the first rule that matches wins. Top-level evaluation restarts
// from the first rule after every match and returns on a context change;
// child rules stop at their first match. When nothing matches the context
// falls through, or formats one character and advances.
func (h *Highlighter) iterateThroughRules(childRule bool, rules []syntax.Rule) {
	p := &h.scan.Progress
	for i := 0; i < len(rules) && p.Offset < h.length; i++ {
		matched, changed := h.applyRule(rules[i], childRule)
		if !matched {
			continue
		}
		if childRule || changed {
			return
		}
		i = -1
	}
	if childRule || p.Offset >= h.length {
		return
	}
	h.noMatch()
}

// applyRule runs one rule. It reports whether the rule matched and whether
// the context stack changed as a result.
func (h *Highlighter) applyRule(rule syntax.Rule, childRule bool) (matched, changed bool) {
	p := &h.scan.Progress
	start := p.Offset
	if !syntax.Match(rule, h.scan) {
		return false, false
	}
	if !childRule && p.Offset == start && h.repeatedEmptyMatch(rule) {
		h.forceAdvance()
		return true, true
	}

	rb := rule.Base()
	ctx := h.top().ctx
	captures := p.Captures
	if !h.IndentationBasedFolding() {
		h.applyRegions(rb)
	}
	p.ClearBracesMatches()

	if p.WillContinueLine {
		h.willContinue = true
		p.WillContinueLine = false
	} else {
		if len(rb.Children) > 0 {
			h.iterateThroughRules(true, rb.Children)
		}
		if !rb.Context.Stay() {
			h.changeContext(rb.Context, captures)
			changed = true
		}
	}

	// Child rules are formatted as part of their parent, lookahead rules
	// not at all.
	if !childRule && !rb.LookAhead {
		item := rb.Item
		if item == nil {
			item = ctx.Item
		}
		h.applyFormat(start, p.Offset-start, item)
	}
	return true, changed
}

// repeatedEmptyMatch records rule as having matched without consuming text
// at the current offset, and reports whether it already had. The same rule
// matching empty twice at one offset means the engine is looping.
func (h *Highlighter) repeatedEmptyMatch(rule syntax.Rule) bool {
	h.resetLoopGuard()
	for _, r := range h.emptyRules {
		if r == rule {
			return true
		}
	}
	h.emptyRules = append(h.emptyRules, rule)
	return false
}

func (h *Highlighter) resetLoopGuard() {
	if off := h.scan.Progress.Offset; h.emptyAt != off {
		h.emptyAt = off
		h.emptyRules = h.emptyRules[:0]
		h.fellThrough = h.fellThrough[:0]
	}
}

// noMatch handles an offset no rule claims: the context's fallthrough
// switch, taken at most once per context and offset, or one character in
// the context's format.
func (h *Highlighter) noMatch() {
	ctx := h.top().ctx
	if ctx.Fallthrough {
		h.resetLoopGuard()
		seen := false
		for _, c := range h.fellThrough {
			if c == ctx {
				seen = true
				break
			}
		}
		if !seen {
			h.fellThrough = append(h.fellThrough, ctx)
			h.changeContext(ctx.FallTo, nil)
			return
		}
	}
	h.forceAdvance()
}

// forceAdvance formats the next character with the current context's
// format and moves past it.
func (h *Highlighter) forceAdvance() {
	p := &h.scan.Progress
	if p.OnlySpacesSoFar && !isSpace(h.scan.Text[p.Offset]) {
		p.OnlySpacesSoFar = false
	}
	h.applyFormat(p.Offset, 1, h.top().ctx.Item)
	p.Offset++
}

// applyRegions tracks folding regions opened and closed by rule. A closing
// rule only closes the innermost region of the same name; regions restored
// from a bare packed state have no name and match any.
func (h *Highlighter) applyRegions(rb *syntax.RuleBase) {
	p := &h.scan.Progress
	if rb.EndRegion != "" {
		closed := false
		if n := len(h.regions); n > 0 && h.regions[n-1] == rb.EndRegion {
			h.regions = h.regions[:n-1]
			closed = true
		} else if n == 0 && h.unnamed > 0 {
			h.unnamed--
			closed = true
		}
		if closed && p.ClosingBraceMatchAtNonEnd {
			h.foldDelta--
		}
	}
	if rb.BeginRegion != "" {
		h.regions = append(h.regions, rb.BeginRegion)
		if p.OpeningBraceMatchAtFirstNonSpace {
			h.foldDelta++
		}
	}
}
