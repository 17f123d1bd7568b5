package syntax

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cast"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Resolver gives access to other definitions for Context##Language switches
// and IncludeRules ##Language.
type Resolver interface {
	Definition(name string) (*Definition, error)
}

// BuildOption configures Build.
type BuildOption func(*builder)

// WithResolver sets the resolver used for cross-language references.
// Without one, such references are reported as problems.
func WithResolver(r Resolver) BuildOption {
	return func(b *builder) {
		b.resolver = r
	}
}

type builder struct {
	def      *Definition
	doc      *Document
	resolver Resolver

	specs    map[*Context]*ContextSpec
	expanded map[*Context]bool

	// group holds the builders of definitions built together, keyed by
	// definition. Contexts of a definition outside the group are complete.
	group map[*Definition]*builder
}

// includeRules is the load-time placeholder of an IncludeRules element; it
// is replaced by the rules of its target before Build returns.
type includeRules struct {
	RuleBase
	target        *Context
	includeAttrib bool
}

func (r *includeRules) match(*Scan) bool { return false }

// Build resolves a decoded document into an immutable Definition. Build
// never fails: unresolved context names, include cycles and malformed
// rules are collected as problems and mark the definition broken.
func Build(doc *Document, opts ...BuildOption) *Definition {
	b := newBuilder(doc, opts...)
	b.resolve()
	b.expandAll()
	return b.def
}

// newBuilder allocates the definition and all of its contexts without
// resolving any rule, so other definitions can already switch into them.
func newBuilder(doc *Document, opts ...BuildOption) *builder {
	def := &Definition{
		name:          strings.TrimSpace(doc.Name),
		section:       doc.Section,
		version:       doc.Version,
		extensions:    splitList(doc.Extensions),
		mimeTypes:     splitList(doc.MimeType),
		priority:      cast.ToInt(doc.Priority),
		caseSensitive: true,
		byName:        orderedmap.New[string, *Context](),
		itemDatas:     orderedmap.New[string, *ItemData](),
		lists:         make(map[string]*KeywordList),
	}
	b := &builder{
		def:      def,
		doc:      doc,
		specs:    make(map[*Context]*ContextSpec),
		expanded: make(map[*Context]bool),
	}
	b.group = map[*Definition]*builder{def: b}
	for _, opt := range opts {
		opt(b)
	}
	if def.name == "" {
		b.problem("", "", fmt.Errorf("%w: language has no name", ErrMalformedRule))
	}

	b.general()
	b.itemDatas()
	for _, l := range doc.Highlighting.Lists {
		def.lists[l.Name] = newKeywordList(l.Name, l.Items)
	}

	// Contexts first, so switches can name contexts declared later.
	for i := range doc.Highlighting.Contexts {
		spec := &doc.Highlighting.Contexts[i]
		if _, dup := def.byName.Get(spec.Name); dup {
			b.problem(spec.Name, "", fmt.Errorf("%w: duplicate context", ErrMalformedRule))
			continue
		}
		ctx := newContext(def, spec.Name, len(def.contexts))
		def.contexts = append(def.contexts, ctx)
		def.byName.Set(spec.Name, ctx)
		b.specs[ctx] = spec
	}
	return b
}

// resolve builds the rules and transitions of every context.
func (b *builder) resolve() {
	for _, ctx := range b.def.contexts {
		b.context(ctx, b.specs[ctx])
	}
}

// expandAll inlines IncludeRules. Builders of one group must all be
// resolved first, as includes may cross into each other's contexts.
func (b *builder) expandAll() {
	for _, ctx := range b.def.contexts {
		b.expand(ctx, map[*Context]bool{})
	}
}

func (b *builder) problem(context, rule string, err error) {
	b.def.problems = append(b.def.problems, &DefinitionError{
		Language: b.def.name,
		Context:  context,
		Rule:     rule,
		Err:      err,
	})
}

func (b *builder) general() {
	def, doc := b.def, b.doc
	if cs := doc.General.Keywords.CaseSensitive; cs != "" {
		def.caseSensitive = flag(cs)
	} else if doc.CaseSensitive != "" {
		def.caseSensitive = flag(doc.CaseSensitive)
	}
	def.indentationSensitive = flag(doc.General.Folding.IndentationSensitive)

	def.delimiters = make(map[rune]struct{}, len(defaultDelimiters))
	for _, r := range defaultDelimiters {
		def.delimiters[r] = struct{}{}
	}
	for _, r := range doc.General.Keywords.WeakDeliminator {
		delete(def.delimiters, r)
	}
	for _, r := range doc.General.Keywords.AdditionalDeliminator {
		def.delimiters[r] = struct{}{}
	}
}

func (b *builder) itemDatas() {
	for _, spec := range b.doc.Highlighting.ItemDatas {
		item := &ItemData{
			Name:   spec.Name,
			Style:  spec.DefStyle,
			Format: KateFormat(spec.DefStyle),
		}
		custom := &ItemStyle{
			Bold:      optionalFlag(spec.Bold),
			Italic:    optionalFlag(spec.Italic),
			Underline: optionalFlag(spec.Underline),
			StrikeOut: optionalFlag(spec.StrikeOut),
		}
		if spec.Color != "" {
			if c, err := colorful.Hex(spec.Color); err == nil {
				custom.Color = &c
			}
		}
		if custom.Color != nil || custom.Bold != nil || custom.Italic != nil ||
			custom.Underline != nil || custom.StrikeOut != nil {
			item.Custom = custom
		}
		b.def.itemDatas.Set(spec.Name, item)
	}
}

// item resolves an attribute name. Unknown names format as Normal, as some
// published definitions reference itemDatas they never declare.
func (b *builder) item(name string) *ItemData {
	if name == "" {
		return nil
	}
	if it, ok := b.def.itemDatas.Get(name); ok {
		return it
	}
	return &ItemData{Name: name, Format: Normal}
}

func (b *builder) context(ctx *Context, spec *ContextSpec) {
	var err error
	ctx.Item = b.item(spec.Attribute)
	ctx.Dynamic = flag(spec.Dynamic)
	ctx.Fallthrough = flag(spec.Fallthrough)

	if ctx.LineEnd, err = b.transition(spec.LineEndContext); err != nil {
		b.problem(ctx.Name, "lineEndContext", err)
	}
	if ctx.LineBegin, err = b.transition(spec.LineBeginContext); err != nil {
		b.problem(ctx.Name, "lineBeginContext", err)
	}
	if ctx.LineEmpty, err = b.transition(spec.LineEmptyContext); err != nil {
		b.problem(ctx.Name, "lineEmptyContext", err)
	}
	if ctx.Fallthrough {
		if ctx.FallTo, err = b.transition(spec.FallthroughContext); err != nil {
			b.problem(ctx.Name, "fallthroughContext", err)
		}
		if ctx.FallTo.Stay() {
			ctx.Fallthrough = false
		}
	}

	for i := range spec.Rules {
		if r := b.rule(ctx, &spec.Rules[i]); r != nil {
			ctx.Rules = append(ctx.Rules, r)
		}
	}
}

// transition parses "#stay", "#pop#pop", "#pop!Name", "Name", "Name##Lang"
// and "##Lang".
func (b *builder) transition(spec string) (Transition, error) {
	spec = strings.TrimSpace(spec)
	var t Transition
	if spec == "" || spec == "#stay" {
		return t, nil
	}
	rest := spec
	for strings.HasPrefix(rest, "#pop") {
		t.Pops++
		rest = rest[len("#pop"):]
	}
	if t.Pops > 0 {
		if rest == "" {
			return t, nil
		}
		if rest[0] != '!' {
			return Transition{}, fmt.Errorf("%w: bad context switch %q", ErrMalformedRule, spec)
		}
		rest = rest[1:]
	}
	target, err := b.lookup(rest)
	if err != nil {
		return Transition{}, err
	}
	t.Push = target
	return t, nil
}

func (b *builder) lookup(name string) (*Context, error) {
	ctxName, lang, cross := strings.Cut(name, "##")
	if !cross || lang == b.def.name {
		if cross && ctxName == "" {
			if ctx := b.def.DefaultContext(); ctx != nil {
				return ctx, nil
			}
		}
		if ctx, ok := b.def.byName.Get(ctxName); ok {
			return ctx, nil
		}
		return nil, fmt.Errorf("%w %q", ErrUnresolvedContext, name)
	}

	if b.resolver == nil {
		return nil, fmt.Errorf("%w %q: no resolver for language %q", ErrUnresolvedContext, name, lang)
	}
	other, err := b.resolver.Definition(lang)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrUnresolvedContext, name, err)
	}
	if ctxName == "" {
		if ctx := other.DefaultContext(); ctx != nil {
			return ctx, nil
		}
	} else if ctx, ok := other.Context(ctxName); ok {
		return ctx, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnresolvedContext, name)
}

func (b *builder) rule(ctx *Context, spec *RuleSpec) Rule {
	base := newRuleBase(b.def, spec.Kind)
	base.Item = b.item(spec.param("attribute"))
	base.BeginRegion = spec.param("beginRegion")
	base.EndRegion = spec.param("endRegion")
	base.LookAhead = flag(spec.param("lookAhead"))
	base.FirstNonSpace = flag(spec.param("firstNonSpace"))
	base.Dynamic = flag(spec.param("dynamic"))
	if col := spec.param("column"); col != "" {
		n, err := cast.ToIntE(col)
		if err != nil || n < 0 {
			b.problem(ctx.Name, spec.Kind, fmt.Errorf("%w: bad column %q", ErrMalformedRule, col))
			return nil
		}
		base.Column = n
	}
	var err error
	if base.Context, err = b.transition(spec.param("context")); err != nil {
		b.problem(ctx.Name, spec.Kind, err)
		return nil
	}

	insensitive := flag(spec.param("insensitive"))
	malformed := func(format string, args ...any) Rule {
		b.problem(ctx.Name, spec.Kind, fmt.Errorf("%w: "+format, append([]any{ErrMalformedRule}, args...)...))
		return nil
	}

	var r Rule
	switch spec.Kind {
	case "DetectChar":
		c, ok := oneRune(spec.param("char"))
		if !ok {
			return malformed("char must be one character")
		}
		rule := &DetectChar{RuleBase: base, Char: c}
		if base.Dynamic && isDigit(c) {
			rule.Capture = int(c - '0')
		} else {
			rule.Dynamic = false
		}
		r = rule
	case "Detect2Chars":
		c, ok := oneRune(spec.param("char"))
		c1, ok1 := oneRune(spec.param("char1"))
		if !ok || !ok1 {
			return malformed("char and char1 must be one character each")
		}
		r = &Detect2Chars{RuleBase: base, Char: c, Char1: c1}
	case "AnyChar":
		set := spec.param("String")
		if set == "" {
			return malformed("empty String")
		}
		r = &AnyChar{RuleBase: base, Set: set}
	case "StringDetect":
		str := spec.param("String")
		if str == "" {
			return malformed("empty String")
		}
		r = &StringDetect{RuleBase: base, Str: str, Insensitive: insensitive, runes: []rune(str)}
	case "WordDetect":
		str := spec.param("String")
		if str == "" {
			return malformed("empty String")
		}
		r = &WordDetect{RuleBase: base, Str: str, Insensitive: insensitive, runes: []rune(str)}
	case "RegExpr":
		pattern := spec.param("String")
		if pattern == "" {
			return malformed("empty String")
		}
		rule := &RegExpr{
			RuleBase:    base,
			Pattern:     pattern,
			Insensitive: insensitive,
			Minimal:     flag(spec.param("minimal")),
		}
		if !rule.Dynamic {
			if rule.re, err = compileRegexp(pattern, rule.Insensitive, rule.Minimal); err != nil {
				return malformed("%v", err)
			}
		}
		r = rule
	case "keyword":
		list, ok := b.def.lists[spec.param("String")]
		if !ok {
			return malformed("unknown keyword list %q", spec.param("String"))
		}
		rule := &KeywordRule{RuleBase: base, List: list, Insensitive: !b.def.caseSensitive}
		if v := spec.param("insensitive"); v != "" {
			rule.Insensitive = flag(v)
		}
		r = rule
	case "Int":
		r = &IntRule{RuleBase: base}
	case "Float":
		r = &FloatRule{RuleBase: base}
	case "HlCOct":
		r = &HlCOct{RuleBase: base}
	case "HlCHex":
		r = &HlCHex{RuleBase: base}
	case "HlCStringChar":
		r = &HlCStringChar{RuleBase: base}
	case "HlCChar":
		r = &HlCChar{RuleBase: base}
	case "RangeDetect":
		c, ok := oneRune(spec.param("char"))
		c1, ok1 := oneRune(spec.param("char1"))
		if !ok || !ok1 {
			return malformed("char and char1 must be one character each")
		}
		r = &RangeDetect{RuleBase: base, Char: c, Char1: c1}
	case "LineContinue":
		c := '\\'
		if v := spec.param("char"); v != "" {
			var ok bool
			if c, ok = oneRune(v); !ok {
				return malformed("char must be one character")
			}
		}
		r = &LineContinue{RuleBase: base, Char: c}
	case "DetectSpaces":
		base.consumesNonSpace = false
		r = &DetectSpaces{RuleBase: base}
	case "DetectIdentifier":
		r = &DetectIdentifier{RuleBase: base}
	case "IncludeRules":
		target, err := b.lookup(spec.param("context"))
		if err != nil {
			b.problem(ctx.Name, spec.Kind, err)
			return nil
		}
		base.Context = Transition{}
		return &includeRules{
			RuleBase:      base,
			target:        target,
			includeAttrib: flag(spec.param("includeAttrib")),
		}
	default:
		return malformed("unknown rule kind %q", spec.Kind)
	}

	rb := r.Base()
	for i := range spec.Children {
		if child := b.rule(ctx, &spec.Children[i]); child != nil {
			if _, inc := child.(*includeRules); inc {
				b.problem(ctx.Name, spec.Kind, fmt.Errorf("%w: IncludeRules cannot be a child rule", ErrMalformedRule))
				continue
			}
			rb.Children = append(rb.Children, child)
		}
	}
	return r
}

// expand replaces IncludeRules placeholders with the rules of their target,
// depth first, reporting cycles. Targets in another definition of the group
// are expanded by that definition's builder.
func (b *builder) expand(ctx *Context, visiting map[*Context]bool) {
	if ctx.def != b.def {
		if owner := b.group[ctx.def]; owner != nil {
			owner.expand(ctx, visiting)
		}
		return
	}
	if b.expanded[ctx] {
		return
	}
	visiting[ctx] = true
	defer delete(visiting, ctx)

	rules := make([]Rule, 0, len(ctx.Rules))
	for _, r := range ctx.Rules {
		inc, ok := r.(*includeRules)
		if !ok {
			rules = append(rules, r)
			continue
		}
		if visiting[inc.target] {
			b.problem(ctx.Name, "IncludeRules", fmt.Errorf("%w via %q", ErrIncludeCycle, inc.target.Name))
			continue
		}
		b.expand(inc.target, visiting)
		rules = append(rules, inc.target.Rules...)
		if inc.includeAttrib {
			ctx.Item = inc.target.Item
		}
	}
	ctx.Rules = rules
	b.expanded[ctx] = true
}

func oneRune(s string) (rune, bool) {
	rs := []rune(s)
	if len(rs) != 1 {
		return 0, false
	}
	return rs[0], true
}

func flag(s string) bool {
	return cast.ToBool(strings.TrimSpace(s))
}

func optionalFlag(s string) *bool {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v := flag(s)
	return &v
}
