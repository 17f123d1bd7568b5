package syntax

import "strconv"

// Transition is a context switch instruction: pop Pops contexts, then push
// Push when it is non-nil. The zero value is "#stay".
type Transition struct {
	Pops int
	Push *Context
}

// Stay reports whether t leaves the context stack untouched.
func (t Transition) Stay() bool {
	return t.Pops == 0 && t.Push == nil
}

func (t Transition) String() string {
	if t.Stay() {
		return "#stay"
	}
	s := ""
	for i := 0; i < t.Pops; i++ {
		s += "#pop"
	}
	if t.Push != nil {
		if s != "" {
			s += "!"
		}
		s += t.Push.Name
	}
	return s
}

// Context is a named lexing state. Contexts are owned by their Definition
// and never change after Build; rules refer to them by pointer, which keeps
// recursive graphs (A pushes B pushes A) plain data.
type Context struct {
	Name  string
	Index int

	def   *Definition
	ident string

	Item *ItemData // nil means Normal

	LineBegin   Transition
	LineEnd     Transition
	LineEmpty   Transition
	Fallthrough bool
	FallTo      Transition
	Dynamic     bool

	Rules []Rule
}

// Definition returns the definition owning c.
func (c *Context) Definition() *Definition { return c.def }

// Ident is a short identity unique among all definitions of a registry,
// suitable as a piece of a canonical context sequence.
func (c *Context) Ident() string { return c.ident }

// Persistent reports whether the context survives the end of a line.
func (c *Context) Persistent() bool { return c.LineEnd.Stay() }

// Format returns the format applied to text the rules do not claim.
func (c *Context) Format() FormatID {
	if c.Item == nil {
		return Normal
	}
	return c.Item.Format
}

func newContext(def *Definition, name string, index int) *Context {
	return &Context{
		Name:  name,
		Index: index,
		def:   def,
		ident: def.name + "/" + strconv.Itoa(index),
	}
}
