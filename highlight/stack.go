package highlight

import (
	"strconv"
	"strings"

	"github.com/odvcencio/genhl/syntax"
)

// frame is one entry of the context stack. Dynamic contexts carry the
// captures of the match that pushed them.
type frame struct {
	ctx      *syntax.Context
	captures []string
}

// stateTables memoizes context sequences. Ids are allocated once and never
// reassigned, so a packed state decodes to the same stack for the lifetime
// of the highlighter. Nothing is ever evicted.
type stateTables struct {
	persistent map[string]ObservableState
	sequences  [][]frame // indexed by id - PersistentsStart
	leading    map[string]ObservableState
	capacity   int
}

func newStateTables(capacity int) *stateTables {
	limit := int(MaxPersistentID - PersistentsStart + 1)
	if capacity <= 0 || capacity > limit {
		capacity = limit
	}
	return &stateTables{
		persistent: make(map[string]ObservableState),
		leading:    make(map[string]ObservableState),
		capacity:   capacity,
	}
}

// sequenceKey canonicalizes a stack: context identities, plus the quoted
// captures of dynamic frames.
func sequenceKey(frames []frame) string {
	var b strings.Builder
	for i, f := range frames {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(f.ctx.Ident())
		if f.ctx.Dynamic {
			b.WriteByte('(')
			for j, c := range f.captures {
				if j > 0 {
					b.WriteByte(',')
				}
				b.WriteString(strconv.Quote(c))
			}
			b.WriteByte(')')
		}
	}
	return b.String()
}

// currentContextSequence returns the key of the active stack.
func (h *Highlighter) currentContextSequence() string {
	return sequenceKey(h.contexts)
}

// mapPersistentSequence returns the id of key, allocating the next one for
// a sequence not seen before. It reports false once the table is full.
func (h *Highlighter) mapPersistentSequence(key string) (ObservableState, bool) {
	t := h.tables
	if id, ok := t.persistent[key]; ok {
		return id, true
	}
	if len(t.sequences) >= t.capacity {
		if !h.exhausted {
			h.exhausted = true
			h.log.Warn().
				Str("language", h.def.Name()).
				Int("capacity", t.capacity).
				Msg("persistent state table is full, lines degrade to the default context")
		}
		return Default, false
	}
	id := PersistentsStart + ObservableState(len(t.sequences))
	t.persistent[key] = id
	t.sequences = append(t.sequences, append([]frame(nil), h.contexts...))
	return id, true
}

// mapLeadingSequence records the observable state that was current when key
// was first left through a push.
func (h *Highlighter) mapLeadingSequence(key string) {
	if _, ok := h.tables.leading[key]; !ok {
		h.tables.leading[key] = h.observable
	}
}

// pushContextSequence rebuilds the stack stored under id. Unknown ids come
// from another highlighter or a stale block: the line falls back to the
// default context.
func (h *Highlighter) pushContextSequence(id ObservableState) bool {
	i := int(id - PersistentsStart)
	if id < PersistentsStart || i >= len(h.tables.sequences) {
		h.log.Debug().
			Str("language", h.def.Name()).
			Int("state", int(id)).
			Msg("unknown persistent state, restarting from the default context")
		h.setupDefault()
		return false
	}
	h.contexts = append(h.contexts[:0], h.tables.sequences[i]...)
	return true
}

// pushDynamicContext pushes ctx bound to captures. Each distinct capture
// binding yields a distinct sequence key.
func (h *Highlighter) pushDynamicContext(ctx *syntax.Context, captures []string) {
	h.contexts = append(h.contexts, frame{ctx: ctx, captures: captures})
}

func (h *Highlighter) top() frame {
	return h.contexts[len(h.contexts)-1]
}

func (h *Highlighter) setupDefault() {
	h.contexts = append(h.contexts[:0], frame{ctx: h.def.DefaultContext()})
}

// isDefaultSequence reports whether the stack holds only the default context.
func (h *Highlighter) isDefaultSequence() bool {
	return len(h.contexts) == 1 && h.contexts[0].ctx == h.def.DefaultContext()
}

// changeContext applies a transition. The bottom context is never popped.
func (h *Highlighter) changeContext(t syntax.Transition, captures []string) {
	if t.Pops > 0 {
		n := min(t.Pops, len(h.contexts)-1)
		h.contexts = h.contexts[:len(h.contexts)-n]
		if h.observable >= PersistentsStart || h.observable == Continued {
			key := h.currentContextSequence()
			if id, ok := h.tables.persistent[key]; ok {
				h.observable = id
			} else if lead, ok := h.tables.leading[key]; ok {
				h.observable = lead
			} else {
				h.observable = Default
			}
		}
	}

	if t.Push != nil {
		if h.observable < PersistentsStart {
			h.mapLeadingSequence(h.currentContextSequence())
		}
		if t.Push.Dynamic {
			h.pushDynamicContext(t.Push, captures)
		} else {
			h.contexts = append(h.contexts, frame{ctx: t.Push})
		}
		if t.Push.Persistent() {
			if id, ok := h.mapPersistentSequence(h.currentContextSequence()); ok {
				h.observable = id
			}
		}
	}
	h.scan.Captures = h.top().captures
}
