package syntax

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

// Entry describes a registered language.
type Entry struct {
	Name       string
	Section    string
	Extensions []string // glob patterns, e.g. "*.c"
	MimeTypes  []string
	Priority   int
	Source     string
}

type entry struct {
	Entry
	open func() (*Document, error)

	def  *Definition
	refs int
}

// Registry maps language names, file names and mime types to definitions.
// Definitions are built lazily on first use and shared: every caller gets
// the same immutable *Definition until it is evicted.
type Registry struct {
	mu      sync.Mutex
	buildMu sync.Mutex
	entries []*entry

	evictUnused bool
	log         zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger for load diagnostics.
func WithRegistryLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = l
	}
}

// WithEvictUnused drops a built definition once its last Acquire is
// released. It is rebuilt on the next use.
func WithEvictUnused() RegistryOption {
	return func(r *Registry) {
		r.evictUnused = true
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterDocument adds a decoded definition. A later registration under the
// same name replaces the earlier one.
func (r *Registry) RegisterDocument(doc *Document, source string) {
	e := &entry{
		Entry: Entry{
			Name:       strings.TrimSpace(doc.Name),
			Section:    doc.Section,
			Extensions: splitList(doc.Extensions),
			MimeTypes:  splitList(doc.MimeType),
			Priority:   cast.ToInt(strings.TrimSpace(doc.Priority)),
			Source:     source,
		},
		open: func() (*Document, error) { return doc, nil },
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, old := range r.entries {
		if strings.EqualFold(old.Name, e.Name) {
			r.entries[i] = e
			return
		}
	}
	r.entries = append(r.entries, e)
}

// RegisterFile decodes the definition at path and registers it.
func (r *Registry) RegisterFile(path string) error {
	doc, err := ReadFile(path)
	if err != nil {
		return err
	}
	r.RegisterDocument(doc, path)
	return nil
}

// RegisterFS registers every definition file of fsys.
func (r *Registry) RegisterFS(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsDefinitionFile(path) {
			return nil
		}
		f, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		doc, err := Decode(f, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		r.RegisterDocument(doc, path)
		return nil
	})
}

// AddDir registers every definition found below dir and returns how many
// were added. Unreadable files are logged and skipped.
func (r *Registry) AddDir(dir string) (int, error) {
	files, err := collectDefinitionFiles(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range files {
		if err := r.RegisterFile(f.Abs); err != nil {
			r.log.Warn().Err(err).Str("file", f.Rel).Msg("skipping definition")
			continue
		}
		n++
	}
	return n, nil
}

func (r *Registry) find(name string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(name)
}

func (r *Registry) findLocked(name string) *entry {
	for _, e := range r.entries {
		if strings.EqualFold(e.Name, name) {
			return e
		}
	}
	return nil
}

// Definition returns the built definition for name. It implements Resolver.
func (r *Registry) Definition(name string) (*Definition, error) {
	def, _, err := r.get(name, false)
	return def, err
}

// Acquire returns the definition for name and a release func. The
// definition stays cached while at least one acquirer holds it.
func (r *Registry) Acquire(name string) (*Definition, func(), error) {
	def, e, err := r.get(name, true)
	if err != nil {
		return nil, nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			e.refs--
			if e.refs == 0 && r.evictUnused {
				e.def = nil
				r.log.Debug().Str("language", e.Name).Msg("definition evicted")
			}
		})
	}
	return def, release, nil
}

// get returns the definition of name, building it when needed. With acquire
// set the reference is counted in the same critical section that reads the
// definition off its entry.
func (r *Registry) get(name string, acquire bool) (*Definition, *entry, error) {
	r.mu.Lock()
	e := r.findLocked(name)
	if e != nil && e.def != nil {
		if acquire {
			e.refs++
		}
		def := e.def
		r.mu.Unlock()
		return def, e, nil
	}
	r.mu.Unlock()
	if e == nil {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownLanguage, name)
	}

	r.buildMu.Lock()
	defer r.buildMu.Unlock()
	s := &loadSession{
		pending: make(map[*entry]*builder),
		group:   make(map[*Definition]*builder),
	}
	if _, err := r.load(e, s); err != nil {
		return nil, nil, err
	}
	r.publish(s)

	r.mu.Lock()
	defer r.mu.Unlock()
	if acquire {
		e.refs++
	}
	return e.def, e, nil
}

// Refs returns how many acquirers hold the definition of name.
func (r *Registry) Refs(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.findLocked(name); e != nil {
		return e.refs
	}
	return 0
}

// loadSession collects the definitions built for one lookup. Definitions
// that reference each other switch into each other's allocated contexts
// while their rules are resolved, and are expanded and published together.
type loadSession struct {
	entries []*entry
	pending map[*entry]*builder
	group   map[*Definition]*builder
}

// load resolves e with buildMu held and returns its definition, which is
// incomplete until the session is published.
func (r *Registry) load(e *entry, s *loadSession) (*Definition, error) {
	r.mu.Lock()
	def := e.def
	r.mu.Unlock()
	if def != nil {
		return def, nil
	}
	if b, ok := s.pending[e]; ok {
		return b.def, nil
	}

	doc, err := e.open()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", e.Name, err)
	}
	b := newBuilder(doc, WithResolver(nestedResolver{r: r, s: s}))
	b.group = s.group
	s.group[b.def] = b
	s.pending[e] = b
	s.entries = append(s.entries, e)
	b.resolve()
	return b.def, nil
}

// publish finishes every definition of s and caches it on its entry.
func (r *Registry) publish(s *loadSession) {
	for _, e := range s.entries {
		s.pending[e].expandAll()
	}
	for _, e := range s.entries {
		def := s.pending[e].def
		if def.Broken() {
			r.log.Warn().Str("language", e.Name).Err(def.Err()).Msg("definition has problems")
		} else {
			r.log.Debug().Str("language", e.Name).Int("contexts", len(def.Contexts())).Msg("definition built")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range s.entries {
		e.def = s.pending[e].def
	}
}

type nestedResolver struct {
	r *Registry
	s *loadSession
}

func (n nestedResolver) Definition(name string) (*Definition, error) {
	e := n.r.find(name)
	if e == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownLanguage, name)
	}
	return n.r.load(e, n.s)
}

// DetectLanguage returns the entry whose extension patterns match filename,
// preferring higher priorities, or nil if none does.
func (r *Registry) DetectLanguage(filename string) *Entry {
	base := filepath.Base(filename)
	return r.best(func(e *entry) bool {
		for _, pattern := range e.Extensions {
			if ok, _ := filepath.Match(pattern, base); ok {
				return true
			}
		}
		return false
	})
}

// DetectLanguageByMimeType returns the entry declaring mime, or nil.
func (r *Registry) DetectLanguageByMimeType(mime string) *Entry {
	return r.best(func(e *entry) bool {
		for _, m := range e.MimeTypes {
			if strings.EqualFold(m, mime) {
				return true
			}
		}
		return false
	})
}

func (r *Registry) best(pred func(*entry) bool) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *entry
	for _, e := range r.entries {
		if pred(e) && (found == nil || e.Priority > found.Priority) {
			found = e
		}
	}
	if found == nil {
		return nil
	}
	out := found.Entry
	return &out
}

// AllLanguages returns the registered entries sorted by name.
func (r *Registry) AllLanguages() []Entry {
	r.mu.Lock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Entry)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
