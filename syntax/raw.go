package syntax

import (
	"encoding/xml"
	"strings"
)

// Document is the decoded, unresolved form of a language definition. Kate
// XML files and their YAML rendering decode into the same structure.
type Document struct {
	XMLName       xml.Name     `xml:"language" yaml:"-"`
	Name          string       `xml:"name,attr" yaml:"name"`
	Section       string       `xml:"section,attr" yaml:"section,omitempty"`
	Version       string       `xml:"version,attr" yaml:"version,omitempty"`
	Extensions    string       `xml:"extensions,attr" yaml:"extensions,omitempty"`
	MimeType      string       `xml:"mimetype,attr" yaml:"mimetype,omitempty"`
	Priority      string       `xml:"priority,attr" yaml:"priority,omitempty"`
	CaseSensitive string       `xml:"casesensitive,attr" yaml:"casesensitive,omitempty"`
	Highlighting  Highlighting `xml:"highlighting" yaml:"highlighting"`
	General       General      `xml:"general" yaml:"general,omitempty"`
}

type Highlighting struct {
	Lists     []List        `xml:"list" yaml:"lists,omitempty"`
	Contexts  []ContextSpec `xml:"contexts>context" yaml:"contexts"`
	ItemDatas []ItemSpec    `xml:"itemDatas>itemData" yaml:"itemDatas,omitempty"`
}

type List struct {
	Name  string   `xml:"name,attr" yaml:"name"`
	Items []string `xml:"item" yaml:"items"`
}

type ContextSpec struct {
	Name               string     `xml:"name,attr" yaml:"name"`
	Attribute          string     `xml:"attribute,attr" yaml:"attribute,omitempty"`
	LineEndContext     string     `xml:"lineEndContext,attr" yaml:"lineEndContext,omitempty"`
	LineBeginContext   string     `xml:"lineBeginContext,attr" yaml:"lineBeginContext,omitempty"`
	LineEmptyContext   string     `xml:"lineEmptyContext,attr" yaml:"lineEmptyContext,omitempty"`
	Fallthrough        string     `xml:"fallthrough,attr" yaml:"fallthrough,omitempty"`
	FallthroughContext string     `xml:"fallthroughContext,attr" yaml:"fallthroughContext,omitempty"`
	Dynamic            string     `xml:"dynamic,attr" yaml:"dynamic,omitempty"`
	Rules              []RuleSpec `xml:",any" yaml:"rules,omitempty"`
}

// RuleSpec is a rule element: its kind (the XML element name) plus
// attributes, and nested child rules.
type RuleSpec struct {
	XMLName  xml.Name          `yaml:"-"`
	Attrs    []xml.Attr        `xml:",any,attr" yaml:"-"`
	Kind     string            `xml:"-" yaml:"kind"`
	Params   map[string]string `xml:"-" yaml:",inline"`
	Children []RuleSpec        `xml:",any" yaml:"children,omitempty"`
}

type ItemSpec struct {
	Name       string `xml:"name,attr" yaml:"name"`
	DefStyle   string `xml:"defStyleNum,attr" yaml:"defStyleNum"`
	Color      string `xml:"color,attr" yaml:"color,omitempty"`
	Bold       string `xml:"bold,attr" yaml:"bold,omitempty"`
	Italic     string `xml:"italic,attr" yaml:"italic,omitempty"`
	Underline  string `xml:"underline,attr" yaml:"underline,omitempty"`
	StrikeOut  string `xml:"strikeOut,attr" yaml:"strikeOut,omitempty"`
	SpellCheck string `xml:"spellChecking,attr" yaml:"spellChecking,omitempty"`
}

type General struct {
	Keywords KeywordsSpec `xml:"keywords" yaml:"keywords,omitempty"`
	Folding  FoldingSpec  `xml:"folding" yaml:"folding,omitempty"`
}

type KeywordsSpec struct {
	CaseSensitive         string `xml:"casesensitive,attr" yaml:"casesensitive,omitempty"`
	WeakDeliminator       string `xml:"weakDeliminator,attr" yaml:"weakDeliminator,omitempty"`
	AdditionalDeliminator string `xml:"additionalDeliminator,attr" yaml:"additionalDeliminator,omitempty"`
}

type FoldingSpec struct {
	IndentationSensitive string `xml:"indentationsensitive,attr" yaml:"indentationsensitive,omitempty"`
}

// normalize folds the XML element name and attributes into Kind and
// Params so both encodings are handled alike.
func (r *RuleSpec) normalize() {
	if r.Kind == "" {
		r.Kind = r.XMLName.Local
	}
	if len(r.Attrs) > 0 {
		if r.Params == nil {
			r.Params = make(map[string]string, len(r.Attrs))
		}
		for _, a := range r.Attrs {
			r.Params[a.Name.Local] = a.Value
		}
		r.Attrs = nil
	}
	for i := range r.Children {
		r.Children[i].normalize()
	}
}

func (d *Document) normalize() {
	for i := range d.Highlighting.Contexts {
		rules := d.Highlighting.Contexts[i].Rules
		for j := range rules {
			rules[j].normalize()
		}
	}
}

func (r *RuleSpec) param(name string) string {
	return r.Params[name]
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' }) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
