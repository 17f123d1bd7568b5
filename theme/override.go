package theme

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cast"

	"github.com/odvcencio/genhl/syntax"
)

// Override replaces parts of the rendering of one format. Nil fields keep
// the style's value.
type Override struct {
	Color      *colorful.Color
	Background *colorful.Color
	Bold       *bool
	Italic     *bool
	Underline  *bool
}

func (o Override) apply(e *chroma.StyleEntry) {
	if o.Color != nil {
		e.Colour = toColour(*o.Color)
	}
	if o.Background != nil {
		e.Background = toColour(*o.Background)
	}
	setTrilean(&e.Bold, o.Bold)
	setTrilean(&e.Italic, o.Italic)
	setTrilean(&e.Underline, o.Underline)
}

// ParseOverrides reads loosely typed overrides keyed by format name, as
// decoded from a configuration file:
//
//	keyword: {color: "#cc7832", bold: true}
//	comment: {italic: "1"}
//
// Format names are matched case-insensitively.
func ParseOverrides(raw map[string]any) (map[syntax.FormatID]Override, error) {
	out := make(map[syntax.FormatID]Override, len(raw))
	for name, v := range raw {
		f, ok := lookupFormat(name)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownFormat, name)
		}
		fields, err := cast.ToStringMapE(v)
		if err != nil {
			return nil, fmt.Errorf("override %s: %w", name, err)
		}
		var o Override
		for key, val := range fields {
			if err := o.set(strings.ToLower(key), val); err != nil {
				return nil, fmt.Errorf("override %s.%s: %w", name, key, err)
			}
		}
		out[f] = o
	}
	return out, nil
}

func (o *Override) set(key string, val any) error {
	switch key {
	case "color", "colour", "background":
		s, err := cast.ToStringE(val)
		if err != nil {
			return err
		}
		c, err := colorful.Hex(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		if key == "background" {
			o.Background = &c
		} else {
			o.Color = &c
		}
	case "bold", "italic", "underline":
		b, err := cast.ToBoolE(val)
		if err != nil {
			return err
		}
		switch key {
		case "bold":
			o.Bold = &b
		case "italic":
			o.Italic = &b
		default:
			o.Underline = &b
		}
	default:
		return fmt.Errorf("unknown attribute %q", key)
	}
	return nil
}

func lookupFormat(name string) (syntax.FormatID, bool) {
	for _, f := range syntax.Formats() {
		if strings.EqualFold(f.String(), name) {
			return f, true
		}
	}
	return syntax.Normal, false
}
