package syntax

// FormatID identifies a text format independently of how it is rendered.
type FormatID int

const (
	Normal FormatID = iota
	VisualWhitespace
	Keyword
	DataType
	Decimal
	BaseN
	Float
	Char
	String
	Comment
	Alert
	Error
	Function
	RegionMarker
	Others
)

var formatNames = [...]string{
	Normal:           "Normal",
	VisualWhitespace: "VisualWhitespace",
	Keyword:          "Keyword",
	DataType:         "DataType",
	Decimal:          "Decimal",
	BaseN:            "BaseN",
	Float:            "Float",
	Char:             "Char",
	String:           "String",
	Comment:          "Comment",
	Alert:            "Alert",
	Error:            "Error",
	Function:         "Function",
	RegionMarker:     "RegionMarker",
	Others:           "Others",
}

func (f FormatID) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return "Unknown"
	}
	return formatNames[f]
}

// Formats returns every FormatID in declaration order.
func Formats() []FormatID {
	out := make([]FormatID, len(formatNames))
	for i := range formatNames {
		out[i] = FormatID(i)
	}
	return out
}

// ParseFormat looks up a FormatID by its String name.
func ParseFormat(name string) (FormatID, bool) {
	for i, n := range formatNames {
		if n == name {
			return FormatID(i), true
		}
	}
	return Normal, false
}

// kateFormats maps Kate default style names to format ids.
var kateFormats = map[string]FormatID{
	"dsNormal":       Normal,
	"dsKeyword":      Keyword,
	"dsDataType":     DataType,
	"dsDecVal":       Decimal,
	"dsBaseN":        BaseN,
	"dsFloat":        Float,
	"dsChar":         Char,
	"dsString":       String,
	"dsComment":      Comment,
	"dsAlert":        Alert,
	"dsError":        Error,
	"dsFunction":     Function,
	"dsRegionMarker": RegionMarker,
	"dsOthers":       Others,
}

// KateFormat maps a Kate style name (e.g. "dsComment") to a FormatID.
// Unknown names map to Normal.
func KateFormat(style string) FormatID {
	return kateFormats[style]
}
