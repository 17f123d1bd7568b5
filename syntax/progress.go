package syntax

// Progress is the cursor the rules advance while a single line is
// highlighted.
type Progress struct {
	Offset          int
	OnlySpacesSoFar bool

	// Brace matches feed the folding indent of the line.
	OpeningBraceMatchAtFirstNonSpace bool
	ClosingBraceMatchAtNonEnd        bool

	WillContinueLine bool

	// Captures of the last successful regular expression match,
	// index 0 being the whole match.
	Captures []string
}

// Reset prepares p for a new line.
func (p *Progress) Reset() {
	p.Offset = 0
	p.OnlySpacesSoFar = true
	p.ClearBracesMatches()
	p.WillContinueLine = false
	p.Captures = nil
}

// ClearBracesMatches forgets brace matches recorded by the last rule.
func (p *Progress) ClearBracesMatches() {
	p.OpeningBraceMatchAtFirstNonSpace = false
	p.ClosingBraceMatchAtNonEnd = false
}
