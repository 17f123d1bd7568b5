package syntax

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownLanguage is returned when no definition matches a lookup.
	ErrUnknownLanguage = errors.New("syntax: unknown language")
	// ErrUnresolvedContext marks a context switch naming a missing context.
	ErrUnresolvedContext = errors.New("unresolved context")
	// ErrIncludeCycle marks IncludeRules that include themselves.
	ErrIncludeCycle = errors.New("IncludeRules cycle")
	// ErrNoContexts marks a definition without any context.
	ErrNoContexts = errors.New("definition has no contexts")
	// ErrMalformedRule marks a rule missing a required attribute or
	// carrying an invalid one.
	ErrMalformedRule = errors.New("malformed rule")
)

// DefinitionError describes one problem found while building a definition.
type DefinitionError struct {
	Language string
	Context  string
	Rule     string
	Err      error
}

func (e *DefinitionError) Error() string {
	msg := "syntax " + e.Language
	if e.Context != "" {
		msg += ": context " + fmt.Sprintf("%q", e.Context)
	}
	if e.Rule != "" {
		msg += ": " + e.Rule
	}
	return msg + ": " + e.Err.Error()
}

func (e *DefinitionError) Unwrap() error { return e.Err }
