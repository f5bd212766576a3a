package site

import "errors"

var (
	// ErrInvalidTextMode is returned when a text mode name is unknown.
	ErrInvalidTextMode = errors.New("invalid text mode")

	// ErrInvalidSelector is returned when a CSS selector does not compile.
	ErrInvalidSelector = errors.New("invalid CSS selector")

	// ErrInvalidPattern is returned when a regular expression does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrNoFragmentRule is returned when a definition has neither a fragment
	// selector nor a fragment pattern.
	ErrNoFragmentRule = errors.New("fragment selector or fragment pattern is required")

	// ErrConflictingRules is returned when a definition sets both a selector
	// and a pattern for the same target.
	ErrConflictingRules = errors.New("selector and pattern are mutually exclusive")

	// ErrUnknownPreset is returned when a preset name is not registered.
	ErrUnknownPreset = errors.New("unknown preset")
)
